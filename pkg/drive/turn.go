package drive

import "github.com/teslashibe/go-drivetrain/pkg/robot"

// BangBangTurn turns in place at constant power until the heading is within
// tolerance of baseline + angle.
type BangBangTurn struct {
	power  float64
	target float64
	tol    float64
	state  robot.State
}

// NewBangBangTurn captures the target heading from state.
func NewBangBangTurn(cfg Config, state robot.State, power, angle float64) *BangBangTurn {
	return &BangBangTurn{
		power:  abs(power),
		target: state.Pose.Heading + angle,
		tol:    cfg.Tolerances.Heading,
		state:  state,
	}
}

func (b *BangBangTurn) Update(state robot.State) robot.Signal {
	b.state = state
	if b.OnTarget() {
		return robot.Neutral()
	}
	if state.Pose.Heading < b.target {
		return robot.Percent(b.power, -b.power)
	}
	return robot.Percent(-b.power, b.power)
}

func (b *BangBangTurn) OnTarget() bool {
	return abs(b.target-b.state.Pose.Heading) < b.tol
}

func (b *BangBangTurn) Setpoint() robot.Pose {
	return robot.Pose{Heading: b.target}
}

func (b *BangBangTurn) String() string { return "bang_bang_turn" }

// EncoderTurn turns in place by installing fixed motion-magic encoder targets
// computed from the requested angle.
type EncoderTurn struct {
	cfg    Config
	signal robot.Signal
	state  robot.State
}

// NewEncoderTurn derives per-side targets from the encoder positions in state.
func NewEncoderTurn(cfg Config, state robot.State, angle float64) *EncoderTurn {
	ticks := cfg.DegreesToTicks(angle)
	return &EncoderTurn{
		cfg: cfg,
		signal: robot.Signal{
			Left:  cfg.MotionMagic(cfg.Turn, state.Pose.LeftEnc+ticks),
			Right: cfg.MotionMagic(cfg.Turn, state.Pose.RightEnc-ticks),
		},
		state: state,
	}
}

func (e *EncoderTurn) Update(state robot.State) robot.Signal {
	e.state = state
	return e.signal
}

// OnTarget requires the motor controllers to report the installed targets,
// so a stale reading right after install is not mistaken for arrival.
func (e *EncoderTurn) OnTarget() bool {
	if !e.state.DriveInstalled(e.signal) {
		return false
	}
	p := e.state.Pose
	tol := e.cfg.DegreesToTicks(e.cfg.Tolerances.Heading)
	vel := e.cfg.Tolerances.Velocity
	return abs(p.LeftSpeed) < vel && abs(p.RightSpeed) < vel &&
		abs(e.signal.Left.Setpoint-p.LeftEnc) < tol &&
		abs(e.signal.Right.Setpoint-p.RightEnc) < tol
}

func (e *EncoderTurn) Setpoint() robot.Pose {
	return robot.Pose{LeftEnc: e.signal.Left.Setpoint, RightEnc: e.signal.Right.Setpoint}
}

func (e *EncoderTurn) String() string { return "encoder_turn" }

// GyroTurn turns in place with motion magic, re-deriving encoder targets from
// the gyro heading error every tick.
type GyroTurn struct {
	cfg    Config
	target float64
	signal robot.Signal
	state  robot.State
}

// NewGyroTurn captures the target heading from state.
func NewGyroTurn(cfg Config, state robot.State, angle float64) *GyroTurn {
	g := &GyroTurn{cfg: cfg, target: state.Pose.Heading + angle, state: state}
	g.signal = g.compute(state.Pose)
	return g
}

func (g *GyroTurn) compute(p robot.Pose) robot.Signal {
	ticks := g.cfg.DegreesToTicks(g.target - p.Heading)
	return robot.Signal{
		Left:  g.cfg.MotionMagic(g.cfg.Turn, p.LeftEnc+ticks),
		Right: g.cfg.MotionMagic(g.cfg.Turn, p.RightEnc-ticks),
	}
}

func (g *GyroTurn) Update(state robot.State) robot.Signal {
	g.state = state
	g.signal = g.compute(state.Pose)
	return g.signal
}

func (g *GyroTurn) OnTarget() bool {
	p := g.state.Pose
	return abs(p.Heading-g.target) < g.cfg.Tolerances.Heading &&
		abs(p.HeadingVelocity) < g.cfg.Tolerances.HeadingVelocity
}

func (g *GyroTurn) Setpoint() robot.Pose {
	return robot.Pose{
		LeftEnc:  g.signal.Left.Setpoint,
		RightEnc: g.signal.Right.Setpoint,
		Heading:  g.target,
	}
}

func (g *GyroTurn) String() string { return "gyro_turn" }
