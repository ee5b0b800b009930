package drive

import "github.com/teslashibe/go-drivetrain/pkg/robot"

// Offboard hands a fixed signal to the motor controllers and lets them close
// the loop. It is used for point-to-point moves with the short and long
// motion-magic profiles.
type Offboard struct {
	cfg    Config
	signal robot.Signal
	state  robot.State
}

// NewOffboard stores a copy of sig.
func NewOffboard(cfg Config, state robot.State, sig robot.Signal) *Offboard {
	return &Offboard{cfg: cfg, signal: sig, state: state}
}

func (o *Offboard) Update(state robot.State) robot.Signal {
	o.state = state
	return o.signal
}

func (o *Offboard) OnTarget() bool {
	p := o.state.Pose
	return o.sideOnTarget(o.signal.Left, p.LeftEnc, p.LeftSpeed, p.LeftError, p.HasClosedLoopError) &&
		o.sideOnTarget(o.signal.Right, p.RightEnc, p.RightSpeed, p.RightError, p.HasClosedLoopError)
}

// Motion magic is judged on position and speed directly. Every other mode
// depends on the motor controller's reported closed-loop error.
func (o *Offboard) sideOnTarget(out robot.Output, enc, speed, clErr float64, hasErr bool) bool {
	tol := o.cfg.Tolerances
	if abs(speed) >= tol.Velocity {
		return false
	}
	if out.Mode == robot.MotionMagic {
		return abs(enc-out.Setpoint) < tol.Position
	}
	return hasErr && abs(clErr) < tol.Position
}

func (o *Offboard) Setpoint() robot.Pose {
	return robot.Pose{LeftEnc: o.signal.Left.Setpoint, RightEnc: o.signal.Right.Setpoint}
}

// Signal returns the installed signal.
func (o *Offboard) Signal() robot.Signal { return o.signal }

func (o *Offboard) ReportsClosedLoopError() bool { return true }

func (o *Offboard) String() string { return "offboard" }
