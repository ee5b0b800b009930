package drive

import (
	"github.com/felixge/pidctrl"

	"github.com/teslashibe/go-drivetrain/pkg/robot"
)

// Straight drives a fixed distance with a forward PID loop on the average
// encoder position and a heading-hold PID loop on the gyro.
type Straight struct {
	cfg     Config
	target  float64 // average ticks
	heading float64 // degrees
	forward *pidctrl.PIDController
	turn    *pidctrl.PIDController
	state   robot.State
}

// NewStraight targets distance inches ahead of the average encoder position
// in state and holds the heading in state.
func NewStraight(cfg Config, state robot.State, distance float64) *Straight {
	p := state.Pose
	s := &Straight{
		cfg:     cfg,
		target:  p.AverageEnc() + cfg.InchesToTicks(distance),
		heading: p.Heading,
		state:   state,
	}
	s.forward = newPID(cfg.Forward, s.target, p.AverageEnc())
	s.turn = newPID(cfg.Heading, s.heading, p.Heading)
	return s
}

// newPID builds a limited controller and primes its derivative term with
// the current process value so the first step does not kick.
func newPID(g PID, setpoint, value float64) *pidctrl.PIDController {
	c := pidctrl.NewPIDController(g.P, g.I, g.D)
	if g.Limit > 0 {
		c.SetOutputLimits(-g.Limit, g.Limit)
	}
	c.Set(setpoint)
	c.UpdateDuration(value, 0)
	return c
}

func (s *Straight) Update(state robot.State) robot.Signal {
	s.state = state
	p := state.Pose
	throttle := s.forward.UpdateDuration(p.AverageEnc(), s.cfg.Period)
	turn := s.turn.UpdateDuration(p.Heading, s.cfg.Period)
	return robot.Percent(throttle+turn, throttle-turn)
}

func (s *Straight) OnTarget() bool {
	p := s.state.Pose
	tol := s.cfg.Tolerances
	return abs(s.target-p.AverageEnc()) < tol.Position &&
		abs(p.Heading-s.heading) < tol.Heading &&
		abs(p.LeftSpeed) < tol.Velocity &&
		abs(p.RightSpeed) < tol.Velocity
}

func (s *Straight) Setpoint() robot.Pose {
	return robot.Pose{LeftEnc: s.target, RightEnc: s.target, Heading: s.heading}
}

func (s *Straight) String() string { return "drive_straight" }
