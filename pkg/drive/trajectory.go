package drive

import (
	"math"

	"github.com/felixge/pidctrl"

	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/trajectory"
)

const (
	// Heading correction is bounded so it can only bias the sides.
	headingCorrectionLimit = 0.15
	batteryVolts           = 12.0
)

// TrajectoryFollowing tracks a precomputed left/right path. Distances are
// measured from the encoder positions at install time. Without a path it is
// a no-op that is always on target.
type TrajectoryFollowing struct {
	cfg     Config
	left    *trajectory.Follower
	right   *trajectory.Follower
	heading *pidctrl.PIDController
	useGyro bool
	noPath  bool

	base       robot.Pose
	correction float64
}

// NewTrajectoryFollowing builds followers for path. When inverted, the
// path's left/right mirror image is followed instead.
func NewTrajectoryFollowing(cfg Config, state robot.State, path *trajectory.Path, gains trajectory.Gains, useGyro, inverted bool) *TrajectoryFollowing {
	t := &TrajectoryFollowing{
		cfg:     cfg,
		left:    trajectory.NewFollower("left", gains),
		right:   trajectory.NewFollower("right", gains),
		useGyro: useGyro,
		base:    state.Pose,
	}
	t.heading = newPID(PID{P: gains.TurnP, D: gains.TurnD, Limit: headingCorrectionLimit}, 0, 0)

	if path == nil {
		t.noPath = true
		return t
	}
	if inverted {
		path = path.Inverted()
	}
	t.left.SetTrajectory(path.Left)
	t.right.SetTrajectory(path.Right)
	return t
}

func (t *TrajectoryFollowing) Update(state robot.State) robot.Signal {
	if t.OnTarget() {
		return robot.Neutral()
	}
	p := state.Pose
	lp := t.left.Calculate(t.cfg.TicksToInches(p.LeftEnc - t.base.LeftEnc))
	rp := t.right.Calculate(t.cfg.TicksToInches(p.RightEnc - t.base.RightEnc))

	if !t.useGyro {
		return robot.Percent(lp, rp)
	}

	// Path headings are counter-clockwise positive, the gyro clockwise.
	actual := -(p.Heading - t.base.Heading)
	expected := t.left.Heading() * 180 / math.Pi
	errDeg := trajectory.AngleDiffDegrees(actual, expected)
	t.correction = t.heading.UpdateDuration(errDeg, t.cfg.Period)
	return robot.Signal{
		Left:  robot.VoltageOutput((lp + t.correction) * batteryVolts),
		Right: robot.VoltageOutput((rp - t.correction) * batteryVolts),
	}
}

func (t *TrajectoryFollowing) OnTarget() bool {
	return t.noPath || (t.left.Finished() && t.right.Finished())
}

// Setpoint reports the progress of each follower as a segment index.
func (t *TrajectoryFollowing) Setpoint() robot.Pose {
	return robot.Pose{
		LeftEnc:  float64(t.left.Segment()),
		RightEnc: float64(t.right.Segment()),
		Heading:  t.left.Heading() * 180 / math.Pi,
	}
}

// Correction returns the most recent heading correction term.
func (t *TrajectoryFollowing) Correction() float64 { return t.correction }

func (t *TrajectoryFollowing) String() string { return "trajectory" }
