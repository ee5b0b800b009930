package drive

import (
	"math"
	"testing"

	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/sim"
	"github.com/teslashibe/go-drivetrain/pkg/trajectory"
)

// rig closes the loop between a controller and the simulator.
type rig struct {
	cfg Config
	bot *sim.Robot
}

func newRig() *rig {
	return &rig{cfg: DefaultConfig(), bot: sim.New(sim.DefaultGeometry())}
}

func (r *rig) state() robot.State {
	s, _ := r.bot.ReadState()
	return s
}

// step runs one control cycle and returns the state the controller saw.
func (r *rig) step(c Controller) robot.State {
	s := r.state()
	_ = r.bot.SetDriveSignal(c.Update(s))
	r.bot.Step(r.cfg.Period)
	return s
}

// runUntilOnTarget steps c until it reports on target, returning the number
// of cycles taken or -1 after max cycles.
func (r *rig) runUntilOnTarget(c Controller, max int) int {
	for i := 0; i < max; i++ {
		r.step(c)
		if c.OnTarget() {
			return i + 1
		}
	}
	return -1
}

func TestBangBangTurnDirection(t *testing.T) {
	cfg := DefaultConfig()
	c := NewBangBangTurn(cfg, robot.State{Pose: robot.Pose{Heading: 10}}, -0.3, 90)

	if got := c.Setpoint().Heading; got != 100 {
		t.Fatalf("target heading: got %v, want 100", got)
	}

	sig := c.Update(robot.State{Pose: robot.Pose{Heading: 10}})
	if sig.Left.Setpoint != 0.3 || sig.Right.Setpoint != -0.3 {
		t.Errorf("below target: got %+v, want left +0.3 right -0.3", sig)
	}
	sig = c.Update(robot.State{Pose: robot.Pose{Heading: 150}})
	if sig.Left.Setpoint != -0.3 || sig.Right.Setpoint != 0.3 {
		t.Errorf("past target: got %+v, want left -0.3 right +0.3", sig)
	}
	sig = c.Update(robot.State{Pose: robot.Pose{Heading: 99.5}})
	if !sig.IsNeutral() || !c.OnTarget() {
		t.Errorf("within tolerance: got %+v onTarget=%v", sig, c.OnTarget())
	}
}

func TestBangBangTurnConverges(t *testing.T) {
	r := newRig()
	c := NewBangBangTurn(r.cfg, r.state(), r.cfg.BangBangPower, 45)
	if n := r.runUntilOnTarget(c, 500); n < 0 {
		t.Fatalf("never reached target, heading %v", r.state().Pose.Heading)
	}
}

func TestEncoderTurnSetpoints(t *testing.T) {
	cfg := DefaultConfig()
	start := robot.State{Pose: robot.Pose{LeftEnc: 100, RightEnc: 200}}
	c := NewEncoderTurn(cfg, start, 90)

	ticks := 90 * cfg.InchesPerDegree() * cfg.TicksPerInch
	sp := c.Setpoint()
	if math.Abs(sp.LeftEnc-(100+ticks)) > 1e-9 || math.Abs(sp.RightEnc-(200-ticks)) > 1e-9 {
		t.Errorf("setpoints: got %v/%v, want %v/%v", sp.LeftEnc, sp.RightEnc, 100+ticks, 200-ticks)
	}

	// Sitting at the target but with the motors still reporting the old
	// setpoint is not on target.
	at := robot.State{Pose: robot.Pose{LeftEnc: sp.LeftEnc, RightEnc: sp.RightEnc}}
	c.Update(at)
	if c.OnTarget() {
		t.Error("on target before the motor controllers report the new setpoint")
	}

	at.LeftFeedback = robot.Feedback{Mode: robot.MotionMagic, Setpoint: sp.LeftEnc}
	at.RightFeedback = robot.Feedback{Mode: robot.MotionMagic, Setpoint: sp.RightEnc}
	c.Update(at)
	if !c.OnTarget() {
		t.Error("not on target with matching feedback at rest")
	}
}

func TestEncoderTurnConverges(t *testing.T) {
	r := newRig()
	c := NewEncoderTurn(r.cfg, r.state(), 90)
	if n := r.runUntilOnTarget(c, 1000); n < 0 {
		t.Fatal("encoder turn never reached target")
	}
	if h := r.state().Pose.Heading; math.Abs(h-90) > r.cfg.Tolerances.Heading {
		t.Errorf("heading: got %v, want 90", h)
	}
}

func TestGyroTurnOnTargetOnlyAtTarget(t *testing.T) {
	r := newRig()
	r.bot.Place(0, 0, 30)
	const angle = 45.0
	c := NewGyroTurn(r.cfg, r.state(), angle)

	reached := false
	for i := 0; i < 1000 && !reached; i++ {
		s := r.step(c)
		if c.OnTarget() {
			if math.Abs(s.Pose.Heading-(30+angle)) >= r.cfg.Tolerances.Heading {
				t.Fatalf("on target at heading %v, want within %v of %v", s.Pose.Heading, r.cfg.Tolerances.Heading, 30+angle)
			}
			reached = true
		}
	}
	if !reached {
		t.Fatalf("gyro turn never reached target, heading %v", r.state().Pose.Heading)
	}
}

func TestGyroTurnTracksHeadingError(t *testing.T) {
	cfg := DefaultConfig()
	c := NewGyroTurn(cfg, robot.State{Pose: robot.Pose{Heading: 0}}, 10)

	sig := c.Update(robot.State{Pose: robot.Pose{Heading: 5, LeftEnc: 1000, RightEnc: 1000}})
	k := cfg.DegreesToTicks(5)
	if math.Abs(sig.Left.Setpoint-(1000+k)) > 1e-9 || math.Abs(sig.Right.Setpoint-(1000-k)) > 1e-9 {
		t.Errorf("setpoints: got %v/%v, want %v/%v", sig.Left.Setpoint, sig.Right.Setpoint, 1000+k, 1000-k)
	}
	if sig.Left.Mode != robot.MotionMagic {
		t.Errorf("mode: got %v, want motion magic", sig.Left.Mode)
	}
}

func TestOffboardMotionMagic(t *testing.T) {
	r := newRig()
	sig := robot.Signal{
		Left:  r.cfg.MotionMagic(r.cfg.Short, 2000),
		Right: r.cfg.MotionMagic(r.cfg.Short, 2000),
	}
	c := NewOffboard(r.cfg, r.state(), sig)
	if c.OnTarget() {
		t.Fatal("on target before moving")
	}
	if n := r.runUntilOnTarget(c, 2000); n < 0 {
		t.Fatal("offboard motion magic never reached target")
	}
	if !ReportsClosedLoopError(c) {
		t.Error("offboard controller should report closed-loop error")
	}
}

func TestOffboardPositionNeedsClosedLoopError(t *testing.T) {
	cfg := DefaultConfig()
	sig := robot.Signal{Left: robot.PositionOutput(500, cfg.Short.Gains), Right: robot.PositionOutput(500, cfg.Short.Gains)}
	c := NewOffboard(cfg, robot.State{}, sig)

	c.Update(robot.State{Pose: robot.Pose{LeftEnc: 500, RightEnc: 500}})
	if c.OnTarget() {
		t.Error("position mode on target without closed-loop error")
	}

	c.Update(robot.State{Pose: robot.Pose{LeftEnc: 500, RightEnc: 500}.WithClosedLoopError(3, -2)})
	if !c.OnTarget() {
		t.Error("position mode not on target with small closed-loop error")
	}

	c.Update(robot.State{Pose: robot.Pose{}.WithClosedLoopError(300, 0)})
	if c.OnTarget() {
		t.Error("position mode on target with large closed-loop error")
	}
}

func TestStraightReachesDistance(t *testing.T) {
	r := newRig()
	r.bot.Place(500, 500, 0)
	c := NewStraight(r.cfg, r.state(), 60)

	if n := r.runUntilOnTarget(c, 2000); n < 0 {
		t.Fatalf("drive straight never on target, avg %v want %v", r.state().Pose.AverageEnc(), c.Setpoint().LeftEnc)
	}
	got := r.cfg.TicksToInches(r.state().Pose.AverageEnc() - 500)
	if math.Abs(got-60) > 0.5 {
		t.Errorf("distance: got %v, want 60", got)
	}
}

func TestStraightHoldsHeading(t *testing.T) {
	cfg := DefaultConfig()
	c := NewStraight(cfg, robot.State{}, 100)

	sig := c.Update(robot.State{Pose: robot.Pose{Heading: 5}})
	if sig.Left.Setpoint >= sig.Right.Setpoint {
		t.Errorf("drifted clockwise: left %v should be below right %v", sig.Left.Setpoint, sig.Right.Setpoint)
	}
	if sig.Left.Setpoint > 1+cfg.Heading.Limit || sig.Left.Setpoint < -1-cfg.Heading.Limit {
		t.Errorf("output %v outside limits", sig.Left.Setpoint)
	}
}

func TestStraightNotOnTargetWhileMoving(t *testing.T) {
	cfg := DefaultConfig()
	c := NewStraight(cfg, robot.State{}, 0)

	c.Update(robot.State{Pose: robot.Pose{LeftSpeed: 10, RightSpeed: 10}})
	if c.OnTarget() {
		t.Error("on target while moving")
	}
	c.Update(robot.State{})
	if !c.OnTarget() {
		t.Error("not on target at rest on the setpoint")
	}
}

func TestTrajectoryNilPath(t *testing.T) {
	c := NewTrajectoryFollowing(DefaultConfig(), robot.State{}, nil, trajectory.Gains{P: 1}, true, false)
	if !c.OnTarget() {
		t.Error("nil path should be on target immediately")
	}
	if sig := c.Update(robot.State{Pose: robot.Pose{LeftEnc: 100}}); !sig.IsNeutral() {
		t.Errorf("nil path output: got %+v, want neutral", sig)
	}
}

func TestTrajectoryFollowsLine(t *testing.T) {
	r := newRig()
	r.bot.Place(1000, 1000, 0)
	path := trajectory.Line("line", 60, 36, 36, r.cfg.Period.Seconds())
	c := NewTrajectoryFollowing(r.cfg, r.state(), path, r.cfg.Trajectory, false, false)

	n := r.runUntilOnTarget(c, 5000)
	if n != path.Left.Len() {
		t.Errorf("cycles: got %d, want %d", n, path.Left.Len())
	}
	got := r.cfg.TicksToInches(r.state().Pose.LeftEnc - 1000)
	if math.Abs(got-60) > 3 {
		t.Errorf("distance: got %v, want about 60", got)
	}
	if sig := c.Update(r.state()); !sig.IsNeutral() {
		t.Errorf("after completion: got %+v, want neutral", sig)
	}
}

func TestTrajectoryGyroCorrection(t *testing.T) {
	cfg := DefaultConfig()
	gains := trajectory.Gains{TurnP: 0.01}
	path := &trajectory.Path{
		Left:  &trajectory.Trajectory{Segments: make([]trajectory.Segment, 10)},
		Right: &trajectory.Trajectory{Segments: make([]trajectory.Segment, 10)},
	}
	c := NewTrajectoryFollowing(cfg, robot.State{}, path, gains, true, false)

	// Drifted 10 degrees clockwise: correction steers back left.
	sig := c.Update(robot.State{Pose: robot.Pose{Heading: 10}})
	if sig.Left.Mode != robot.Voltage || sig.Right.Mode != robot.Voltage {
		t.Fatalf("mode: got %v/%v, want voltage", sig.Left.Mode, sig.Right.Mode)
	}
	if !(sig.Left.Setpoint < 0 && sig.Right.Setpoint > 0) {
		t.Errorf("correction sign: got left %v right %v", sig.Left.Setpoint, sig.Right.Setpoint)
	}
	if math.Abs(c.Correction()) > headingCorrectionLimit {
		t.Errorf("correction %v exceeds limit", c.Correction())
	}
}

func TestTrajectoryInverted(t *testing.T) {
	cfg := DefaultConfig()
	path := &trajectory.Path{
		Left:  &trajectory.Trajectory{Segments: []trajectory.Segment{{Pos: 10, Dt: 0.02}}},
		Right: &trajectory.Trajectory{Segments: []trajectory.Segment{{Pos: 20, Dt: 0.02}}},
	}
	c := NewTrajectoryFollowing(cfg, robot.State{}, path, trajectory.Gains{P: 0.01}, false, true)

	sig := c.Update(robot.State{})
	if math.Abs(sig.Left.Setpoint-0.2) > 1e-9 || math.Abs(sig.Right.Setpoint-0.1) > 1e-9 {
		t.Errorf("inverted outputs: got %v/%v, want 0.2/0.1", sig.Left.Setpoint, sig.Right.Setpoint)
	}
}
