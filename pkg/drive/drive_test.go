package drive

import (
	"reflect"
	"testing"

	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/trajectory"
)

type recordingObserver struct {
	kinds []string
}

func (o *recordingObserver) ControllerInstalled(kind string) {
	o.kinds = append(o.kinds, kind)
}

func newTestDrive(s robot.State) (*Drive, *robot.StateHolder, *recordingObserver) {
	holder := robot.NewStateHolder(s)
	obs := &recordingObserver{}
	return New(DefaultConfig(), holder, WithObserver(obs)), holder, obs
}

func TestDriveNoController(t *testing.T) {
	d, _, _ := newTestDrive(robot.State{})

	if d.HasController() {
		t.Error("HasController with nothing installed")
	}
	if d.OnTarget() {
		t.Error("OnTarget must be false with no controller")
	}
	if d.ControllerReportsClosedLoopError() {
		t.Error("ControllerReportsClosedLoopError with no controller")
	}
	if got := d.Setpoint(); got != (robot.Pose{}) {
		t.Errorf("Setpoint: got %+v, want zero", got)
	}
	if !d.Update(OnBoardController, nil).IsNeutral() {
		t.Error("output not neutral with no controller")
	}
}

func TestDriveInstallReplaces(t *testing.T) {
	d, _, obs := newTestDrive(robot.State{Pose: robot.Pose{Heading: 20}})

	d.SetBangBangTurnAngle(30)
	first := d.Controller()
	d.SetGyroTurnAngle(10)

	if first == d.Controller() {
		t.Fatal("second install did not replace the controller")
	}
	if want := []string{"bang_bang_turn", "gyro_turn"}; !reflect.DeepEqual(obs.kinds, want) {
		t.Errorf("observed installs: got %v, want %v", obs.kinds, want)
	}
	if got := d.Setpoint().Heading; got != 30 {
		t.Errorf("gyro turn target: got %v, want 30 from the latest heading", got)
	}
}

func TestDriveUpdateDispatch(t *testing.T) {
	d, holder, _ := newTestDrive(robot.State{})
	power := robot.Percent(0.4, 0.6)

	if got := d.Update(OpenLoop, &power); got != power {
		t.Errorf("open loop: got %+v", got)
	}
	if got := d.Update(Manual, &power); got != power {
		t.Errorf("manual: got %+v", got)
	}
	if !d.Update(OpenLoop, nil).IsNeutral() {
		t.Error("open loop without power is not neutral")
	}

	d.SetOffboardSignal(robot.Signal{
		Left:  robot.PositionOutput(100, robot.Gains{}),
		Right: robot.PositionOutput(100, robot.Gains{}),
	})
	out := d.Update(OffBoardController, nil)
	if out.Left.Mode != robot.Position {
		t.Errorf("offboard mode: got %v", out.Left.Mode)
	}
	if out != d.Output() {
		t.Error("Output differs from the last Update")
	}
	if !d.ControllerReportsClosedLoopError() {
		t.Error("offboard should report closed-loop error")
	}

	holder.Store(robot.State{Pose: robot.Pose{LeftEnc: 100, RightEnc: 100}.WithClosedLoopError(0, 0)})
	d.Update(OffBoardController, nil)
	if !d.OnTarget() {
		t.Error("not on target with zero closed-loop error")
	}
}

func TestDriveEnteringNeutralResetsController(t *testing.T) {
	d, _, _ := newTestDrive(robot.State{})
	d.SetDriveStraight(24)
	d.Update(OnBoardController, nil)
	if !d.HasController() {
		t.Fatal("not installed")
	}

	if !d.Update(Neutral, nil).IsNeutral() {
		t.Error("neutral output expected")
	}
	if d.HasController() {
		t.Error("controller from an earlier tick survived entering neutral")
	}

	// Installing while already neutral survives until the state changes.
	d.SetDriveStraight(24)
	d.Update(Neutral, nil)
	if !d.HasController() {
		t.Error("controller installed while neutral was dropped")
	}
}

func TestDriveNeutralKeepsFreshController(t *testing.T) {
	d, _, _ := newTestDrive(robot.State{})
	power := robot.Percent(0.3, 0.3)
	d.Update(OpenLoop, &power)

	// One routine hands over to the next inside a single tick: the first
	// asks for neutral, the second installs before the drive updates.
	d.SetNeutral()
	d.SetEncoderTurnAngle(90)
	if !d.Update(Neutral, nil).IsNeutral() {
		t.Error("neutral output expected")
	}
	if !d.HasController() {
		t.Fatal("controller installed this tick was discarded")
	}

	out := d.Update(OffBoardController, nil)
	if out.Left.Mode != robot.MotionMagic {
		t.Errorf("encoder turn not driving: %+v", out)
	}

	// It is stale on the next transition.
	d.Update(Neutral, nil)
	if d.HasController() {
		t.Error("stale controller survived entering neutral")
	}
}

func TestDriveSetNeutral(t *testing.T) {
	d, _, _ := newTestDrive(robot.State{})
	power := robot.Percent(1, 1)
	d.Update(OpenLoop, &power)
	d.SetEncoderTurnAngle(90)

	d.SetNeutral()
	if d.HasController() {
		t.Error("controller survived SetNeutral")
	}
	if !d.Output().IsNeutral() {
		t.Errorf("output: got %+v, want neutral", d.Output())
	}
}

func TestDriveTrajectoryNilPath(t *testing.T) {
	d, _, _ := newTestDrive(robot.State{})
	d.SetTrajectory(nil, trajectory.Gains{}, false, false)

	if !d.OnTarget() {
		t.Error("nil path not on target")
	}
	if !d.Update(OnBoardController, nil).IsNeutral() {
		t.Error("nil path output not neutral")
	}
	if got := Name(d.Controller()); got != "trajectory" {
		t.Errorf("controller: got %q", got)
	}
}

func TestStateString(t *testing.T) {
	if got := OffBoardController.String(); got != "off_board_controller" {
		t.Errorf("got %q", got)
	}
	if got := State(42).String(); got != "unknown" {
		t.Errorf("got %q", got)
	}
}
