package robot

import (
	"math"
	"testing"
)

func TestOutputOffset(t *testing.T) {
	g := Gains{P: 4.5}
	tests := []struct {
		name string
		in   Output
		want float64
	}{
		{"motion magic shifts", MotionMagicOutput(100, g, 10, 10), 150},
		{"position shifts", PositionOutput(-20, g), 30},
		{"percent untouched", PercentOutputOf(0.5), 0.5},
		{"velocity untouched", VelocityOutput(12, g), 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Offset(50).Setpoint; got != tt.want {
				t.Errorf("Offset(50): got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameSetpointIgnoresGains(t *testing.T) {
	a := MotionMagicOutput(100, Gains{P: 1}, 10, 10)
	b := MotionMagicOutput(100, Gains{P: 2}, 20, 20)
	if !a.SameSetpoint(b) {
		t.Error("outputs with equal mode and setpoint should match")
	}
	if a.SameSetpoint(PositionOutput(100, Gains{})) {
		t.Error("different modes should not match")
	}
}

func TestNeutral(t *testing.T) {
	if !Neutral().IsNeutral() {
		t.Error("Neutral() should be neutral")
	}
	if Percent(0.1, 0).IsNeutral() {
		t.Error("non-zero percent output reported neutral")
	}
}

func TestDriveInstalled(t *testing.T) {
	sig := Signal{
		Left:  MotionMagicOutput(1000, Gains{}, 1, 1),
		Right: MotionMagicOutput(-1000, Gains{}, 1, 1),
	}
	s := State{
		LeftFeedback:  Feedback{Mode: MotionMagic, Setpoint: 1000},
		RightFeedback: Feedback{Mode: MotionMagic, Setpoint: -1000},
	}
	if !s.DriveInstalled(sig) {
		t.Error("matching feedback should report installed")
	}
	s.RightFeedback.Setpoint = 0
	if s.DriveInstalled(sig) {
		t.Error("mismatched right side should not report installed")
	}
}

func TestPoseGyroBroken(t *testing.T) {
	if (Pose{Heading: 0}).GyroBroken() {
		t.Error("positive zero is a valid heading")
	}
	if !(Pose{Heading: math.Copysign(0, -1)}).GyroBroken() {
		t.Error("negative zero should flag a broken gyro")
	}
}

func TestPoseWithClosedLoopErrorCopies(t *testing.T) {
	p := Pose{LeftEnc: 10, RightEnc: 30}
	q := p.WithClosedLoopError(1, 2)

	if p.HasClosedLoopError {
		t.Error("WithClosedLoopError modified the receiver")
	}
	if !q.HasClosedLoopError || q.LeftError != 1 || q.RightError != 2 {
		t.Errorf("WithClosedLoopError: got %+v", q)
	}
	if got := q.AverageEnc(); got != 20 {
		t.Errorf("AverageEnc: got %v, want 20", got)
	}
}

func TestMechanismsSliderGoal(t *testing.T) {
	tests := []struct {
		name string
		m    Mechanisms
		want float64
		ok   bool
	}{
		{"left preset", Mechanisms{SliderTarget: SliderTargetLeft}, SliderLeftInches, true},
		{"custom", Mechanisms{SliderTarget: SliderTargetCustom, SliderSetpoint: 3.5}, 3.5, true},
		{"none", Mechanisms{SliderTarget: SliderTargetNone, SliderSetpoint: 3.5}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.m.SliderGoal()
			if got != tt.want || ok != tt.ok {
				t.Errorf("SliderGoal: got %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
