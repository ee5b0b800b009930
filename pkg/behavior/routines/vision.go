package routines

import (
	"slices"
	"time"

	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/subsystem"
)

// VisionSetpoint converts a vision reading to a slider position. Readings
// past the false-positive bound, or too far left to reach, send the slider
// to the left preset.
func VisionSetpoint(cfg Config, xdist float64) float64 {
	left := -cfg.VisionClamp
	var sp float64
	switch {
	case xdist >= cfg.VisionFalsePositive:
		sp = left
	case xdist <= left-cfg.VisionOffset:
		sp = left
	default:
		sp = xdist + cfg.VisionOffset
	}
	return max(-cfg.VisionClamp, min(sp, cfg.VisionClamp))
}

// VisionSlider tracks the vision target with the slider.
type VisionSlider struct {
	env     Env
	started time.Time
	sent    bool
	last    float64
}

// NewVisionSlider returns a vision-guided slider move.
func NewVisionSlider(env Env) *VisionSlider { return &VisionSlider{env: env} }

func (v *VisionSlider) Start() {
	v.started = v.env.now()
	v.sent = false
}

func (v *VisionSlider) Update(cmd behavior.Commands) behavior.Commands {
	v.last = VisionSetpoint(v.env.Config, v.env.Vision.XDist())
	if !v.sent {
		v.env.logger().Debug("vision setpoint", "inches", v.last)
	}
	cmd.Spatula = robot.SpatulaUp
	cmd.SliderTarget = robot.SliderTargetCustom
	cmd.SliderSetpoint = v.last
	cmd.Slider = robot.SliderCustomPositioning
	v.sent = true
	return cmd
}

func (v *VisionSlider) Cancel(cmd behavior.Commands) behavior.Commands {
	return stopSlider(cmd)
}

func (v *VisionSlider) Finished() bool {
	return v.sent &&
		v.env.now().Sub(v.started) > v.env.Config.VisionSettle &&
		v.env.State.Latest().Slider.Velocity == 0
}

// Setpoint returns the most recent vision setpoint.
func (v *VisionSlider) Setpoint() float64 { return v.last }

func (v *VisionSlider) RequiredSubsystems() subsystem.Set { return sliderAndSpatula }

func (v *VisionSlider) Name() string { return "VisionSlider" }

type sampleState int

const (
	sampleLeft sampleState = iota
	sampleCenter
	sampleRight
	sampleScore
)

// MultiSampleVision reads vision with the slider at each preset, then
// scores at the position the readings agree on.
type MultiSampleVision struct {
	env      Env
	state    sampleState
	entered  time.Time
	fresh    bool
	samples  [3]float64
	setpoint float64
}

// NewMultiSampleVision returns a three-sample vision scoring routine.
func NewMultiSampleVision(env Env) *MultiSampleVision { return &MultiSampleVision{env: env} }

var samplePositions = [3]float64{robot.SliderLeftInches, robot.SliderCenterInches, robot.SliderRightInches}

func (m *MultiSampleVision) Start() {
	m.state = sampleLeft
	m.entered = m.env.now()
	m.fresh = true
}

func (m *MultiSampleVision) Update(cmd behavior.Commands) behavior.Commands {
	if m.state == sampleScore {
		if m.fresh {
			m.fresh = false
			m.entered = m.env.now()
			m.setpoint = chooseSample(m.samples, m.setpoint, m.env.Config.SampleThreshold)
			m.env.logger().Info("vision sample chosen", "samples", m.samples, "inches", m.setpoint)
		}
		return m.position(cmd)
	}

	i := int(m.state)
	if m.fresh {
		m.setpoint = samplePositions[i]
		m.entered = m.env.now()
		m.fresh = false
	}
	if m.env.State.Latest().Slider.Velocity == 0 && m.env.now().Sub(m.entered) > m.env.Config.SampleDwell {
		m.samples[i] = m.env.Vision.XDist()
		m.state++
		m.fresh = true
	}
	return m.position(cmd)
}

func (m *MultiSampleVision) position(cmd behavior.Commands) behavior.Commands {
	cmd.Spatula = robot.SpatulaUp
	cmd.SliderTarget = robot.SliderTargetCustom
	cmd.SliderSetpoint = m.setpoint
	cmd.Slider = robot.SliderCustomPositioning
	return cmd
}

// chooseSample picks a scoring position from three readings. Two readings
// within threshold of each other are averaged; a lone in-range reading with
// the other side out of range picks that side's preset. Otherwise current
// is kept.
func chooseSample(samples [3]float64, current, threshold float64) float64 {
	s := samples[:]
	slices.Sort(s)
	left, right := robot.SliderLeftInches, robot.SliderRightInches
	switch {
	case s[1]-s[0] < threshold:
		return (s[0] + s[1]) / 2
	case s[2]-s[1] > threshold:
		return (s[1] + s[2]) / 2
	case s[0] <= left && s[2] < right && s[2] > left:
		return left
	case s[2] >= right && s[0] < right && s[0] > left:
		return right
	}
	return current
}

func (m *MultiSampleVision) Cancel(cmd behavior.Commands) behavior.Commands {
	return stopSlider(cmd)
}

func (m *MultiSampleVision) Finished() bool {
	return m.state == sampleScore && !m.fresh &&
		m.env.State.Latest().Slider.Velocity == 0 &&
		m.env.now().Sub(m.entered) > m.env.Config.SampleDwell
}

// Samples returns the raw vision readings taken so far, in slider order.
func (m *MultiSampleVision) Samples() [3]float64 { return m.samples }

// Setpoint returns the slider position currently commanded.
func (m *MultiSampleVision) Setpoint() float64 { return m.setpoint }

func (m *MultiSampleVision) RequiredSubsystems() subsystem.Set { return sliderAndSpatula }

func (m *MultiSampleVision) Name() string { return "MultiSampleVision" }
