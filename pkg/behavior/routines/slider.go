package routines

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/subsystem"
)

var (
	sliderOnly       = subsystem.Of(subsystem.Slider)
	sliderAndSpatula = subsystem.Of(subsystem.Slider, subsystem.Spatula)
)

// stopSlider idles the slider and forgets its target.
func stopSlider(cmd behavior.Commands) behavior.Commands {
	cmd.Slider = robot.SliderIdle
	cmd.SliderTarget = robot.SliderTargetNone
	cmd.SliderSetpoint = 0
	return cmd
}

type positionState int

const (
	raising positionState = iota
	moving
)

// positioner sequences a slider move behind a spatula raise. The slider may
// only travel with the spatula up.
type positioner struct {
	env     Env
	timing  Positioning
	state   positionState
	started time.Time
	movedAt time.Time
	updated bool
	limit   deadline
}

func (p *positioner) start() {
	s := p.env.State.Latest()
	p.started = p.env.now()
	p.updated = false
	p.limit = deadline{clock: p.env.Clock, limit: p.timing.Timeout}
	p.limit.arm()
	if s.Spatula == robot.SpatulaDown || s.Slider.State == robot.SliderWaiting {
		p.env.logger().Debug("raising spatula before slider move")
		p.state = raising
		p.limit.extend(p.timing.Raise)
		return
	}
	p.state = moving
	p.movedAt = p.started
}

// update writes the raise or move states. It reports whether the slider
// should be positioned this tick.
func (p *positioner) update(cmd behavior.Commands) (behavior.Commands, bool) {
	p.updated = true
	if p.state == raising {
		if p.env.now().Sub(p.started) <= p.timing.Raise {
			cmd.Spatula = robot.SpatulaUp
			cmd.Slider = robot.SliderWaiting
			return cmd, false
		}
		p.state = moving
		p.movedAt = p.env.now()
	}
	return cmd, true
}

// settled reports a finished move: slider stopped on target long enough
// after leaving the raise.
func (p *positioner) settled() bool {
	s := p.env.State.Latest().Slider
	return p.updated && p.state == moving &&
		p.env.now().Sub(p.movedAt) >= p.timing.Settle &&
		s.Velocity == 0 && s.OnTarget
}

// AutocorrectPositioning moves the slider to a preset, raising the spatula
// first when it is down.
type AutocorrectPositioning struct {
	positioner
	target robot.SliderTarget
}

// NewAutocorrectPositioning returns a move to target.
func NewAutocorrectPositioning(env Env, target robot.SliderTarget) *AutocorrectPositioning {
	return &AutocorrectPositioning{positioner: positioner{env: env, timing: env.Config.Autocorrect}, target: target}
}

func (a *AutocorrectPositioning) Start() { a.start() }

func (a *AutocorrectPositioning) Update(cmd behavior.Commands) behavior.Commands {
	cmd.SliderTarget = a.target
	cmd, move := a.update(cmd)
	if move {
		cmd.Slider = robot.SliderAutomaticPositioning
	}
	return cmd
}

func (a *AutocorrectPositioning) Cancel(cmd behavior.Commands) behavior.Commands {
	return stopSlider(cmd)
}

func (a *AutocorrectPositioning) Finished() bool {
	return a.limit.expired() || a.settled()
}

func (a *AutocorrectPositioning) RequiredSubsystems() subsystem.Set { return sliderAndSpatula }

func (a *AutocorrectPositioning) Name() string {
	return fmt.Sprintf("AutocorrectPositioning(%s)", a.target)
}

// CustomPositioning moves the slider to an arbitrary position in inches.
type CustomPositioning struct {
	positioner
	inches float64
}

// NewCustomPositioning returns a move to inches from centre.
func NewCustomPositioning(env Env, inches float64) *CustomPositioning {
	return &CustomPositioning{positioner: positioner{env: env, timing: env.Config.Custom}, inches: inches}
}

func (c *CustomPositioning) Start() { c.start() }

func (c *CustomPositioning) Update(cmd behavior.Commands) behavior.Commands {
	cmd.SliderTarget = robot.SliderTargetCustom
	cmd.SliderSetpoint = c.inches
	cmd, move := c.update(cmd)
	if move {
		cmd.Slider = robot.SliderCustomPositioning
	}
	return cmd
}

func (c *CustomPositioning) Cancel(cmd behavior.Commands) behavior.Commands {
	return stopSlider(cmd)
}

// Finished gives up at the time limit even when the slider never reached
// closed loop.
func (c *CustomPositioning) Finished() bool {
	if c.limit.expired() {
		return true
	}
	if !c.env.State.Latest().Slider.ClosedLoop {
		return false
	}
	return c.settled()
}

func (c *CustomPositioning) RequiredSubsystems() subsystem.Set { return sliderAndSpatula }

func (c *CustomPositioning) Name() string { return fmt.Sprintf("CustomPositioning(%gin)", c.inches) }

// ManualSlider hands the slider to the operator. It never finishes on its
// own.
type ManualSlider struct{}

// NewManualSlider returns the teleop slider override.
func NewManualSlider() *ManualSlider { return &ManualSlider{} }

func (*ManualSlider) Start() {}

func (*ManualSlider) Update(cmd behavior.Commands) behavior.Commands {
	cmd.Slider = robot.SliderManual
	return cmd
}

func (*ManualSlider) Cancel(cmd behavior.Commands) behavior.Commands {
	cmd.Slider = robot.SliderIdle
	return cmd
}

func (*ManualSlider) Finished() bool { return false }

func (*ManualSlider) RequiredSubsystems() subsystem.Set { return sliderOnly }

func (*ManualSlider) Name() string { return "ManualSlider" }

// SliderSensorReset zeroes the slider encoder and finishes immediately.
type SliderSensorReset struct {
	env Env
}

// NewSliderSensorReset returns an instant slider encoder reset.
func NewSliderSensorReset(env Env) *SliderSensorReset { return &SliderSensorReset{env: env} }

func (r *SliderSensorReset) Start() {
	if err := r.env.Sensors.ResetSliderEncoder(); err != nil {
		r.env.logger().Warn("slider encoder reset failed", "error", err)
	}
}

func (r *SliderSensorReset) Update(cmd behavior.Commands) behavior.Commands { return cmd }

func (r *SliderSensorReset) Cancel(cmd behavior.Commands) behavior.Commands { return cmd }

func (r *SliderSensorReset) Finished() bool { return true }

func (r *SliderSensorReset) RequiredSubsystems() subsystem.Set { return sliderOnly }

func (r *SliderSensorReset) Name() string { return "SliderSensorReset" }
