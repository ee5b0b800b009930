package routines

import (
	"time"

	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/subsystem"
)

// SpatulaUp raises the spatula and waits for it to get there.
type SpatulaUp struct {
	env     Env
	started time.Time
	updated bool
}

// NewSpatulaUp returns a spatula raise.
func NewSpatulaUp(env Env) *SpatulaUp { return &SpatulaUp{env: env} }

func (s *SpatulaUp) Start() {
	s.started = s.env.now()
	s.updated = false
}

func (s *SpatulaUp) Update(cmd behavior.Commands) behavior.Commands {
	s.updated = true
	cmd.Spatula = robot.SpatulaUp
	return cmd
}

func (s *SpatulaUp) Cancel(cmd behavior.Commands) behavior.Commands { return cmd }

func (s *SpatulaUp) Finished() bool {
	return s.updated && s.env.now().Sub(s.started) > s.env.Config.SpatulaUpTime
}

func (s *SpatulaUp) RequiredSubsystems() subsystem.Set { return subsystem.Of(subsystem.Spatula) }

func (s *SpatulaUp) Name() string { return "SpatulaUp" }

type spatulaDownState int

const (
	centering spatulaDownState = iota
	flipping
)

// SpatulaDownAutocorrect lowers the spatula, centring the slider first so
// the spatula clears it.
type SpatulaDownAutocorrect struct {
	env       Env
	state     spatulaDownState
	started   time.Time
	flippedAt time.Time
	updated   bool
}

// NewSpatulaDownAutocorrect returns a spatula lower.
func NewSpatulaDownAutocorrect(env Env) *SpatulaDownAutocorrect {
	return &SpatulaDownAutocorrect{env: env}
}

func (s *SpatulaDownAutocorrect) Start() {
	s.started = s.env.now()
	s.updated = false
	if abs(s.env.State.Latest().Slider.Encoder) < s.env.Config.SpatulaCenterTicks {
		s.state = flipping
		s.flippedAt = s.started
		return
	}
	s.state = centering
}

func (s *SpatulaDownAutocorrect) Update(cmd behavior.Commands) behavior.Commands {
	s.updated = true
	if s.state == centering {
		cmd.SliderTarget = robot.SliderTargetCenter
		cmd.Slider = robot.SliderAutomaticPositioning
		cmd.Spatula = robot.SpatulaUp
		now := s.env.now()
		if now.Sub(s.started) > s.env.Config.SpatulaCenterSettle && s.env.State.Latest().Slider.Velocity == 0 {
			s.state = flipping
			s.flippedAt = now
		}
		return cmd
	}
	cmd.Spatula = robot.SpatulaDown
	return cmd
}

func (s *SpatulaDownAutocorrect) Cancel(cmd behavior.Commands) behavior.Commands {
	cmd = stopSlider(cmd)
	cmd.Intake = robot.IntakeIdle
	return cmd
}

func (s *SpatulaDownAutocorrect) Finished() bool {
	return s.updated && s.state == flipping && s.env.now().Sub(s.flippedAt) > s.env.Config.SpatulaFlipTime
}

func (s *SpatulaDownAutocorrect) RequiredSubsystems() subsystem.Set {
	return subsystem.Of(subsystem.Slider, subsystem.Spatula, subsystem.Intake)
}

func (s *SpatulaDownAutocorrect) Name() string { return "SpatulaDownAutocorrect" }
