package robot

// SliderState is the wanted or reported mode of the gear slider.
type SliderState int

const (
	SliderIdle SliderState = iota
	SliderWaiting
	SliderAutomaticPositioning
	SliderCustomPositioning
	SliderManual
)

func (s SliderState) String() string {
	switch s {
	case SliderIdle:
		return "idle"
	case SliderWaiting:
		return "waiting"
	case SliderAutomaticPositioning:
		return "automatic_positioning"
	case SliderCustomPositioning:
		return "custom_positioning"
	case SliderManual:
		return "manual"
	}
	return "unknown"
}

// SliderTarget is a named slider position.
type SliderTarget int

const (
	SliderTargetNone SliderTarget = iota
	SliderTargetLeft
	SliderTargetCenter
	SliderTargetRight
	SliderTargetCustom
)

func (t SliderTarget) String() string {
	switch t {
	case SliderTargetNone:
		return "none"
	case SliderTargetLeft:
		return "left"
	case SliderTargetCenter:
		return "center"
	case SliderTargetRight:
		return "right"
	case SliderTargetCustom:
		return "custom"
	}
	return "unknown"
}

// SpatulaState is the position of the gear spatula.
type SpatulaState int

const (
	SpatulaUp SpatulaState = iota
	SpatulaDown
)

func (s SpatulaState) String() string {
	if s == SpatulaDown {
		return "down"
	}
	return "up"
}

// IntakeState is the wanted intake roller behaviour.
type IntakeState int

const (
	IntakeIdle IntakeState = iota
	IntakeIntake
	IntakeExpel
)

func (s IntakeState) String() string {
	switch s {
	case IntakeIntake:
		return "intake"
	case IntakeExpel:
		return "expel"
	}
	return "idle"
}

// ClimberState is the wanted climber behaviour.
type ClimberState int

const (
	ClimberIdle ClimberState = iota
	ClimberClimbing
)

func (s ClimberState) String() string {
	if s == ClimberClimbing {
		return "climbing"
	}
	return "idle"
}

// Preset slider positions, in inches from centre.
const (
	SliderLeftInches   = -7.0
	SliderCenterInches = 0.0
	SliderRightInches  = 7.0
)

// Inches returns the slider position for a preset target. Custom and None
// report false.
func (t SliderTarget) Inches() (float64, bool) {
	switch t {
	case SliderTargetLeft:
		return SliderLeftInches, true
	case SliderTargetCenter:
		return SliderCenterInches, true
	case SliderTargetRight:
		return SliderRightInches, true
	}
	return 0, false
}

// Mechanisms is the wanted state of every non-drive mechanism for a tick.
type Mechanisms struct {
	Slider         SliderState  `json:"slider"`
	SliderTarget   SliderTarget `json:"slider_target"`
	SliderSetpoint float64      `json:"slider_setpoint"` // inches, for SliderTargetCustom
	Spatula        SpatulaState `json:"spatula"`
	Intake         IntakeState  `json:"intake"`
	Climber        ClimberState `json:"climber"`
}

// SliderGoal resolves the slider target to inches. ok is false when the
// slider has nowhere to go.
func (m Mechanisms) SliderGoal() (inches float64, ok bool) {
	if m.SliderTarget == SliderTargetCustom {
		return m.SliderSetpoint, true
	}
	return m.SliderTarget.Inches()
}
