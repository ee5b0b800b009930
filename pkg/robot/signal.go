package robot

// ControlMode selects how a motor controller interprets its setpoint.
type ControlMode int

const (
	PercentOutput ControlMode = iota
	Voltage
	Position
	Velocity
	MotionMagic
	Disabled
)

func (m ControlMode) String() string {
	switch m {
	case PercentOutput:
		return "percent"
	case Voltage:
		return "voltage"
	case Position:
		return "position"
	case Velocity:
		return "velocity"
	case MotionMagic:
		return "motion_magic"
	case Disabled:
		return "disabled"
	}
	return "unknown"
}

// ClosedLoop reports whether the motor controller runs its own feedback loop
// in this mode.
func (m ControlMode) ClosedLoop() bool {
	return m == Position || m == Velocity || m == MotionMagic
}

// Gains are the closed-loop constants loaded into a motor controller slot.
type Gains struct {
	P     float64 `json:"p"`
	I     float64 `json:"i"`
	D     float64 `json:"d"`
	F     float64 `json:"f"`
	IZone float64 `json:"izone"`
	Ramp  float64 `json:"ramp,omitempty"`
}

// Output describes what one side of the drivetrain should do this tick.
// Gains apply to Position, Velocity and MotionMagic; the cruise and
// acceleration limits only to MotionMagic.
type Output struct {
	Mode           ControlMode `json:"mode"`
	Setpoint       float64     `json:"setpoint"`
	Gains          Gains       `json:"gains"`
	CruiseVelocity float64     `json:"cruise_velocity,omitempty"`
	Acceleration   float64     `json:"acceleration,omitempty"`
}

// PercentOutputOf returns an open-loop output in [-1, 1].
func PercentOutputOf(v float64) Output {
	return Output{Mode: PercentOutput, Setpoint: v}
}

// VoltageOutput returns an open-loop output in volts.
func VoltageOutput(v float64) Output {
	return Output{Mode: Voltage, Setpoint: v}
}

// PositionOutput returns a closed-loop position output in ticks.
func PositionOutput(setpoint float64, g Gains) Output {
	return Output{Mode: Position, Setpoint: setpoint, Gains: g}
}

// VelocityOutput returns a closed-loop velocity output in native units.
func VelocityOutput(setpoint float64, g Gains) Output {
	return Output{Mode: Velocity, Setpoint: setpoint, Gains: g}
}

// MotionMagicOutput returns a profiled position output.
func MotionMagicOutput(setpoint float64, g Gains, cruise, accel float64) Output {
	return Output{Mode: MotionMagic, Setpoint: setpoint, Gains: g, CruiseVelocity: cruise, Acceleration: accel}
}

// SameSetpoint reports whether o and other agree on mode and setpoint.
func (o Output) SameSetpoint(other Output) bool {
	return o.Mode == other.Mode && o.Setpoint == other.Setpoint
}

// Matches reports whether reported motor feedback shows o installed.
func (o Output) Matches(fb Feedback) bool {
	return o.Mode == fb.Mode && o.Setpoint == fb.Setpoint
}

// Offset returns a copy of o with delta added to position-like setpoints.
// Open-loop and velocity outputs are returned unchanged.
func (o Output) Offset(delta float64) Output {
	if o.Mode == Position || o.Mode == MotionMagic {
		o.Setpoint += delta
	}
	return o
}

// Signal is the pair of per-side outputs handed to the actuation layer.
type Signal struct {
	Left  Output `json:"left"`
	Right Output `json:"right"`
}

// Neutral returns zero percent output on both sides.
func Neutral() Signal {
	return Signal{Left: PercentOutputOf(0), Right: PercentOutputOf(0)}
}

// Percent returns an open-loop signal.
func Percent(left, right float64) Signal {
	return Signal{Left: PercentOutputOf(left), Right: PercentOutputOf(right)}
}

// IsNeutral reports whether s commands zero open-loop output on both sides.
func (s Signal) IsNeutral() bool {
	return s.Left.Mode == PercentOutput && s.Left.Setpoint == 0 &&
		s.Right.Mode == PercentOutput && s.Right.Setpoint == 0
}
