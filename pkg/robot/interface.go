// Package robot holds the value types and hardware interfaces that sit
// between the drivetrain core and the hardware adapters.
//
// Interfaces are kept small. Consumers depend only on the ones they use, and
// hardware adapters (or the simulator) implement as many as they can.
package robot

// StateReader polls the hardware for a fresh State.
type StateReader interface {
	ReadState() (State, error)
}

// StateSource returns the most recently published State without touching
// hardware.
type StateSource interface {
	Latest() State
}

// DriveActuator sends a drive signal to the motor controllers.
type DriveActuator interface {
	SetDriveSignal(sig Signal) error
}

// SensorResetter zeroes sensors.
type SensorResetter interface {
	ResetDriveSensors() error
	ResetSliderEncoder() error
}

// VisionSource reports the horizontal offset of the vision target, in
// inches from the slider centre.
type VisionSource interface {
	XDist() float64
}

// Hardware is the composite interface a full hardware adapter provides.
type Hardware interface {
	StateReader
	DriveActuator
	MechanismActuator
	SensorResetter
}

// MechanismActuator applies wanted mechanism states.
type MechanismActuator interface {
	SetMechanisms(m Mechanisms) error
}
