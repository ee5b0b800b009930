package robot

import "math"

// Pose is a snapshot of drivetrain sensor state for one tick.
//
// Pose holds no references, so assigning it copies it. Controllers that keep
// a baseline across ticks keep their own copy.
type Pose struct {
	LeftEnc         float64 `json:"left_enc"`          // ticks
	LeftEncVelocity float64 `json:"left_enc_velocity"` // ticks per 100ms
	LeftSpeed       float64 `json:"left_speed"`        // inches per second

	RightEnc         float64 `json:"right_enc"`
	RightEncVelocity float64 `json:"right_enc_velocity"`
	RightSpeed       float64 `json:"right_speed"`

	// Closed-loop errors as reported by the motor controllers. Only
	// meaningful when HasClosedLoopError is set.
	LeftError          float64 `json:"left_error,omitempty"`
	RightError         float64 `json:"right_error,omitempty"`
	HasClosedLoopError bool    `json:"has_closed_loop_error"`

	Heading         float64 `json:"heading"`          // degrees, clockwise positive
	HeadingVelocity float64 `json:"heading_velocity"` // degrees per second
}

// AverageEnc returns the mean of both encoder positions.
func (p Pose) AverageEnc() float64 {
	return (p.LeftEnc + p.RightEnc) / 2
}

// WithClosedLoopError returns a copy of p carrying the given errors.
func (p Pose) WithClosedLoopError(left, right float64) Pose {
	p.LeftError = left
	p.RightError = right
	p.HasClosedLoopError = true
	return p
}

// GyroBroken reports whether the heading is the negative-zero value the IMU
// driver reports when it has lost the sensor.
func (p Pose) GyroBroken() bool {
	return p.Heading == 0 && math.Signbit(p.Heading)
}
