package drive

import (
	"math"
	"time"

	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/trajectory"
)

// Tolerances bound what counts as "on target".
type Tolerances struct {
	Position        float64 // encoder ticks
	Velocity        float64 // inches per second
	Heading         float64 // degrees
	HeadingVelocity float64 // degrees per second
	EncoderZero     float64 // ticks, after a sensor reset
	GyroZero        float64 // degrees, after a sensor reset
}

// PID configures one onboard PID loop. I and D are per second; the loop is
// stepped with the control period as dt. Limit bounds the output
// symmetrically.
type PID struct {
	P, I, D float64
	Limit   float64
}

// Profile is a motion-magic gain set. Cruise and acceleration are in inches
// per second and inches per second squared.
type Profile struct {
	CruiseVelocity float64
	Acceleration   float64
	Gains          robot.Gains
}

// Config holds the drivetrain geometry and tuning every controller shares.
type Config struct {
	TicksPerInch     float64
	TrackWidthInches float64

	// Period is the control loop period, used as dt by onboard PID loops.
	Period time.Duration

	Tolerances Tolerances

	BangBangPower float64
	Forward       PID
	Heading       PID

	Short Profile
	Long  Profile
	Turn  Profile

	Trajectory trajectory.Gains
}

// DefaultConfig returns tuning for a 4 inch wheel, 1440 count encoder, 25.5
// inch track drivetrain running at 50Hz.
func DefaultConfig() Config {
	can := robot.Gains{P: 4.5, I: 0.01, D: 150, F: 2.0, IZone: 50}
	return Config{
		TicksPerInch:     1440 / (4 * math.Pi),
		TrackWidthInches: 25.5,
		Period:           20 * time.Millisecond,
		Tolerances: Tolerances{
			Position:        25,
			Velocity:        1.0,
			Heading:         1.5,
			HeadingVelocity: 0.5,
			EncoderZero:     10,
			GyroZero:        0.5,
		},
		BangBangPower: 0.2,
		Forward:       PID{P: 0.00035, I: 0, D: 0.00004, Limit: 1},
		Heading:       PID{P: 0.02, I: 0, D: 0.0001, Limit: 0.2},
		Short:         Profile{CruiseVelocity: 36, Acceleration: 36, Gains: can},
		Long:          Profile{CruiseVelocity: 120, Acceleration: 60, Gains: can},
		Turn: Profile{CruiseVelocity: 72, Acceleration: 36,
			Gains: robot.Gains{P: 6, I: 0.01, D: 210, F: 2, IZone: 50}},
		Trajectory: trajectory.Gains{P: 0.05, D: 0, V: 1.0 / 120, A: 0.001, TurnP: 0.01, TurnD: 0},
	}
}

// InchesPerDegree is the distance each side travels when the robot turns
// one degree in place.
func (c Config) InchesPerDegree() float64 {
	return math.Pi * c.TrackWidthInches / 360
}

// InchesToTicks converts a linear distance to encoder ticks.
func (c Config) InchesToTicks(in float64) float64 { return in * c.TicksPerInch }

// TicksToInches converts encoder ticks to inches.
func (c Config) TicksToInches(ticks float64) float64 { return ticks / c.TicksPerInch }

// DegreesToTicks converts an in-place turn angle to per-side encoder ticks.
func (c Config) DegreesToTicks(deg float64) float64 {
	return deg * c.InchesPerDegree() * c.TicksPerInch
}

// NativeSpeed converts inches per second to ticks per 100ms.
func (c Config) NativeSpeed(ips float64) float64 {
	return ips * c.TicksPerInch / 10
}

// MotionMagic builds a profiled output to setpoint ticks using p.
func (c Config) MotionMagic(p Profile, setpoint float64) robot.Output {
	return robot.MotionMagicOutput(setpoint, p.Gains, c.NativeSpeed(p.CruiseVelocity), c.NativeSpeed(p.Acceleration))
}

// ProfileNamed returns the "short", "long" or "turn" motion profile.
func (c Config) ProfileNamed(name string) (Profile, bool) {
	switch name {
	case "short":
		return c.Short, true
	case "long":
		return c.Long, true
	case "turn":
		return c.Turn, true
	}
	return Profile{}, false
}
