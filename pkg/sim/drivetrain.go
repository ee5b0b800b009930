// Package sim is a deterministic kinematic model of the robot. It implements
// the robot hardware interfaces so the control stack can run without a robot.
//
// Each side responds to its output instantly in open-loop modes and follows
// a trapezoidal profile in position modes. Heading is integrated from the
// distance difference between the sides.
package sim

import (
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-drivetrain/pkg/robot"
)

// Geometry describes the simulated drivetrain.
type Geometry struct {
	TicksPerInch     float64
	TrackWidthInches float64
	MaxSpeed         float64 // inches per second at full output

	SliderTicksPerInch float64
	SliderSpeed        float64 // inches per second
}

// DefaultGeometry matches drive.DefaultConfig.
func DefaultGeometry() Geometry {
	return Geometry{
		TicksPerInch:       1440 / (4 * math.Pi),
		TrackWidthInches:   25.5,
		MaxSpeed:           120,
		SliderTicksPerInch: 20,
		SliderSpeed:        10,
	}
}

type side struct {
	pos float64 // ticks
	vel float64 // inches per second
}

// Robot is a simulated robot. It is safe for concurrent use.
type Robot struct {
	geo Geometry

	mu         sync.Mutex
	left       side
	right      side
	heading    float64 // degrees
	headingVel float64
	signal     robot.Signal
	gyroBroken bool

	mech      robot.Mechanisms
	slider    float64 // inches
	sliderVel float64
	spatula   robot.SpatulaState

	driveWrites uint64
}

// New returns a robot at rest at the origin.
func New(geo Geometry) *Robot {
	return &Robot{geo: geo, signal: robot.Neutral()}
}

var _ robot.Hardware = (*Robot)(nil)

// ReadState reports the current simulated sensor state.
func (r *Robot) ReadState() (robot.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked(), nil
}

func (r *Robot) stateLocked() robot.State {
	tpi := r.geo.TicksPerInch
	p := robot.Pose{
		LeftEnc:          r.left.pos,
		LeftEncVelocity:  r.left.vel * tpi / 10,
		LeftSpeed:        r.left.vel,
		RightEnc:         r.right.pos,
		RightEncVelocity: r.right.vel * tpi / 10,
		RightSpeed:       r.right.vel,
		Heading:          r.heading,
		HeadingVelocity:  r.headingVel,
	}
	if r.gyroBroken {
		p.Heading = math.Copysign(0, -1)
		p.HeadingVelocity = 0
	}
	if r.signal.Left.Mode.ClosedLoop() && r.signal.Right.Mode.ClosedLoop() {
		p = p.WithClosedLoopError(closedLoopError(r.signal.Left, r.left, tpi), closedLoopError(r.signal.Right, r.right, tpi))
	}

	goal, hasGoal := r.mech.SliderGoal()
	return robot.State{
		Pose:          p,
		LeftFeedback:  robot.Feedback{Mode: r.signal.Left.Mode, Setpoint: r.signal.Left.Setpoint},
		RightFeedback: robot.Feedback{Mode: r.signal.Right.Mode, Setpoint: r.signal.Right.Setpoint},
		Slider: robot.SliderFeedback{
			Encoder:    r.slider * r.geo.SliderTicksPerInch,
			Velocity:   r.sliderVel,
			OnTarget:   hasGoal && r.sliderPositioning() && math.Abs(goal-r.slider) < 0.05,
			ClosedLoop: r.sliderPositioning(),
			State:      r.mech.Slider,
		},
		Spatula: r.spatula,
	}
}

func closedLoopError(out robot.Output, s side, tpi float64) float64 {
	if out.Mode == robot.Velocity {
		return out.Setpoint - s.vel*tpi/10
	}
	return out.Setpoint - s.pos
}

// SetDriveSignal latches sig until the next call.
func (r *Robot) SetDriveSignal(sig robot.Signal) error {
	r.mu.Lock()
	r.signal = sig
	r.driveWrites++
	r.mu.Unlock()
	return nil
}

// SetMechanisms latches the wanted mechanism states. The spatula moves
// immediately.
func (r *Robot) SetMechanisms(m robot.Mechanisms) error {
	r.mu.Lock()
	r.mech = m
	r.spatula = m.Spatula
	r.mu.Unlock()
	return nil
}

// ResetDriveSensors zeroes both encoders and the gyro.
func (r *Robot) ResetDriveSensors() error {
	r.mu.Lock()
	r.left.pos, r.right.pos = 0, 0
	r.heading = 0
	r.mu.Unlock()
	return nil
}

// ResetSliderEncoder zeroes the slider position.
func (r *Robot) ResetSliderEncoder() error {
	r.mu.Lock()
	r.slider = 0
	r.mu.Unlock()
	return nil
}

// BreakGyro makes the gyro report negative zero, as a disconnected IMU does.
func (r *Robot) BreakGyro(broken bool) {
	r.mu.Lock()
	r.gyroBroken = broken
	r.mu.Unlock()
}

// Place teleports the robot. Velocities are zeroed.
func (r *Robot) Place(leftEnc, rightEnc, heading float64) {
	r.mu.Lock()
	r.left = side{pos: leftEnc}
	r.right = side{pos: rightEnc}
	r.heading = heading
	r.headingVel = 0
	r.mu.Unlock()
}

// PlaceSlider teleports the slider to inches.
func (r *Robot) PlaceSlider(inches float64) {
	r.mu.Lock()
	r.slider = inches
	r.sliderVel = 0
	r.mu.Unlock()
}

// DriveWrites returns how many signals have been written.
func (r *Robot) DriveWrites() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.driveWrites
}

// Step advances the model by dt.
func (r *Robot) Step(dt time.Duration) {
	s := dt.Seconds()
	if s <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	prevL, prevR := r.left.pos, r.right.pos
	r.left = r.stepSide(r.left, r.signal.Left, s)
	r.right = r.stepSide(r.right, r.signal.Right, s)

	dl := (r.left.pos - prevL) / r.geo.TicksPerInch
	dr := (r.right.pos - prevR) / r.geo.TicksPerInch
	turned := (dl - dr) / r.geo.TrackWidthInches * 180 / math.Pi
	r.heading += turned
	r.headingVel = turned / s

	r.stepSlider(s)
}

func (r *Robot) stepSide(sd side, out robot.Output, dt float64) side {
	tpi := r.geo.TicksPerInch
	switch out.Mode {
	case robot.PercentOutput:
		sd.vel = clamp(out.Setpoint, -1, 1) * r.geo.MaxSpeed
	case robot.Voltage:
		sd.vel = clamp(out.Setpoint/12, -1, 1) * r.geo.MaxSpeed
	case robot.Velocity:
		sd.vel = clamp(out.Setpoint*10/tpi, -r.geo.MaxSpeed, r.geo.MaxSpeed)
	case robot.Position:
		return r.profile(sd, out.Setpoint, r.geo.MaxSpeed, math.Inf(1), dt)
	case robot.MotionMagic:
		cruise := math.Min(out.CruiseVelocity*10/tpi, r.geo.MaxSpeed)
		accel := out.Acceleration * 10 / tpi
		if cruise <= 0 {
			cruise = r.geo.MaxSpeed
		}
		if accel <= 0 {
			accel = math.Inf(1)
		}
		return r.profile(sd, out.Setpoint, cruise, accel, dt)
	default:
		sd.vel = 0
	}
	sd.pos += sd.vel * dt * tpi
	return sd
}

// profile moves sd toward setpoint ticks under cruise and acceleration
// limits, arriving with zero velocity.
func (r *Robot) profile(sd side, setpoint, cruise, accel, dt float64) side {
	tpi := r.geo.TicksPerInch
	remaining := (setpoint - sd.pos) / tpi
	dir := 1.0
	if remaining < 0 {
		dir = -1
	}
	want := dir * math.Min(cruise, math.Sqrt(2*accel*math.Abs(remaining)))
	if !math.IsInf(accel, 1) {
		maxDelta := accel * dt
		want = clamp(want, sd.vel-maxDelta, sd.vel+maxDelta)
	}
	step := want * dt
	if math.Abs(remaining) <= math.Abs(step) || math.Abs(remaining)*tpi < 0.5 {
		return side{pos: setpoint}
	}
	sd.vel = want
	sd.pos += step * tpi
	return sd
}

func (r *Robot) sliderPositioning() bool {
	return r.mech.Slider == robot.SliderAutomaticPositioning || r.mech.Slider == robot.SliderCustomPositioning
}

func (r *Robot) stepSlider(dt float64) {
	goal, ok := r.mech.SliderGoal()
	if !ok || !r.sliderPositioning() {
		r.sliderVel = 0
		return
	}
	remaining := goal - r.slider
	step := r.geo.SliderSpeed * dt
	if math.Abs(remaining) <= step {
		r.slider = goal
		r.sliderVel = 0
		return
	}
	if remaining < 0 {
		step = -step
	}
	r.slider += step
	r.sliderVel = step / dt
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
