package routines

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/drive"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/subsystem"
	"github.com/teslashibe/go-drivetrain/pkg/trajectory"
)

var driveOnly = subsystem.Of(subsystem.Drive)

// goNeutral discards the installed controller and asks for neutral output.
func goNeutral(env Env, cmd behavior.Commands) behavior.Commands {
	env.Drive.SetNeutral()
	cmd.WantedDrive = drive.Neutral
	cmd.HasDrivePower = false
	return cmd
}

type stage int

const (
	stageStart stage = iota
	stageRunning
	stageTimedOut
	stageDone
)

// Move is a drive-to-setpoint routine. Its first update installs a
// controller; later updates poll it until it is on target or the optional
// time limit runs out.
type Move struct {
	env     Env
	name    string
	mode    drive.State
	install func(d *drive.Drive)
	stage   stage
	limit   deadline
	expired bool
}

func newMove(env Env, name string, mode drive.State, install func(*drive.Drive), o options) *Move {
	return &Move{
		env:     env,
		name:    name,
		mode:    mode,
		install: install,
		limit:   deadline{clock: env.Clock, limit: o.timeout},
	}
}

// NewDriveStraight drives inches forward on the heading held at install.
func NewDriveStraight(env Env, inches float64, opts ...Option) *Move {
	return newMove(env, fmt.Sprintf("DriveStraight(%gin)", inches), drive.OnBoardController,
		func(d *drive.Drive) { d.SetDriveStraight(inches) }, applyOptions(opts))
}

// NewBangBangTurn turns degrees clockwise at constant power. It is bounded
// by Config.BangBangTimeout unless WithTimeout says otherwise.
func NewBangBangTurn(env Env, degrees float64, opts ...Option) *Move {
	o := options{timeout: env.Config.BangBangTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return newMove(env, fmt.Sprintf("BangBangTurn(%g)", degrees), drive.OnBoardController,
		func(d *drive.Drive) { d.SetBangBangTurnAngle(degrees) }, o)
}

// NewEncoderTurn turns degrees using fixed motion-magic encoder setpoints.
func NewEncoderTurn(env Env, degrees float64, opts ...Option) *Move {
	return newMove(env, fmt.Sprintf("EncoderTurn(%g)", degrees), drive.OffBoardController,
		func(d *drive.Drive) { d.SetEncoderTurnAngle(degrees) }, applyOptions(opts))
}

// NewGyroTurn turns degrees, correcting the encoder setpoints from the gyro
// every tick.
func NewGyroTurn(env Env, degrees float64, opts ...Option) *Move {
	return newMove(env, fmt.Sprintf("GyroTurn(%g)", degrees), drive.OffBoardController,
		func(d *drive.Drive) { d.SetGyroTurnAngle(degrees) }, applyOptions(opts))
}

// NewDrivePath follows path. A nil path finishes on its second update.
func NewDrivePath(env Env, path *trajectory.Path, gains trajectory.Gains, useGyro, inverted bool, opts ...Option) *Move {
	name := "DrivePath(nil)"
	if path != nil {
		name = fmt.Sprintf("DrivePath(%s)", path.Name)
	}
	return newMove(env, name, drive.OnBoardController,
		func(d *drive.Drive) { d.SetTrajectory(path, gains, useGyro, inverted) }, applyOptions(opts))
}

func (m *Move) Start() {
	m.stage = stageStart
	m.limit.arm()
}

func (m *Move) Update(cmd behavior.Commands) behavior.Commands {
	cmd.WantedDrive = m.mode
	switch m.stage {
	case stageStart:
		m.install(m.env.Drive)
		m.stage = stageRunning
	case stageRunning:
		switch {
		case m.env.Drive.OnTarget():
			m.env.Drive.ResetController()
			cmd.WantedDrive = drive.Neutral
			m.stage = stageDone
		case m.limit.expired():
			m.env.logger().Warn("drive routine timed out", "routine", m.name, "after", m.limit.limit)
			cmd = goNeutral(m.env, cmd)
			m.expired = true
			m.stage = stageTimedOut
		}
	case stageTimedOut:
		cmd.WantedDrive = drive.Neutral
		m.stage = stageDone
	case stageDone:
		cmd.WantedDrive = drive.Neutral
	}
	return cmd
}

func (m *Move) Cancel(cmd behavior.Commands) behavior.Commands {
	return goNeutral(m.env, cmd)
}

func (m *Move) Finished() bool { return m.stage == stageDone }

// TimedOut reports whether the time limit ended the move.
func (m *Move) TimedOut() bool { return m.expired }

func (m *Move) RequiredSubsystems() subsystem.Set { return driveOnly }

func (m *Move) Name() string { return m.name }

// SafetyTurn picks its turn when it starts: an encoder turn when the gyro
// reads the broken-sensor value, a bang-bang turn otherwise.
type SafetyTurn struct {
	env     Env
	degrees float64
	opts    []Option
	inner   *Move
}

// NewSafetyTurn returns a turn of degrees that survives a dead gyro.
func NewSafetyTurn(env Env, degrees float64, opts ...Option) *SafetyTurn {
	return &SafetyTurn{env: env, degrees: degrees, opts: opts}
}

func (s *SafetyTurn) Start() {
	if s.env.Drive.Pose().GyroBroken() {
		s.env.logger().Warn("gyro broken, turning on encoders", "degrees", s.degrees)
		s.inner = NewEncoderTurn(s.env, s.degrees, s.opts...)
	} else {
		s.inner = NewBangBangTurn(s.env, s.degrees, s.opts...)
	}
	s.inner.Start()
}

func (s *SafetyTurn) Update(cmd behavior.Commands) behavior.Commands {
	if s.inner == nil {
		return cmd
	}
	return s.inner.Update(cmd)
}

func (s *SafetyTurn) Cancel(cmd behavior.Commands) behavior.Commands {
	return goNeutral(s.env, cmd)
}

func (s *SafetyTurn) Finished() bool { return s.inner != nil && s.inner.Finished() }

func (s *SafetyTurn) RequiredSubsystems() subsystem.Set { return driveOnly }

func (s *SafetyTurn) Name() string {
	if s.inner == nil {
		return fmt.Sprintf("SafetyTurn(%g)", s.degrees)
	}
	return "SafetyTurn:" + s.inner.Name()
}

// ChosenTurn returns the turn picked at start, or nil before then.
func (s *SafetyTurn) ChosenTurn() *Move { return s.inner }

// DriveTime drives at fixed open-loop power for a fixed time.
type DriveTime struct {
	env     Env
	wait    time.Duration
	power   robot.Signal
	end     time.Time
	started bool
}

// NewDriveTime returns a routine driving power for d.
func NewDriveTime(env Env, d time.Duration, power robot.Signal) *DriveTime {
	return &DriveTime{env: env, wait: d, power: power}
}

func (t *DriveTime) Start() {
	t.env.Drive.ResetController()
	t.end = t.env.now().Add(t.wait)
	t.started = true
}

func (t *DriveTime) Update(cmd behavior.Commands) behavior.Commands {
	cmd.WantedDrive = drive.OpenLoop
	return cmd.WithDrivePower(t.power)
}

func (t *DriveTime) Cancel(cmd behavior.Commands) behavior.Commands {
	return goNeutral(t.env, cmd)
}

func (t *DriveTime) Finished() bool {
	return t.started && !t.env.now().Before(t.end)
}

func (t *DriveTime) RequiredSubsystems() subsystem.Set { return driveOnly }

func (t *DriveTime) Name() string {
	return fmt.Sprintf("DriveTime(%s, %g/%g)", t.wait, t.power.Left.Setpoint, t.power.Right.Setpoint)
}

// OffboardDrive hands a signal to the motor controllers and waits for them
// to settle on it. The signal is installed on the first update.
type OffboardDrive struct {
	env       Env
	name      string
	signal    robot.Signal
	relative  bool
	installed robot.Signal
	sent      bool
	limit     deadline
}

// NewOffboardDrive returns a routine installing sig. When relative is set,
// position and motion-magic setpoints are offset by the encoder readings at
// install. A zero timeout never expires.
func NewOffboardDrive(env Env, sig robot.Signal, relative bool, timeout time.Duration) *OffboardDrive {
	return &OffboardDrive{
		env:      env,
		name:     "OffboardDrive",
		signal:   sig,
		relative: relative,
		limit:    deadline{clock: env.Clock, limit: timeout},
	}
}

// NewMotionMagicDrive drives inches forward from the current position with
// the cruise and acceleration of the named drive profile.
func NewMotionMagicDrive(env Env, inches float64, profile string, timeout time.Duration) (*OffboardDrive, error) {
	cfg := env.Drive.Config()
	p, ok := cfg.ProfileNamed(profile)
	if !ok {
		return nil, fmt.Errorf("routines: unknown drive profile %q", profile)
	}
	out := cfg.MotionMagic(p, cfg.InchesToTicks(inches))
	o := NewOffboardDrive(env, robot.Signal{Left: out, Right: out}, true, timeout)
	o.name = fmt.Sprintf("MotionMagicDrive(%gin, %s)", inches, profile)
	return o, nil
}

func (o *OffboardDrive) Start() {
	o.sent = false
	o.installed = robot.Signal{}
	o.limit.arm()
}

func (o *OffboardDrive) Update(cmd behavior.Commands) behavior.Commands {
	if !o.sent {
		sig := o.signal
		if o.relative {
			p := o.env.Drive.Pose()
			sig.Left = sig.Left.Offset(p.LeftEnc)
			sig.Right = sig.Right.Offset(p.RightEnc)
		}
		o.installed = sig
		o.env.Drive.SetOffboardSignal(sig)
		o.sent = true
	}
	cmd.WantedDrive = drive.OffBoardController
	return cmd
}

func (o *OffboardDrive) Cancel(cmd behavior.Commands) behavior.Commands {
	return goNeutral(o.env, cmd)
}

// Finished waits for the hardware to report the installed setpoint before
// trusting the controller. The time limit applies regardless.
func (o *OffboardDrive) Finished() bool {
	if o.limit.expired() {
		return true
	}
	if !o.sent || !o.env.State.Latest().DriveInstalled(o.installed) {
		return false
	}
	d := o.env.Drive
	return !d.HasController() || (d.ControllerReportsClosedLoopError() && d.OnTarget())
}

// Installed returns the signal sent on the first update.
func (o *OffboardDrive) Installed() robot.Signal { return o.installed }

func (o *OffboardDrive) RequiredSubsystems() subsystem.Set { return driveOnly }

func (o *OffboardDrive) Name() string { return o.name }

// DriveSensorReset zeroes the encoders and gyro and waits for the readings
// to come back near zero.
type DriveSensorReset struct {
	env   Env
	limit deadline
}

// NewDriveSensorReset returns a reset bounded by Config.SensorResetTimeout.
func NewDriveSensorReset(env Env) *DriveSensorReset {
	return &DriveSensorReset{env: env, limit: deadline{clock: env.Clock, limit: env.Config.SensorResetTimeout}}
}

func (r *DriveSensorReset) Start() {
	if err := r.env.Sensors.ResetDriveSensors(); err != nil {
		r.env.logger().Warn("drive sensor reset failed", "error", err)
	}
	r.limit.arm()
}

func (r *DriveSensorReset) Update(cmd behavior.Commands) behavior.Commands { return cmd }

func (r *DriveSensorReset) Cancel(cmd behavior.Commands) behavior.Commands { return cmd }

func (r *DriveSensorReset) Finished() bool {
	if r.limit.expired() {
		return true
	}
	tol := r.env.Drive.Config().Tolerances
	p := r.env.Drive.Pose()
	return abs(p.LeftEnc) < tol.EncoderZero &&
		abs(p.RightEnc) < tol.EncoderZero &&
		abs(p.Heading) < tol.GyroZero
}

func (r *DriveSensorReset) RequiredSubsystems() subsystem.Set { return driveOnly }

func (r *DriveSensorReset) Name() string { return "DriveSensorReset" }

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
