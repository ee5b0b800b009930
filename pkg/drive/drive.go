// Package drive implements the drivetrain controllers and the façade that
// owns which one is installed.
//
// Exactly one controller reaches the motors at a time. Installing a
// controller discards the previous one; it is never updated again.
package drive

import (
	"log/slog"

	"github.com/teslashibe/go-drivetrain/internal/log"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/trajectory"
)

// State is the wanted drive behaviour for a tick.
type State int

const (
	Neutral State = iota
	OpenLoop
	OffBoardController
	OnBoardController
	Manual
)

func (s State) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case OpenLoop:
		return "open_loop"
	case OffBoardController:
		return "off_board_controller"
	case OnBoardController:
		return "on_board_controller"
	case Manual:
		return "manual"
	}
	return "unknown"
}

// Observer is notified of controller changes.
type Observer interface {
	ControllerInstalled(kind string)
}

// Option configures a Drive.
type Option func(*Drive)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Drive) { d.log = l }
}

// WithObserver registers an observer for controller installs.
func WithObserver(o Observer) Option {
	return func(d *Drive) { d.observer = o }
}

// Drive is the drivetrain façade.
type Drive struct {
	cfg      Config
	source   robot.StateSource
	log      *slog.Logger
	observer Observer

	controller Controller
	// fresh marks a controller installed since the last Update.
	fresh  bool
	wanted State
	output robot.Signal
}

// New returns a Drive that reads sensor state from source.
func New(cfg Config, source robot.StateSource, opts ...Option) *Drive {
	d := &Drive{
		cfg:    cfg,
		source: source,
		output: robot.Neutral(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = log.With("component", "drive")
	}
	return d
}

// Config returns the drivetrain configuration.
func (d *Drive) Config() Config { return d.cfg }

// Update computes this tick's signal for the wanted state. openLoop is used
// by OpenLoop and Manual; nil means no power was requested. Entering
// Neutral discards a controller left over from an earlier tick, but keeps
// one installed since the last Update.
func (d *Drive) Update(wanted State, openLoop *robot.Signal) robot.Signal {
	if wanted == Neutral && d.wanted != Neutral && !d.fresh {
		d.ResetController()
	}
	d.wanted = wanted
	d.fresh = false

	switch wanted {
	case OpenLoop, Manual:
		if openLoop != nil {
			d.output = *openLoop
		} else {
			d.output = robot.Neutral()
		}
	case OffBoardController, OnBoardController:
		if d.controller != nil {
			d.output = d.controller.Update(d.source.Latest())
		} else {
			d.output = robot.Neutral()
		}
	default:
		d.output = robot.Neutral()
	}
	return d.output
}

// Output returns the signal computed by the most recent Update.
func (d *Drive) Output() robot.Signal { return d.output }

// Wanted returns the wanted state seen by the most recent Update.
func (d *Drive) Wanted() State { return d.wanted }

// SetController installs c, discarding any previous controller.
func (d *Drive) SetController(c Controller) {
	d.controller = c
	d.fresh = true
	kind := Name(c)
	d.log.Debug("controller installed", "kind", kind)
	if d.observer != nil {
		d.observer.ControllerInstalled(kind)
	}
}

// SetNeutral discards the controller and zeroes the output.
func (d *Drive) SetNeutral() {
	if d.controller != nil {
		d.log.Debug("neutral", "discarded", Name(d.controller))
	}
	d.controller = nil
	d.fresh = false
	d.output = robot.Neutral()
}

// ResetController discards the controller.
func (d *Drive) ResetController() {
	d.controller = nil
	d.fresh = false
}

// Controller returns the installed controller, or nil.
func (d *Drive) Controller() Controller { return d.controller }

// HasController reports whether a controller is installed.
func (d *Drive) HasController() bool { return d.controller != nil }

// OnTarget reports whether the installed controller is on target. It is
// false when no controller is installed.
func (d *Drive) OnTarget() bool {
	return d.controller != nil && d.controller.OnTarget()
}

// ControllerReportsClosedLoopError reports whether the installed controller
// judges completion from motor controller closed-loop error.
func (d *Drive) ControllerReportsClosedLoopError() bool {
	return d.controller != nil && ReportsClosedLoopError(d.controller)
}

// Pose returns the latest sensor snapshot.
func (d *Drive) Pose() robot.Pose { return d.source.Latest().Pose }

// Setpoint returns the installed controller's setpoint, or the zero Pose.
func (d *Drive) Setpoint() robot.Pose {
	if d.controller == nil {
		return robot.Pose{}
	}
	return d.controller.Setpoint()
}

// =============================================================================
// Controller factories. Each captures its baseline from the latest state.
// =============================================================================

// SetBangBangTurnAngle installs a bang-bang turn of angle degrees.
func (d *Drive) SetBangBangTurnAngle(angle float64) {
	d.SetController(NewBangBangTurn(d.cfg, d.source.Latest(), d.cfg.BangBangPower, angle))
}

// SetEncoderTurnAngle installs a motion-magic encoder turn.
func (d *Drive) SetEncoderTurnAngle(angle float64) {
	d.SetController(NewEncoderTurn(d.cfg, d.source.Latest(), angle))
}

// SetGyroTurnAngle installs a gyro-corrected motion-magic turn.
func (d *Drive) SetGyroTurnAngle(angle float64) {
	d.SetController(NewGyroTurn(d.cfg, d.source.Latest(), angle))
}

// SetDriveStraight installs a PID drive of distance inches.
func (d *Drive) SetDriveStraight(distance float64) {
	d.SetController(NewStraight(d.cfg, d.source.Latest(), distance))
}

// SetOffboardSignal installs sig as an offboard controller.
func (d *Drive) SetOffboardSignal(sig robot.Signal) {
	d.SetController(NewOffboard(d.cfg, d.source.Latest(), sig))
}

// SetTrajectory installs a trajectory follower for path.
func (d *Drive) SetTrajectory(path *trajectory.Path, gains trajectory.Gains, useGyro, inverted bool) {
	d.SetController(NewTrajectoryFollowing(d.cfg, d.source.Latest(), path, gains, useGyro, inverted))
}
