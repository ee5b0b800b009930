package behavior

import (
	"slices"

	"github.com/teslashibe/go-drivetrain/pkg/drive"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
)

// Commands is the per-tick record of what every subsystem should do.
//
// Commands is passed and returned by value. The only reference field is
// WantedRoutines; use Request to append so a routine never writes into a
// backing array another holder of the record can see.
type Commands struct {
	WantedDrive drive.State
	robot.Mechanisms

	// Open-loop drive power for OpenLoop and Manual.
	DrivePower    robot.Signal
	HasDrivePower bool

	// Routines requested this tick, admitted on the next.
	WantedRoutines []Routine

	// Cancels every running routine at the end of the tick.
	CancelCurrentRoutines bool
}

// NewCommands returns a record with every subsystem idle.
func NewCommands() Commands {
	return Commands{
		WantedDrive: drive.Neutral,
		Mechanisms: robot.Mechanisms{
			Slider:  robot.SliderIdle,
			Spatula: robot.SpatulaUp,
			Intake:  robot.IntakeIdle,
			Climber: robot.ClimberIdle,
		},
	}
}

// Copy returns a record that shares no memory with c.
func (c Commands) Copy() Commands {
	c.WantedRoutines = slices.Clone(c.WantedRoutines)
	return c
}

// Request returns c with r appended to the wanted routines.
func (c Commands) Request(r Routine) Commands {
	c.WantedRoutines = append(slices.Clip(c.WantedRoutines), r)
	return c
}

// WithDrivePower returns c requesting open-loop power sig.
func (c Commands) WithDrivePower(sig robot.Signal) Commands {
	c.DrivePower = sig
	c.HasDrivePower = true
	return c
}

// OpenLoop returns the requested open-loop power, or nil.
func (c Commands) OpenLoop() *robot.Signal {
	if !c.HasDrivePower {
		return nil
	}
	sig := c.DrivePower
	return &sig
}
