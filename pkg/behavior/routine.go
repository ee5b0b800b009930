// Package behavior schedules routines, the composable units of timed robot
// behaviour, against the subsystems they drive.
//
// Routines are cooperative: nothing here blocks. Waiting is state held
// across ticks.
package behavior

import (
	"strings"

	"github.com/teslashibe/go-drivetrain/pkg/subsystem"
)

// Routine is one unit of behaviour.
//
// Start is called once when the routine is admitted. Update is called once
// per tick while the routine runs and returns the record with this
// routine's wanted states applied. Cancel is called exactly once when the
// routine is removed, for any reason, and must leave its subsystems idle.
// Finished is a pure query. RequiredSubsystems lists every subsystem the
// routine writes to.
type Routine interface {
	Start()
	Update(cmd Commands) Commands
	Cancel(cmd Commands) Commands
	Finished() bool
	RequiredSubsystems() subsystem.Set
	Name() string
}

// requirements is the union of the children's subsystem sets.
func requirements(children []Routine) subsystem.Set {
	var s subsystem.Set
	for _, c := range children {
		s = s.Union(c.RequiredSubsystems())
	}
	return s
}

func compoundName(kind string, children []Routine) string {
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name()
	}
	return kind + "(" + strings.Join(names, ", ") + ")"
}
