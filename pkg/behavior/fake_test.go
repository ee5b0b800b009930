package behavior

import (
	"fmt"

	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/subsystem"
)

// events is a shared call log across fake routines.
type events struct {
	log []string
}

func (e *events) add(format string, args ...any) {
	e.log = append(e.log, fmt.Sprintf(format, args...))
}

// fakeRoutine finishes after a fixed number of updates. A negative
// finishAfter never finishes; zero is finished from the start.
type fakeRoutine struct {
	name        string
	subsystems  subsystem.Set
	finishAfter int
	ev          *events

	starts, updates, cancels int
	onUpdate                 func(Commands) Commands
}

func newFake(ev *events, name string, finishAfter int, ids ...subsystem.ID) *fakeRoutine {
	return &fakeRoutine{name: name, subsystems: subsystem.Of(ids...), finishAfter: finishAfter, ev: ev}
}

func (f *fakeRoutine) Start() {
	f.starts++
	f.ev.add("%s.start", f.name)
}

func (f *fakeRoutine) Update(cmd Commands) Commands {
	f.updates++
	f.ev.add("%s.update", f.name)
	if f.onUpdate != nil {
		return f.onUpdate(cmd)
	}
	return cmd
}

func (f *fakeRoutine) Cancel(cmd Commands) Commands {
	f.cancels++
	f.ev.add("%s.cancel", f.name)
	cmd.Intake = robot.IntakeIdle
	return cmd
}

func (f *fakeRoutine) Finished() bool {
	return f.finishAfter >= 0 && f.updates >= f.finishAfter
}

func (f *fakeRoutine) RequiredSubsystems() subsystem.Set { return f.subsystems }

func (f *fakeRoutine) Name() string { return f.name }

// active reports whether f has been started and not yet cancelled.
func (f *fakeRoutine) active() bool { return f.starts > f.cancels }
