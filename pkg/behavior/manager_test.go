package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-drivetrain/pkg/drive"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/subsystem"
)

type countingRecorder struct {
	admitted, evicted, finished []string
	resets                      []int
}

func (c *countingRecorder) RoutineAdmitted(name string) { c.admitted = append(c.admitted, name) }
func (c *countingRecorder) RoutineEvicted(name string)  { c.evicted = append(c.evicted, name) }
func (c *countingRecorder) RoutineFinished(name string) { c.finished = append(c.finished, name) }
func (c *countingRecorder) RoutinesReset(n int)         { c.resets = append(c.resets, n) }

func TestManagerRejectsNil(t *testing.T) {
	m := NewManager()
	assert.ErrorIs(t, m.Add(nil), ErrNilRoutine)
	assert.Zero(t, m.Pending())
}

func TestManagerIdleTickIsIdentity(t *testing.T) {
	m := NewManager()
	in := NewCommands()
	in.WantedDrive = drive.OpenLoop
	in.Intake = robot.IntakeExpel
	in = in.WithDrivePower(robot.Percent(0.3, 0.3))

	out := m.Tick(in)
	assert.Equal(t, in, out)
	assert.Empty(t, m.Running())
}

func TestManagerAdmitsWithStartAndUpdate(t *testing.T) {
	ev := &events{}
	m := NewManager()
	a := newFake(ev, "a", -1, subsystem.Drive)
	require.NoError(t, m.Add(a))
	assert.Equal(t, 1, m.Pending())

	m.Tick(NewCommands())
	assert.Equal(t, []string{"a.start", "a.update"}, ev.log)
	assert.True(t, m.IsRunning(a))
	assert.Zero(t, m.Pending())

	running := m.Running()
	require.Len(t, running, 1)
	assert.Equal(t, "a", running[0].Name)
	assert.Equal(t, []string{"drive"}, running[0].Subsystems)
	assert.NotEmpty(t, running[0].ID)
}

func TestManagerSameTickConflict(t *testing.T) {
	ev := &events{}
	m := NewManager()
	a := newFake(ev, "a", -1, subsystem.Drive)
	b := newFake(ev, "b", -1, subsystem.Drive)
	require.NoError(t, m.Add(a))
	require.NoError(t, m.Add(b))

	m.Tick(NewCommands())

	assert.False(t, m.IsRunning(a))
	assert.True(t, m.IsRunning(b))
	assert.Equal(t, 1, b.starts)
	assert.Equal(t, 1, b.updates)
	assert.Equal(t, 1, a.cancels, "evicted routine must be cancelled")
	assert.Equal(t, []string{"a.start", "a.update", "a.cancel", "b.start", "b.update"}, ev.log)
}

func TestManagerEvictsIncumbentBeforeStart(t *testing.T) {
	ev := &events{}
	rec := &countingRecorder{}
	m := NewManager(WithRecorder(rec))
	old := newFake(ev, "old", -1, subsystem.Drive, subsystem.Slider)
	other := newFake(ev, "other", -1, subsystem.Climber)
	require.NoError(t, m.Add(old))
	require.NoError(t, m.Add(other))
	m.Tick(NewCommands())
	ev.log = nil

	newer := newFake(ev, "new", -1, subsystem.Slider)
	require.NoError(t, m.Add(newer))
	m.Tick(NewCommands())

	assert.Equal(t, []string{"old.update", "other.update", "old.cancel", "new.start", "new.update"}, ev.log)
	assert.False(t, m.IsRunning(old))
	assert.True(t, m.IsRunning(other), "disjoint routine must survive")
	assert.Equal(t, []string{"old"}, rec.evicted)
	assert.Equal(t, []string{"old", "other", "new"}, rec.admitted)
}

func TestManagerRetiresFinished(t *testing.T) {
	ev := &events{}
	rec := &countingRecorder{}
	m := NewManager(WithRecorder(rec))
	a := newFake(ev, "a", 2, subsystem.Intake)
	require.NoError(t, m.Add(a))

	m.Tick(NewCommands()) // start + update 1
	m.Tick(NewCommands()) // update 2, now finished
	assert.True(t, m.IsRunning(a))
	m.Tick(NewCommands()) // cancelled and removed

	assert.False(t, m.IsRunning(a))
	assert.Equal(t, 2, a.updates, "finished routine must not be updated")
	assert.Equal(t, 1, a.cancels)
	assert.Equal(t, []string{"a"}, rec.finished)
}

func TestManagerRequestedRoutinesWaitOneTick(t *testing.T) {
	ev := &events{}
	m := NewManager()
	follow := newFake(ev, "follow", -1, subsystem.Spatula)
	leader := newFake(ev, "leader", -1, subsystem.Drive)
	leader.onUpdate = func(c Commands) Commands {
		if leader.updates == 1 {
			return c.Request(follow)
		}
		return c
	}
	require.NoError(t, m.Add(leader))

	out := m.Tick(NewCommands())
	assert.Empty(t, out.WantedRoutines, "requested routines are consumed by the manager")
	assert.False(t, m.IsRunning(follow), "requested routine admitted in the same tick")
	assert.Equal(t, 1, m.Pending())

	m.Tick(NewCommands())
	assert.True(t, m.IsRunning(follow))
	assert.True(t, m.IsRunning(leader))
}

func TestManagerCancelFlagResets(t *testing.T) {
	ev := &events{}
	rec := &countingRecorder{}
	m := NewManager(WithRecorder(rec))
	a := newFake(ev, "a", -1, subsystem.Drive)
	b := newFake(ev, "b", -1, subsystem.Slider)
	require.NoError(t, m.Add(a))
	require.NoError(t, m.Add(b))
	m.Tick(NewCommands())

	in := NewCommands()
	in.CancelCurrentRoutines = true
	in.Intake = robot.IntakeExpel
	in = in.Request(newFake(ev, "late", -1, subsystem.Intake))
	out := m.Tick(in)

	assert.Empty(t, m.Running())
	assert.Zero(t, m.Pending(), "requests made alongside a cancel are dropped")
	assert.Equal(t, 1, a.cancels)
	assert.Equal(t, 1, b.cancels)
	assert.Equal(t, robot.IntakeIdle, out.Intake, "reset output is folded through cancel")
	assert.False(t, out.CancelCurrentRoutines)
	assert.Equal(t, []int{2}, rec.resets)
}

func TestManagerReset(t *testing.T) {
	ev := &events{}
	m := NewManager()
	a := newFake(ev, "a", -1, subsystem.Drive)
	require.NoError(t, m.Add(a))
	m.Tick(NewCommands())
	require.NoError(t, m.Add(newFake(ev, "queued", -1)))

	m.Reset(NewCommands())
	assert.Empty(t, m.Running())
	assert.Zero(t, m.Pending())
	assert.Equal(t, 1, a.cancels)
}

func TestManagerDoesNotMutateCallerRecord(t *testing.T) {
	ev := &events{}
	m := NewManager()
	a := newFake(ev, "a", -1, subsystem.Drive)
	a.onUpdate = func(c Commands) Commands {
		if len(c.WantedRoutines) > 0 {
			c.WantedRoutines[0] = nil
		}
		return c
	}
	require.NoError(t, m.Add(a))

	in := NewCommands().Request(newFake(ev, "keep", -1, subsystem.Climber))
	m.Tick(in)
	require.NotNil(t, in.WantedRoutines[0])
	assert.Equal(t, "keep", in.WantedRoutines[0].Name())
}

func TestRecordersFanOut(t *testing.T) {
	ev := &events{}
	a, b := &countingRecorder{}, &countingRecorder{}
	m := NewManager(WithRecorder(Recorders{a, b}))
	require.NoError(t, m.Add(newFake(ev, "x", -1, subsystem.Climber)))
	m.Tick(NewCommands())
	m.Reset(NewCommands())

	for _, rec := range []*countingRecorder{a, b} {
		assert.Equal(t, []string{"x"}, rec.admitted)
		assert.Equal(t, []int{1}, rec.resets)
	}
}
