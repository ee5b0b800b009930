package behavior

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-drivetrain/internal/log"
)

// ErrNilRoutine is returned when a nil routine is submitted.
var ErrNilRoutine = errors.New("behavior: nil routine")

// Recorder observes routine lifecycle events.
type Recorder interface {
	RoutineAdmitted(name string)
	RoutineEvicted(name string)
	RoutineFinished(name string)
	RoutinesReset(count int)
}

// Recorders fans events out to every recorder in order.
type Recorders []Recorder

func (rs Recorders) RoutineAdmitted(name string) {
	for _, r := range rs {
		r.RoutineAdmitted(name)
	}
}

func (rs Recorders) RoutineEvicted(name string) {
	for _, r := range rs {
		r.RoutineEvicted(name)
	}
}

func (rs Recorders) RoutineFinished(name string) {
	for _, r := range rs {
		r.RoutineFinished(name)
	}
}

func (rs Recorders) RoutinesReset(count int) {
	for _, r := range rs {
		r.RoutinesReset(count)
	}
}

// Info describes a running routine.
type Info struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Subsystems []string `json:"subsystems"`
}

type entry struct {
	id      string
	routine Routine
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// WithRecorder registers a lifecycle recorder.
func WithRecorder(r Recorder) ManagerOption {
	return func(m *Manager) { m.rec = r }
}

// Manager owns the running routines and admits new ones each tick.
//
// A newly admitted routine always wins: any running routine sharing a
// subsystem with it is cancelled and removed before it starts. There are no
// priorities and no manager-level timeouts.
//
// Routines must not call back into the Manager; they request follow-on
// routines through Commands.Request.
type Manager struct {
	mu      sync.Mutex
	running []entry
	pending []Routine

	log *slog.Logger
	rec Recorder
}

// NewManager returns an idle Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = log.With("component", "routines")
	}
	return m
}

// Add queues r for admission on the next Tick.
func (m *Manager) Add(r Routine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(r)
}

func (m *Manager) addLocked(r Routine) error {
	if r == nil {
		m.log.Error("rejected nil routine")
		return ErrNilRoutine
	}
	m.pending = append(m.pending, r)
	return nil
}

// Tick runs one scheduling cycle: update running routines, retire finished
// ones, admit queued ones with conflict eviction, then honour the cancel
// flag or queue any routines requested during this tick for the next one.
func (m *Manager) Tick(cmd Commands) Commands {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd = cmd.Copy()

	var finished []entry
	for _, e := range m.running {
		if e.routine.Finished() {
			cmd = e.routine.Cancel(cmd)
			finished = append(finished, e)
			continue
		}
		cmd = e.routine.Update(cmd)
	}
	for _, e := range finished {
		m.remove(e)
		m.log.Debug("routine finished", "routine", e.routine.Name(), "id", e.id)
		if m.rec != nil {
			m.rec.RoutineFinished(e.routine.Name())
		}
	}

	for _, r := range m.pending {
		for _, victim := range m.conflicts(r) {
			cmd = victim.routine.Cancel(cmd)
			m.remove(victim)
			m.log.Info("routine evicted", "routine", victim.routine.Name(), "id", victim.id, "by", r.Name())
			if m.rec != nil {
				m.rec.RoutineEvicted(victim.routine.Name())
			}
		}
		e := entry{id: uuid.NewString(), routine: r}
		r.Start()
		cmd = r.Update(cmd)
		m.running = append(m.running, e)
		m.log.Info("routine admitted", "routine", r.Name(), "id", e.id, "subsystems", r.RequiredSubsystems().String())
		if m.rec != nil {
			m.rec.RoutineAdmitted(r.Name())
		}
	}
	m.pending = nil

	if cmd.CancelCurrentRoutines {
		cmd = m.resetLocked(cmd)
		cmd.CancelCurrentRoutines = false
	} else {
		for _, r := range cmd.WantedRoutines {
			_ = m.addLocked(r)
		}
	}
	cmd.WantedRoutines = nil
	return cmd
}

// Reset cancels every running routine in order and drops anything queued.
func (m *Manager) Reset(cmd Commands) Commands {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetLocked(cmd.Copy())
}

func (m *Manager) resetLocked(cmd Commands) Commands {
	for _, e := range m.running {
		cmd = e.routine.Cancel(cmd)
	}
	n := len(m.running)
	m.running = nil
	m.pending = nil
	m.log.Info("routines reset", "cancelled", n)
	if m.rec != nil {
		m.rec.RoutinesReset(n)
	}
	return cmd
}

// conflicts returns the running routines that share a subsystem with r.
func (m *Manager) conflicts(r Routine) []entry {
	need := r.RequiredSubsystems()
	var out []entry
	for _, e := range m.running {
		if e.routine.RequiredSubsystems().Intersects(need) {
			out = append(out, e)
		}
	}
	return out
}

func (m *Manager) remove(target entry) {
	m.running = slices.DeleteFunc(m.running, func(e entry) bool { return e.id == target.id })
}

// Running describes the running routines in admission order.
func (m *Manager) Running() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, len(m.running))
	for i, e := range m.running {
		out[i] = Info{ID: e.id, Name: e.routine.Name(), Subsystems: e.routine.RequiredSubsystems().Strings()}
	}
	return out
}

// Pending returns how many routines await admission.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// IsRunning reports whether r is currently running.
func (m *Manager) IsRunning(r Routine) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.running {
		if e.routine == r {
			return true
		}
	}
	return false
}
