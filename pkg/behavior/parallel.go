package behavior

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/teslashibe/go-drivetrain/pkg/subsystem"
)

// Parallel runs its children together and finishes when all have finished.
type Parallel struct {
	children []Routine
	required subsystem.Set
}

// NewParallel returns a Parallel over children.
func NewParallel(children ...Routine) *Parallel {
	return &Parallel{children: children, required: requirements(children)}
}

func (p *Parallel) Start() {
	for _, c := range p.children {
		c.Start()
	}
}

// Update applies every unfinished child to the record in order.
func (p *Parallel) Update(cmd Commands) Commands {
	for _, c := range p.children {
		if !c.Finished() {
			cmd = c.Update(cmd)
		}
	}
	return cmd
}

// Cancel cancels every child, finished or not.
func (p *Parallel) Cancel(cmd Commands) Commands {
	for _, c := range p.children {
		cmd = c.Cancel(cmd)
	}
	return cmd
}

func (p *Parallel) Finished() bool {
	for _, c := range p.children {
		if !c.Finished() {
			return false
		}
	}
	return true
}

func (p *Parallel) RequiredSubsystems() subsystem.Set { return p.required }

func (p *Parallel) Name() string { return compoundName("Parallel", p.children) }

// Timed runs its children together and finishes when they all have or when
// its deadline passes, whichever comes first.
type Timed struct {
	clock    clockwork.Clock
	timeout  time.Duration
	deadline time.Time
	started  bool
	children []Routine
	required subsystem.Set
}

// NewTimed returns a Timed over children with the given time limit,
// measured from Start.
func NewTimed(clock clockwork.Clock, timeout time.Duration, children ...Routine) *Timed {
	return &Timed{clock: clock, timeout: timeout, children: children, required: requirements(children)}
}

func (t *Timed) Start() {
	t.deadline = t.clock.Now().Add(t.timeout)
	t.started = true
	for _, c := range t.children {
		c.Start()
	}
}

// Update applies every child to the record, finished or not.
func (t *Timed) Update(cmd Commands) Commands {
	for _, c := range t.children {
		cmd = c.Update(cmd)
	}
	return cmd
}

func (t *Timed) Cancel(cmd Commands) Commands {
	for _, c := range t.children {
		cmd = c.Cancel(cmd)
	}
	return cmd
}

func (t *Timed) Finished() bool {
	if t.started && !t.clock.Now().Before(t.deadline) {
		return true
	}
	for _, c := range t.children {
		if !c.Finished() {
			return false
		}
	}
	return true
}

func (t *Timed) RequiredSubsystems() subsystem.Set { return t.required }

func (t *Timed) Name() string { return compoundName("Timed", t.children) }
