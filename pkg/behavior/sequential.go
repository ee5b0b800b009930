package behavior

import "github.com/teslashibe/go-drivetrain/pkg/subsystem"

// Sequential runs its children one after another.
//
// It reserves the union of its children's subsystems for its whole life.
// Finished is latched once the last child completes, so a replaced child is
// never queried after it was cancelled.
type Sequential struct {
	children []Routine
	index    int
	done     bool
	required subsystem.Set
}

// NewSequential returns a Sequential over children, in order.
func NewSequential(children ...Routine) *Sequential {
	return &Sequential{children: children, required: requirements(children)}
}

func (s *Sequential) Start() {
	if len(s.children) == 0 {
		s.done = true
		return
	}
	s.children[0].Start()
}

// Update delegates to the current child, then moves past every child that
// has finished.
func (s *Sequential) Update(cmd Commands) Commands {
	if s.done {
		return cmd
	}
	cmd = s.children[s.index].Update(cmd)
	for s.children[s.index].Finished() {
		cmd = s.children[s.index].Cancel(cmd)
		s.index++
		if s.index >= len(s.children) {
			s.done = true
			break
		}
		s.children[s.index].Start()
	}
	return cmd
}

// Cancel cancels the current child only. Earlier children were cancelled
// when the cursor moved past them.
func (s *Sequential) Cancel(cmd Commands) Commands {
	if s.done {
		return cmd
	}
	return s.children[s.index].Cancel(cmd)
}

func (s *Sequential) Finished() bool { return s.done }

func (s *Sequential) RequiredSubsystems() subsystem.Set { return s.required }

func (s *Sequential) Name() string { return compoundName("Sequential", s.children) }

// Current returns the index of the active child.
func (s *Sequential) Current() int { return s.index }
