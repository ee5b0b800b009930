package routines

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/subsystem"
)

// Timeout waits. It needs no subsystems and changes nothing.
type Timeout struct {
	clock   clockwork.Clock
	wait    time.Duration
	end     time.Time
	started bool
}

// NewTimeout returns a routine that finishes d after it starts.
func NewTimeout(clock clockwork.Clock, d time.Duration) *Timeout {
	return &Timeout{clock: clock, wait: d}
}

func (t *Timeout) Start() {
	t.end = t.clock.Now().Add(t.wait)
	t.started = true
}

func (t *Timeout) Update(cmd behavior.Commands) behavior.Commands { return cmd }

func (t *Timeout) Cancel(cmd behavior.Commands) behavior.Commands { return cmd }

func (t *Timeout) Finished() bool {
	return t.started && !t.clock.Now().Before(t.end)
}

func (t *Timeout) RequiredSubsystems() subsystem.Set { return 0 }

func (t *Timeout) Name() string { return fmt.Sprintf("Timeout(%s)", t.wait) }
