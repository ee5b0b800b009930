package routines

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/drive"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/sim"
)

const period = 20 * time.Millisecond

type fakeVision struct{ xdist []float64 }

// XDist returns the readings in order, repeating the last one.
func (v *fakeVision) XDist() float64 {
	if len(v.xdist) == 0 {
		return 0
	}
	x := v.xdist[0]
	if len(v.xdist) > 1 {
		v.xdist = v.xdist[1:]
	}
	return x
}

// harness wires routines to the simulator the way the tick loop does.
type harness struct {
	t      *testing.T
	clock  *clockwork.FakeClock
	bot    *sim.Robot
	holder *robot.StateHolder
	drive  *drive.Drive
	vision *fakeVision
	env    Env
	last   behavior.Commands
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		clock:  clockwork.NewFakeClock(),
		bot:    sim.New(sim.DefaultGeometry()),
		holder: robot.NewStateHolder(robot.State{}),
		vision: &fakeVision{},
	}
	h.drive = drive.New(drive.DefaultConfig(), h.holder)
	h.env = Env{
		Drive:   h.drive,
		Clock:   h.clock,
		State:   h.holder,
		Sensors: h.bot,
		Vision:  h.vision,
		Config:  DefaultConfig(),
	}
	h.refresh()
	return h
}

func (h *harness) refresh() {
	s, err := h.bot.ReadState()
	require.NoError(h.t, err, "read state")
	h.holder.Store(s)
}

func (h *harness) apply(cmd behavior.Commands) {
	sig := h.drive.Update(cmd.WantedDrive, cmd.OpenLoop())
	require.NoError(h.t, h.bot.SetDriveSignal(sig), "drive signal")
	require.NoError(h.t, h.bot.SetMechanisms(cmd.Mechanisms), "mechanisms")
	h.last = cmd
}

// tick runs one cycle of r and advances the simulator and clock by one
// period.
func (h *harness) tick(r behavior.Routine) behavior.Commands {
	h.refresh()
	cmd := r.Update(behavior.NewCommands())
	h.apply(cmd)
	h.bot.Step(period)
	h.clock.Advance(period)
	return cmd
}

// run starts r and ticks it until it finishes, then cancels it. It returns
// the number of ticks taken, or -1 if r was still running after max.
func (h *harness) run(r behavior.Routine, max int) int {
	h.refresh()
	r.Start()
	for i := 0; i < max; i++ {
		h.refresh()
		if r.Finished() {
			h.apply(r.Cancel(h.last))
			return i
		}
		h.tick(r)
	}
	return -1
}

// runManaged ticks r through a Manager the way the tick loop does. It
// returns the tick on which the manager retired r, or -1 after max ticks.
func (h *harness) runManaged(r behavior.Routine, max int) int {
	m := behavior.NewManager()
	require.NoError(h.t, m.Add(r))
	for i := 0; i < max; i++ {
		h.refresh()
		h.apply(m.Tick(behavior.NewCommands()))
		h.bot.Step(period)
		h.clock.Advance(period)
		if !m.IsRunning(r) {
			return i
		}
	}
	return -1
}
