// Package loop runs the fixed-period control cycle: read sensors, run
// routines, drive, actuate.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/teslashibe/go-drivetrain/internal/log"
	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/drive"
	"github.com/teslashibe/go-drivetrain/pkg/protocol"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
)

// DefaultPeriod is the control period.
const DefaultPeriod = 20 * time.Millisecond

// heartbeatTicks is how often the loop logs its counters (5 s at 50 Hz).
const heartbeatTicks = 250

// CommandSource supplies the tick's command record before routines run,
// typically from operator input.
type CommandSource interface {
	Commands(state robot.State) behavior.Commands
}

// CommandSourceFunc adapts a function to CommandSource.
type CommandSourceFunc func(state robot.State) behavior.Commands

func (f CommandSourceFunc) Commands(state robot.State) behavior.Commands { return f(state) }

// Publisher receives telemetry snapshots.
type Publisher interface {
	Publish(ts time.Time, t protocol.TelemetryData)
}

// Recorder observes loop health.
type Recorder interface {
	ObserveTick(d time.Duration, overrun bool)
	TickError(stage string)
	RoutinesRunning(n int)
}

// Deps are the components a loop drives. All but Commands are required.
type Deps struct {
	Hardware robot.Hardware
	Holder   *robot.StateHolder
	Manager  *behavior.Manager
	Drive    *drive.Drive
	Commands CommandSource
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the time source.
func WithClock(c clockwork.Clock) Option { return func(l *Loop) { l.clock = c } }

// WithPeriod sets the control period.
func WithPeriod(d time.Duration) Option { return func(l *Loop) { l.period = d } }

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option { return func(l *Loop) { l.log = lg } }

// WithRecorder registers a health recorder.
func WithRecorder(r Recorder) Option { return func(l *Loop) { l.rec = r } }

// WithPublisher publishes a snapshot every n ticks.
func WithPublisher(p Publisher, every int) Option {
	return func(l *Loop) {
		l.pub = p
		l.publishEvery = max(every, 1)
	}
}

// WithAfterTick runs fn at the end of every tick. The simulator uses it to
// advance its model.
func WithAfterTick(fn func(period time.Duration)) Option {
	return func(l *Loop) { l.afterTick = fn }
}

// Stats are the loop counters.
type Stats struct {
	Ticks    uint64 `json:"ticks"`
	Overruns uint64 `json:"overruns"`
	Errors   uint64 `json:"errors"`
}

// Loop is the control loop. Tick must only be called from one goroutine;
// Autonomous, RequestCancel and the read accessors are safe from any.
type Loop struct {
	hw      robot.Hardware
	holder  *robot.StateHolder
	manager *behavior.Manager
	drive   *drive.Drive
	source  CommandSource

	clock        clockwork.Clock
	period       time.Duration
	log          *slog.Logger
	rec          Recorder
	pub          Publisher
	publishEvery int
	afterTick    func(time.Duration)

	cancel   atomic.Bool
	ticks    atomic.Uint64
	overruns atomic.Uint64
	errors   atomic.Uint64

	mu     sync.RWMutex
	latest protocol.TelemetryData
	seen   bool

	stop     chan struct{}
	stopOnce sync.Once
}

// New returns a loop over deps.
func New(deps Deps, opts ...Option) (*Loop, error) {
	switch {
	case deps.Hardware == nil:
		return nil, errors.New("loop: hardware is required")
	case deps.Holder == nil:
		return nil, errors.New("loop: state holder is required")
	case deps.Manager == nil:
		return nil, errors.New("loop: routine manager is required")
	case deps.Drive == nil:
		return nil, errors.New("loop: drive is required")
	}

	l := &Loop{
		hw:           deps.Hardware,
		holder:       deps.Holder,
		manager:      deps.Manager,
		drive:        deps.Drive,
		source:       deps.Commands,
		clock:        clockwork.NewRealClock(),
		period:       DefaultPeriod,
		publishEvery: 1,
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = log.With("component", "loop")
	}
	if l.source == nil {
		l.source = CommandSourceFunc(func(robot.State) behavior.Commands { return behavior.NewCommands() })
	}
	return l, nil
}

// Tick runs one control cycle.
func (l *Loop) Tick() {
	start := l.clock.Now()

	state, err := l.hw.ReadState()
	if err != nil {
		l.fail("read", err)
		state = l.holder.Latest()
	} else {
		l.holder.Store(state)
	}

	cmd := l.source.Commands(state)
	if l.cancel.Swap(false) {
		cmd.CancelCurrentRoutines = true
	}
	cmd = l.manager.Tick(cmd)

	sig := l.drive.Update(cmd.WantedDrive, cmd.OpenLoop())
	if err := l.hw.SetDriveSignal(sig); err != nil {
		l.fail("drive", err)
	}
	if err := l.hw.SetMechanisms(cmd.Mechanisms); err != nil {
		l.fail("mechanisms", err)
	}

	n := l.ticks.Add(1)
	elapsed := l.clock.Since(start)
	overrun := elapsed > l.period
	if overrun {
		l.overruns.Add(1)
	}
	if l.rec != nil {
		l.rec.ObserveTick(elapsed, overrun)
		l.rec.RoutinesRunning(len(l.manager.Running()))
	}

	if l.pub != nil && n%uint64(l.publishEvery) == 0 {
		snap := l.snapshot(n, state, cmd, sig)
		l.mu.Lock()
		l.latest, l.seen = snap, true
		l.mu.Unlock()
		l.pub.Publish(start, snap)
	}

	if n%heartbeatTicks == 0 {
		l.log.Info("heartbeat",
			"ticks", n,
			"overruns", l.overruns.Load(),
			"errors", l.errors.Load(),
			"routines", len(l.manager.Running()),
			"controller", drive.Name(l.drive.Controller()))
	}

	if l.afterTick != nil {
		l.afterTick(l.period)
	}
}

func (l *Loop) fail(stage string, err error) {
	l.errors.Add(1)
	l.log.Warn("hardware error", "stage", stage, "error", err)
	if l.rec != nil {
		l.rec.TickError(stage)
	}
}

func (l *Loop) snapshot(n uint64, state robot.State, cmd behavior.Commands, sig robot.Signal) protocol.TelemetryData {
	return protocol.TelemetryData{
		Tick:       n,
		Wanted:     cmd.WantedDrive.String(),
		Controller: drive.Name(l.drive.Controller()),
		OnTarget:   l.drive.OnTarget(),
		Pose:       state.Pose,
		Setpoint:   l.drive.Setpoint(),
		Signal:     sig,
		Mechanisms: cmd.Mechanisms,
		Slider:     state.Slider,
		Routines:   l.manager.Running(),
	}
}

// Run ticks every period until ctx is done or Stop is called. On the way
// out every routine is cancelled and the drive is left neutral.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.period)
	defer ticker.Stop()

	l.log.Info("loop started", "period", l.period)
	defer l.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case <-ticker.Chan():
			l.Tick()
		}
	}
}

func (l *Loop) shutdown() {
	l.manager.Reset(behavior.NewCommands())
	l.drive.SetNeutral()
	if err := l.hw.SetDriveSignal(robot.Neutral()); err != nil {
		l.fail("drive", err)
	}
	l.log.Info("loop stopped", "ticks", l.ticks.Load(), "overruns", l.overruns.Load(), "errors", l.errors.Load())
}

// Stop halts Run. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Autonomous queues r for admission on the next tick.
func (l *Loop) Autonomous(r behavior.Routine) error {
	return l.manager.Add(r)
}

// RequestCancel cancels every running routine on the next tick.
func (l *Loop) RequestCancel() {
	l.cancel.Store(true)
}

// Running returns the running routines.
func (l *Loop) Running() []behavior.Info { return l.manager.Running() }

// Pending returns how many routines wait for admission.
func (l *Loop) Pending() int { return l.manager.Pending() }

// Latest returns the most recently published snapshot. ok is false before
// the first one.
func (l *Loop) Latest() (t protocol.TelemetryData, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.latest, l.seen
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:    l.ticks.Load(),
		Overruns: l.overruns.Load(),
		Errors:   l.errors.Load(),
	}
}

// Period returns the control period.
func (l *Loop) Period() time.Duration { return l.period }
