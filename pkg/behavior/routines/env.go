// Package routines holds the leaf routines: drive moves, slider and spatula
// positioning, and plain waits.
//
// Every routine is built against an Env rather than reaching for global
// subsystems, and reads time only through Env.Clock.
package routines

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/teslashibe/go-drivetrain/internal/log"
	"github.com/teslashibe/go-drivetrain/pkg/drive"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
)

// Env is what a leaf routine may touch.
type Env struct {
	Drive   *drive.Drive
	Clock   clockwork.Clock
	State   robot.StateSource
	Sensors robot.SensorResetter
	Vision  robot.VisionSource
	Config  Config
	Log     *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return log.With("component", "routines")
}

func (e Env) now() time.Time { return e.Clock.Now() }

// Positioning times a slider move that may first have to raise the spatula.
type Positioning struct {
	Raise   time.Duration `mapstructure:"raise" yaml:"raise"`
	Settle  time.Duration `mapstructure:"settle" yaml:"settle"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Config holds the timing and geometry constants of the leaf routines.
type Config struct {
	BangBangTimeout    time.Duration `mapstructure:"bang_bang_timeout" yaml:"bang_bang_timeout"`
	SensorResetTimeout time.Duration `mapstructure:"sensor_reset_timeout" yaml:"sensor_reset_timeout"`

	Autocorrect Positioning `mapstructure:"autocorrect" yaml:"autocorrect"`
	Custom      Positioning `mapstructure:"custom" yaml:"custom"`

	// Vision readings at or beyond VisionFalsePositive are treated as a
	// target seen on the wrong side.
	VisionOffset        float64       `mapstructure:"vision_offset" yaml:"vision_offset"`
	VisionClamp         float64       `mapstructure:"vision_clamp" yaml:"vision_clamp"`
	VisionFalsePositive float64       `mapstructure:"vision_false_positive" yaml:"vision_false_positive"`
	VisionSettle        time.Duration `mapstructure:"vision_settle" yaml:"vision_settle"`

	SampleDwell     time.Duration `mapstructure:"sample_dwell" yaml:"sample_dwell"`
	SampleThreshold float64       `mapstructure:"sample_threshold" yaml:"sample_threshold"`

	SpatulaUpTime       time.Duration `mapstructure:"spatula_up_time" yaml:"spatula_up_time"`
	SpatulaFlipTime     time.Duration `mapstructure:"spatula_flip_time" yaml:"spatula_flip_time"`
	SpatulaCenterTicks  float64       `mapstructure:"spatula_center_ticks" yaml:"spatula_center_ticks"`
	SpatulaCenterSettle time.Duration `mapstructure:"spatula_center_settle" yaml:"spatula_center_settle"`
}

// DefaultConfig returns the competition-tuned constants.
func DefaultConfig() Config {
	return Config{
		BangBangTimeout:    5 * time.Second,
		SensorResetTimeout: time.Second,

		Autocorrect: Positioning{Raise: time.Second, Timeout: 2 * time.Second},
		Custom:      Positioning{Raise: 1700 * time.Millisecond, Settle: time.Second, Timeout: 1500 * time.Millisecond},

		VisionOffset:        7.5,
		VisionClamp:         7,
		VisionFalsePositive: 1.5,
		VisionSettle:        200 * time.Millisecond,

		SampleDwell:     200 * time.Millisecond,
		SampleThreshold: 1,

		SpatulaUpTime:       2 * time.Second,
		SpatulaFlipTime:     2 * time.Second,
		SpatulaCenterTicks:  40,
		SpatulaCenterSettle: 300 * time.Millisecond,
	}
}

// Option configures a drive-to-setpoint routine.
type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout bounds the routine. On expiry the drive goes neutral and the
// routine finishes.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// deadline is an optional time limit. A zero limit never expires.
type deadline struct {
	clock clockwork.Clock
	limit time.Duration
	at    time.Time
}

func (d *deadline) arm() {
	if d.limit > 0 {
		d.at = d.clock.Now().Add(d.limit)
	}
}

func (d *deadline) extend(by time.Duration) {
	d.at = d.at.Add(by)
}

func (d *deadline) expired() bool {
	return d.limit > 0 && !d.at.IsZero() && !d.clock.Now().Before(d.at)
}
