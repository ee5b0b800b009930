package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/teslashibe/go-drivetrain/internal/log"
)

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}
	positive := func(name string, v float64) {
		check(v > 0, "%s must be positive, got %g", name, v)
	}
	nonNegative := func(name string, v float64) {
		check(v >= 0, "%s must not be negative, got %g", name, v)
	}
	duration := func(name string, d time.Duration) {
		check(d > 0, "%s must be positive, got %s", name, d)
	}

	duration("loop.period", c.Loop.Period)
	check(c.Loop.TelemetryEvery >= 1, "loop.telemetry_every must be at least 1, got %d", c.Loop.TelemetryEvery)

	d := c.Drive
	positive("drive.ticks_per_inch", d.TicksPerInch)
	positive("drive.track_width_inches", d.TrackWidthInches)
	positive("drive.tolerances.position_ticks", d.Tolerances.PositionTicks)
	positive("drive.tolerances.velocity_ips", d.Tolerances.VelocityIPS)
	positive("drive.tolerances.heading_degrees", d.Tolerances.HeadingDegrees)
	positive("drive.tolerances.heading_velocity_dps", d.Tolerances.HeadingVelocityDPS)
	nonNegative("drive.tolerances.encoder_zero_ticks", d.Tolerances.EncoderZeroTicks)
	nonNegative("drive.tolerances.gyro_zero_degrees", d.Tolerances.GyroZeroDegrees)
	check(d.BangBangPower > 0 && d.BangBangPower <= 1, "drive.bang_bang_power must be in (0, 1], got %g", d.BangBangPower)
	positive("drive.forward.limit", d.Forward.Limit)
	positive("drive.heading.limit", d.Heading.Limit)
	for name, p := range map[string]ProfileConfig{
		"short": d.Profiles.Short,
		"long":  d.Profiles.Long,
		"turn":  d.Profiles.Turn,
	} {
		positive("drive.profiles."+name+".cruise_ips", p.CruiseIPS)
		positive("drive.profiles."+name+".accel_ips2", p.AccelIPS2)
	}

	r := c.Routines
	duration("routines.bang_bang_timeout", r.BangBangTimeout)
	duration("routines.sensor_reset_timeout", r.SensorResetTimeout)
	duration("routines.autocorrect.timeout", r.Autocorrect.Timeout)
	check(r.Autocorrect.Timeout > r.Autocorrect.Raise,
		"routines.autocorrect.timeout (%s) must exceed routines.autocorrect.raise (%s)", r.Autocorrect.Timeout, r.Autocorrect.Raise)
	duration("routines.custom.timeout", r.Custom.Timeout)
	check(r.Custom.Settle < r.Custom.Raise+r.Custom.Timeout,
		"routines.custom.settle (%s) must be shorter than raise plus timeout (%s)", r.Custom.Settle, r.Custom.Raise+r.Custom.Timeout)
	positive("routines.vision_clamp", r.VisionClamp)
	nonNegative("routines.sample_threshold", r.SampleThreshold)
	positive("routines.spatula_center_ticks", r.SpatulaCenterTicks)

	if c.Dashboard.Enabled {
		check(c.Dashboard.Addr != "", "dashboard.addr is required when the dashboard is enabled")
	}
	_, ok := log.ParseLevel(c.Log.Level)
	check(ok, "log.level %q is not one of debug, info, warn, error", c.Log.Level)

	return err
}
