// Package config loads drivetrain configuration from defaults, an optional
// YAML file and DRIVETRAIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-drivetrain/pkg/behavior/routines"
	"github.com/teslashibe/go-drivetrain/pkg/drive"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/trajectory"
)

// EnvPrefix prefixes every environment override, e.g.
// DRIVETRAIN_LOOP_PERIOD=10ms.
const EnvPrefix = "DRIVETRAIN"

// FileName is the config file searched for when no path is given.
const FileName = "drivetrain"

// Config is the full process configuration.
type Config struct {
	Loop      LoopConfig      `mapstructure:"loop" yaml:"loop"`
	Drive     DriveConfig     `mapstructure:"drive" yaml:"drive"`
	Routines  routines.Config `mapstructure:"routines" yaml:"routines"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// LoopConfig times the control loop.
type LoopConfig struct {
	Period time.Duration `mapstructure:"period" yaml:"period"`
	// TelemetryEvery is the number of ticks between websocket snapshots.
	TelemetryEvery int `mapstructure:"telemetry_every" yaml:"telemetry_every"`
}

// DriveConfig is the drivetrain geometry and tuning.
type DriveConfig struct {
	TicksPerInch     float64          `mapstructure:"ticks_per_inch" yaml:"ticks_per_inch"`
	TrackWidthInches float64          `mapstructure:"track_width_inches" yaml:"track_width_inches"`
	Tolerances       TolerancesConfig `mapstructure:"tolerances" yaml:"tolerances"`
	BangBangPower    float64          `mapstructure:"bang_bang_power" yaml:"bang_bang_power"`
	Forward          PIDConfig        `mapstructure:"forward" yaml:"forward"`
	Heading          PIDConfig        `mapstructure:"heading" yaml:"heading"`
	Profiles         ProfilesConfig   `mapstructure:"profiles" yaml:"profiles"`
	Trajectory       trajectory.Gains `mapstructure:"trajectory" yaml:"trajectory"`
}

// TolerancesConfig bounds what counts as on target.
type TolerancesConfig struct {
	PositionTicks      float64 `mapstructure:"position_ticks" yaml:"position_ticks"`
	VelocityIPS        float64 `mapstructure:"velocity_ips" yaml:"velocity_ips"`
	HeadingDegrees     float64 `mapstructure:"heading_degrees" yaml:"heading_degrees"`
	HeadingVelocityDPS float64 `mapstructure:"heading_velocity_dps" yaml:"heading_velocity_dps"`
	EncoderZeroTicks   float64 `mapstructure:"encoder_zero_ticks" yaml:"encoder_zero_ticks"`
	GyroZeroDegrees    float64 `mapstructure:"gyro_zero_degrees" yaml:"gyro_zero_degrees"`
}

// PIDConfig is one onboard PID loop.
type PIDConfig struct {
	P     float64 `mapstructure:"p" yaml:"p"`
	I     float64 `mapstructure:"i" yaml:"i"`
	D     float64 `mapstructure:"d" yaml:"d"`
	Limit float64 `mapstructure:"limit" yaml:"limit"`
}

// ProfilesConfig holds the motion-magic profiles.
type ProfilesConfig struct {
	Short ProfileConfig `mapstructure:"short" yaml:"short"`
	Long  ProfileConfig `mapstructure:"long" yaml:"long"`
	Turn  ProfileConfig `mapstructure:"turn" yaml:"turn"`
}

// ProfileConfig is one motion-magic profile.
type ProfileConfig struct {
	CruiseIPS float64     `mapstructure:"cruise_ips" yaml:"cruise_ips"`
	AccelIPS2 float64     `mapstructure:"accel_ips2" yaml:"accel_ips2"`
	Gains     GainsConfig `mapstructure:"gains" yaml:"gains"`
}

// GainsConfig are motor controller closed-loop gains.
type GainsConfig struct {
	P     float64 `mapstructure:"p" yaml:"p"`
	I     float64 `mapstructure:"i" yaml:"i"`
	D     float64 `mapstructure:"d" yaml:"d"`
	F     float64 `mapstructure:"f" yaml:"f"`
	IZone float64 `mapstructure:"izone" yaml:"izone"`
}

// DashboardConfig controls the diagnostics server.
type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	d := drive.DefaultConfig()
	return Config{
		Loop: LoopConfig{
			Period:         d.Period,
			TelemetryEvery: 5,
		},
		Drive: DriveConfig{
			TicksPerInch:     d.TicksPerInch,
			TrackWidthInches: d.TrackWidthInches,
			Tolerances: TolerancesConfig{
				PositionTicks:      d.Tolerances.Position,
				VelocityIPS:        d.Tolerances.Velocity,
				HeadingDegrees:     d.Tolerances.Heading,
				HeadingVelocityDPS: d.Tolerances.HeadingVelocity,
				EncoderZeroTicks:   d.Tolerances.EncoderZero,
				GyroZeroDegrees:    d.Tolerances.GyroZero,
			},
			BangBangPower: d.BangBangPower,
			Forward:       pidFrom(d.Forward),
			Heading:       pidFrom(d.Heading),
			Profiles: ProfilesConfig{
				Short: profileFrom(d.Short),
				Long:  profileFrom(d.Long),
				Turn:  profileFrom(d.Turn),
			},
			Trajectory: d.Trajectory,
		},
		Routines: routines.DefaultConfig(),
		Dashboard: DashboardConfig{
			Enabled: false,
			Addr:    ":8090",
		},
		Log: LogConfig{Level: "info"},
	}
}

func pidFrom(p drive.PID) PIDConfig {
	return PIDConfig{P: p.P, I: p.I, D: p.D, Limit: p.Limit}
}

func profileFrom(p drive.Profile) ProfileConfig {
	return ProfileConfig{
		CruiseIPS: p.CruiseVelocity,
		AccelIPS2: p.Acceleration,
		Gains:     GainsConfig{P: p.Gains.P, I: p.Gains.I, D: p.Gains.D, F: p.Gains.F, IZone: p.Gains.IZone},
	}
}

func (p PIDConfig) pid() drive.PID {
	return drive.PID{P: p.P, I: p.I, D: p.D, Limit: p.Limit}
}

func (p ProfileConfig) profile() drive.Profile {
	return drive.Profile{
		CruiseVelocity: p.CruiseIPS,
		Acceleration:   p.AccelIPS2,
		Gains:          robot.Gains{P: p.Gains.P, I: p.Gains.I, D: p.Gains.D, F: p.Gains.F, IZone: p.Gains.IZone},
	}
}

// DriveConfig converts to the drive package's configuration. The loop
// period doubles as the PID dt.
func (c Config) DriveConfig() drive.Config {
	d := c.Drive
	return drive.Config{
		TicksPerInch:     d.TicksPerInch,
		TrackWidthInches: d.TrackWidthInches,
		Period:           c.Loop.Period,
		Tolerances: drive.Tolerances{
			Position:        d.Tolerances.PositionTicks,
			Velocity:        d.Tolerances.VelocityIPS,
			Heading:         d.Tolerances.HeadingDegrees,
			HeadingVelocity: d.Tolerances.HeadingVelocityDPS,
			EncoderZero:     d.Tolerances.EncoderZeroTicks,
			GyroZero:        d.Tolerances.GyroZeroDegrees,
		},
		BangBangPower: d.BangBangPower,
		Forward:       d.Forward.pid(),
		Heading:       d.Heading.pid(),
		Short:         d.Profiles.Short.profile(),
		Long:          d.Profiles.Long.profile(),
		Turn:          d.Profiles.Turn.profile(),
		Trajectory:    d.Trajectory,
	}
}

// Load reads configuration. An empty path searches the working directory
// and $HOME/.config/drivetrain for drivetrain.yaml and carries on with
// defaults when none is found; an explicit path must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return Config{}, err
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// setDefaults registers every field of def, so each key can be overridden
// from the environment even when no file mentions it.
func setDefaults(v *viper.Viper, def Config) error {
	raw, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	walkDefaults(v, "", tree)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			walkDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Dump renders c as YAML.
func Dump(c Config) ([]byte, error) {
	return yaml.Marshal(c)
}
