package main

import (
	"fmt"
	"sort"

	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/behavior/routines"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/trajectory"
)

// demos are the autonomous sequences the simulator can run.
var demos = map[string]func(env routines.Env) (behavior.Routine, error){
	"square": func(env routines.Env) (behavior.Routine, error) {
		var steps []behavior.Routine
		for range 4 {
			steps = append(steps,
				routines.NewDriveStraight(env, 36),
				routines.NewSafetyTurn(env, 90),
			)
		}
		return behavior.NewSequential(steps...), nil
	},
	"path": func(env routines.Env) (behavior.Routine, error) {
		cfg := env.Drive.Config()
		path := trajectory.Line("forward", 60, 48, 48, cfg.Period.Seconds())
		return behavior.NewSequential(
			routines.NewDriveSensorReset(env),
			routines.NewDrivePath(env, path, cfg.Trajectory, true, false),
			routines.NewGyroTurn(env, -45),
		), nil
	},
	"slider": func(env routines.Env) (behavior.Routine, error) {
		return behavior.NewSequential(
			routines.NewSliderSensorReset(env),
			routines.NewAutocorrectPositioning(env, robot.SliderTargetLeft),
			routines.NewCustomPositioning(env, 3),
			routines.NewVisionSlider(env),
			routines.NewSpatulaDownAutocorrect(env),
		), nil
	},
	"offboard": func(env routines.Env) (behavior.Routine, error) {
		var steps []behavior.Routine
		for _, leg := range []struct {
			inches  float64
			profile string
		}{{48, "long"}, {-12, "short"}, {24, "short"}} {
			r, err := routines.NewMotionMagicDrive(env, leg.inches, leg.profile, 0)
			if err != nil {
				return nil, err
			}
			steps = append(steps, r)
		}
		steps = append(steps, routines.NewEncoderTurn(env, 180))
		return behavior.NewSequential(steps...), nil
	},
	"score": func(env routines.Env) (behavior.Routine, error) {
		return behavior.NewSequential(
			behavior.NewParallel(
				routines.NewDriveStraight(env, 48),
				routines.NewSpatulaUp(env),
			),
			routines.NewMultiSampleVision(env),
			behavior.NewTimed(env.Clock, env.Config.SpatulaFlipTime,
				routines.NewDriveTime(env, env.Config.SpatulaFlipTime, robot.Percent(-0.3, -0.3)),
			),
		), nil
	},
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildDemo(name string, env routines.Env) (behavior.Routine, error) {
	build, ok := demos[name]
	if !ok {
		return nil, fmt.Errorf("unknown demo %q (have %v)", name, demoNames())
	}
	return build(env)
}
