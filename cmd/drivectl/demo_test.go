package main

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-drivetrain/internal/config"
	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/behavior/routines"
	"github.com/teslashibe/go-drivetrain/pkg/drive"
	"github.com/teslashibe/go-drivetrain/pkg/loop"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/sim"
)

func TestBuildDemoUnknown(t *testing.T) {
	_, err := buildDemo("figure-eight", routines.Env{})
	assert.ErrorContains(t, err, "unknown demo")
}

func TestDemoNamesSorted(t *testing.T) {
	assert.Equal(t, []string{"offboard", "path", "score", "slider", "square"}, demoNames())
}

type simRig struct {
	loop    *loop.Loop
	manager *behavior.Manager
	holder  *robot.StateHolder
	env     routines.Env
}

func newSimRig(t *testing.T) *simRig {
	t.Helper()
	cfg := config.Default()
	clock := clockwork.NewFakeClock()
	bot := sim.New(sim.DefaultGeometry())
	holder := robot.NewStateHolder(robot.State{})
	drv := drive.New(cfg.DriveConfig(), holder)
	manager := behavior.NewManager()

	l, err := loop.New(loop.Deps{Hardware: bot, Holder: holder, Manager: manager, Drive: drv},
		loop.WithClock(clock),
		loop.WithAfterTick(func(d time.Duration) {
			bot.Step(d)
			clock.Advance(d)
		}))
	require.NoError(t, err)

	return &simRig{
		loop:    l,
		manager: manager,
		holder:  holder,
		env: routines.Env{
			Drive:   drv,
			Clock:   clock,
			State:   holder,
			Sensors: bot,
			Vision:  fixedVision(-2),
			Config:  cfg.Routines,
		},
	}
}

func TestDemosRunOnSimulator(t *testing.T) {
	for _, name := range demoNames() {
		t.Run(name, func(t *testing.T) {
			rig := newSimRig(t)
			demo, err := buildDemo(name, rig.env)
			require.NoError(t, err)
			require.NoError(t, rig.loop.Autonomous(demo))

			for range 50 {
				rig.loop.Tick()
			}
			assert.True(t, rig.manager.IsRunning(demo), "demo should still be running")
			assert.Zero(t, rig.loop.Stats().Errors)
		})
	}
}

func TestOffboardDemoCompletes(t *testing.T) {
	rig := newSimRig(t)
	demo, err := buildDemo("offboard", rig.env)
	require.NoError(t, err)
	require.NoError(t, rig.loop.Autonomous(demo))

	seq := demo.(*behavior.Sequential)
	for i := 0; i < 5000 && !seq.Finished(); i++ {
		rig.loop.Tick()
	}
	require.True(t, seq.Finished(), "stalled at leg %d", seq.Current())

	cfg := rig.env.Drive.Config()
	// 48 - 12 + 24 inches forward, then an in-place half turn
	pose := rig.holder.Latest().Pose
	assert.InDelta(t, 60, cfg.TicksToInches(pose.AverageEnc()), 1)
	assert.InDelta(t, 180, pose.Heading, 5)
}
