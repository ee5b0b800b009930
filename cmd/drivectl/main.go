// Command drivectl runs the drivetrain core against the simulator and
// inspects configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli"

	"github.com/teslashibe/go-drivetrain/internal/config"
	"github.com/teslashibe/go-drivetrain/internal/log"
	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/behavior/routines"
	"github.com/teslashibe/go-drivetrain/pkg/dashboard"
	"github.com/teslashibe/go-drivetrain/pkg/drive"
	"github.com/teslashibe/go-drivetrain/pkg/loop"
	"github.com/teslashibe/go-drivetrain/pkg/metrics"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
	"github.com/teslashibe/go-drivetrain/pkg/sim"
)

var fileFlag = cli.StringFlag{
	Name:  "file, f",
	Usage: "config file (default: drivetrain.yaml in . or ~/.config/drivetrain)",
}

func main() {
	app := cli.NewApp()
	app.Name = "drivectl"
	app.Usage = "run and inspect the drivetrain core"
	app.Commands = []cli.Command{
		{
			Name:  "sim",
			Usage: "run a demo autonomous sequence on the simulator",
			Flags: []cli.Flag{
				fileFlag,
				cli.DurationFlag{
					Name:  "duration",
					Value: 10 * time.Second,
					Usage: "how long to run",
				},
				cli.StringFlag{
					Name:  "demo",
					Value: "square",
					Usage: "demo sequence: " + strings.Join(demoNames(), ", "),
				},
				cli.BoolFlag{
					Name:  "dashboard",
					Usage: "serve the diagnostics dashboard while running",
				},
				cli.Float64Flag{
					Name:  "vision-xdist",
					Value: -2,
					Usage: "simulated vision target offset in inches",
				},
				cli.BoolFlag{
					Name:  "broken-gyro",
					Usage: "simulate a failed gyro",
				},
			},
			Action: runSim,
		},
		{
			Name:   "config",
			Usage:  "print the effective configuration as YAML",
			Flags:  []cli.Flag{fileFlag},
			Action: printConfig,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "drivectl:", err)
		os.Exit(1)
	}
}

func printConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("file"))
	if err != nil {
		return err
	}
	out, err := config.Dump(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// fixedVision always sees the target at the same offset.
type fixedVision float64

func (v fixedVision) XDist() float64 { return float64(v) }

// loopRef lets the dashboard be built before the loop it controls.
type loopRef struct{ *loop.Loop }

func runSim(c *cli.Context) error {
	cfg, err := config.Load(c.String("file"))
	if err != nil {
		return err
	}
	if c.Bool("dashboard") {
		cfg.Dashboard.Enabled = true
	}
	log.Init(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, c.Duration("duration"))
	defer cancel()

	rec := metrics.NewPrometheusRecorder()
	bot := sim.New(sim.DefaultGeometry())
	bot.BreakGyro(c.Bool("broken-gyro"))
	holder := robot.NewStateHolder(robot.State{})
	clock := clockwork.NewRealClock()
	drv := drive.New(cfg.DriveConfig(), holder, drive.WithObserver(rec))

	recorders := behavior.Recorders{rec}
	ref := &loopRef{}
	var srv *dashboard.Server
	if cfg.Dashboard.Enabled {
		srv = dashboard.New(cfg.Dashboard.Addr, ref, dashboard.WithGatherer(rec.Registry()))
		recorders = append(recorders, srv)
	}
	manager := behavior.NewManager(behavior.WithRecorder(recorders))

	opts := []loop.Option{
		loop.WithClock(clock),
		loop.WithPeriod(cfg.Loop.Period),
		loop.WithRecorder(rec),
		loop.WithAfterTick(bot.Step),
	}
	if srv != nil {
		opts = append(opts, loop.WithPublisher(srv, cfg.Loop.TelemetryEvery))
	}
	l, err := loop.New(loop.Deps{
		Hardware: bot,
		Holder:   holder,
		Manager:  manager,
		Drive:    drv,
	}, opts...)
	if err != nil {
		return err
	}
	ref.Loop = l

	env := routines.Env{
		Drive:   drv,
		Clock:   clock,
		State:   holder,
		Sensors: bot,
		Vision:  fixedVision(c.Float64("vision-xdist")),
		Config:  cfg.Routines,
	}
	demo, err := buildDemo(c.String("demo"), env)
	if err != nil {
		return err
	}
	if err := l.Autonomous(demo); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	if srv != nil {
		go func() { serveErr <- srv.Run(ctx) }()
	}

	log.Info("simulation started", "demo", c.String("demo"), "duration", c.Duration("duration"))
	err = l.Run(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return err
	}
	cancel()
	if srv != nil {
		if err := <-serveErr; err != nil {
			log.Warn("dashboard", "error", err)
		}
	}

	pose := holder.Latest().Pose
	stats := l.Stats()
	log.Info("simulation finished",
		"ticks", stats.Ticks,
		"overruns", stats.Overruns,
		"errors", stats.Errors,
		"left_in", drv.Config().TicksToInches(pose.LeftEnc),
		"right_in", drv.Config().TicksToInches(pose.RightEnc),
		"heading", pose.Heading)
	return nil
}
