// Package metrics records tick loop, routine and controller metrics with
// Prometheus.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements behavior.Recorder, drive.Observer and
// loop.Recorder on a private registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	ticksTotal      prometheus.Counter
	overrunsTotal   prometheus.Counter
	tickDuration    prometheus.Histogram
	errorsTotal     *prometheus.CounterVec
	routinesRunning prometheus.Gauge
	routineEvents   *prometheus.CounterVec
	resetsTotal     prometheus.Counter
	controllers     *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder with its own registry, so tests
// and multiple loops in one process never collide.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &PrometheusRecorder{
		registry: reg,
		ticksTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "drivetrain_ticks_total",
			Help: "Total number of control loop ticks",
		}),
		overrunsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "drivetrain_tick_overruns_total",
			Help: "Ticks that took longer than the loop period",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "drivetrain_tick_duration_seconds",
			Help:    "Time spent computing one tick",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .02, .05},
		}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drivetrain_errors_total",
			Help: "Hardware errors by loop stage",
		}, []string{"stage"}),
		routinesRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "drivetrain_routines_running",
			Help: "Routines running after the last tick",
		}),
		routineEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drivetrain_routine_events_total",
			Help: "Routine lifecycle events by routine kind",
		}, []string{"routine", "event"}),
		resetsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "drivetrain_routine_resets_total",
			Help: "Times every running routine was cancelled at once",
		}),
		controllers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drivetrain_controller_installs_total",
			Help: "Drive controller installs by kind",
		}, []string{"kind"}),
	}
}

// Registry returns the registry the metrics live in.
func (p *PrometheusRecorder) Registry() *prometheus.Registry { return p.registry }

// ObserveTick records one tick and its compute time.
func (p *PrometheusRecorder) ObserveTick(d time.Duration, overrun bool) {
	p.ticksTotal.Inc()
	p.tickDuration.Observe(d.Seconds())
	if overrun {
		p.overrunsTotal.Inc()
	}
}

// TickError counts a hardware error at stage.
func (p *PrometheusRecorder) TickError(stage string) {
	p.errorsTotal.WithLabelValues(stage).Inc()
}

// RoutinesRunning sets the running routine gauge.
func (p *PrometheusRecorder) RoutinesRunning(n int) {
	p.routinesRunning.Set(float64(n))
}

func (p *PrometheusRecorder) RoutineAdmitted(name string) {
	p.routineEvents.WithLabelValues(kind(name), "admitted").Inc()
}

func (p *PrometheusRecorder) RoutineEvicted(name string) {
	p.routineEvents.WithLabelValues(kind(name), "evicted").Inc()
}

func (p *PrometheusRecorder) RoutineFinished(name string) {
	p.routineEvents.WithLabelValues(kind(name), "finished").Inc()
}

// RoutinesReset counts a reset; count routines were cancelled by it.
func (p *PrometheusRecorder) RoutinesReset(count int) {
	p.resetsTotal.Inc()
	p.routineEvents.WithLabelValues("all", "reset").Add(float64(count))
}

// ControllerInstalled counts a drive controller install.
func (p *PrometheusRecorder) ControllerInstalled(kind string) {
	p.controllers.WithLabelValues(kind).Inc()
}

// kind strips parameters from a routine name to keep label cardinality
// bounded: "DriveStraight(24in)" becomes "DriveStraight".
func kind(name string) string {
	if i := strings.IndexAny(name, "(:"); i > 0 {
		return name[:i]
	}
	return name
}
