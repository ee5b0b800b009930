// Package dashboard serves drivetrain diagnostics over HTTP and streams
// telemetry to websocket clients.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-drivetrain/internal/log"
	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/hub"
	"github.com/teslashibe/go-drivetrain/pkg/loop"
	"github.com/teslashibe/go-drivetrain/pkg/protocol"
)

// Controller is the part of the control loop the dashboard drives.
type Controller interface {
	Running() []behavior.Info
	Pending() int
	RequestCancel()
	Stats() loop.Stats
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// Server is the diagnostics server
type Server struct {
	app  *fiber.App
	addr string
	log  *slog.Logger

	ctrl     Controller
	gatherer prometheus.Gatherer

	// Latest published snapshot
	latest   protocol.TelemetryData
	seen     bool
	latestMu sync.RWMutex

	// Telemetry and routine events share one stream
	telemetry *hub.Hub

	published atomic.Uint64
}

// New creates a diagnostics server listening on addr once started.
func New(addr string, ctrl Controller, opts ...Option) *Server {
	s := &Server{
		addr:      addr,
		ctrl:      ctrl,
		telemetry: hub.New("telemetry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.With("component", "dashboard")
	}

	app := fiber.New(fiber.Config{
		AppName:               "Drivetrain Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/routines", s.handleRoutines)
	api.Get("/stats", s.handleStats)
	api.Post("/cancel", s.handleCancel)

	if s.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Run starts the telemetry hub and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go s.telemetry.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", "addr", s.addr)
		errc <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.log.Warn("dashboard shutdown", "error", err)
		}
		<-s.telemetry.Done()
		return nil
	}
}

// Publish stores t as the latest snapshot and streams it to every client.
func (s *Server) Publish(ts time.Time, t protocol.TelemetryData) {
	s.latestMu.Lock()
	s.latest, s.seen = t, true
	s.latestMu.Unlock()

	msg, err := protocol.NewTelemetryMessage(ts, t)
	if err != nil {
		s.log.Warn("encode telemetry", "error", err)
		return
	}
	s.broadcast(msg)
	s.published.Add(1)
}

// Published returns how many snapshots were streamed.
func (s *Server) Published() uint64 { return s.published.Load() }

// ClientCount returns the number of connected telemetry clients.
func (s *Server) ClientCount() int { return s.telemetry.ClientCount() }

func (s *Server) broadcast(msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		s.log.Warn("encode message", "type", msg.Type, "error", err)
		return
	}
	s.telemetry.Broadcast(hub.NewJSONMessage(data))
}

func (s *Server) event(event, routine string, count int) {
	msg, err := protocol.NewEventMessage(event, routine, count)
	if err != nil {
		return
	}
	s.broadcast(msg)
}

// Routine lifecycle events are streamed alongside telemetry.

func (s *Server) RoutineAdmitted(name string) { s.event("admitted", name, 0) }
func (s *Server) RoutineEvicted(name string)  { s.event("evicted", name, 0) }
func (s *Server) RoutineFinished(name string) { s.event("finished", name, 0) }
func (s *Server) RoutinesReset(count int)     { s.event("reset", "", count) }

var (
	_ loop.Publisher    = (*Server)(nil)
	_ behavior.Recorder = (*Server)(nil)
)
