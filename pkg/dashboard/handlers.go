package dashboard

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/hub"
	"github.com/teslashibe/go-drivetrain/pkg/protocol"
)

// handleStatus returns the latest telemetry snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	if !s.seen {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no telemetry yet",
		})
	}
	return c.JSON(s.latest)
}

// handleRoutines lists the running routines
func (s *Server) handleRoutines(c *fiber.Ctx) error {
	running := s.ctrl.Running()
	if running == nil {
		running = []behavior.Info{}
	}
	return c.JSON(protocol.RoutinesData{Routines: running, Pending: s.ctrl.Pending()})
}

// handleStats returns the loop counters
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"loop":      s.ctrl.Stats(),
		"clients":   s.telemetry.ClientCount(),
		"published": s.published.Load(),
		"dropped":   s.telemetry.Dropped(),
	})
}

// handleCancel cancels every running routine on the next tick
func (s *Server) handleCancel(c *fiber.Ctx) error {
	s.ctrl.RequestCancel()
	s.log.Info("cancel requested", "via", "http", "remote", c.IP())
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"cancelled": true,
	})
}

// handleTelemetryWS streams telemetry and accepts cancel and ping messages
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	var client *hub.Client
	client = hub.NewClient(s.telemetry, c, func(data []byte) {
		s.handleClientMessage(client, data)
	})
	client.Run()
}

func (s *Server) handleClientMessage(client *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.log.Debug("bad client message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeCancel:
		s.ctrl.RequestCancel()
		s.log.Info("cancel requested", "via", "websocket")

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return
		}
		out, err := pong.Bytes()
		if err != nil {
			return
		}
		client.Send(hub.NewJSONMessage(out))

	default:
		s.log.Debug("ignored client message", "type", msg.Type)
	}
}
