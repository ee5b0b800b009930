package protocol

import (
	"time"

	"github.com/teslashibe/go-drivetrain/pkg/behavior"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewTelemetryMessage wraps a snapshot taken at ts.
func NewTelemetryMessage(ts time.Time, data TelemetryData) (*Message, error) {
	return NewMessageAt(ts, TypeTelemetry, data)
}

// NewRoutinesMessage creates a running routine list message
func NewRoutinesMessage(running []behavior.Info, pending int) (*Message, error) {
	if running == nil {
		running = []behavior.Info{}
	}
	return NewMessage(TypeRoutines, RoutinesData{Routines: running, Pending: pending})
}

// NewEventMessage creates a routine lifecycle event message
func NewEventMessage(event, routine string, count int) (*Message, error) {
	return NewMessage(TypeEvent, EventData{Event: event, Routine: routine, Count: count})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetTelemetryData extracts telemetry from a message
func (m *Message) GetTelemetryData() (*TelemetryData, error) {
	var data TelemetryData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
