// Package protocol defines the websocket messages the diagnostics surface
// streams to dashboards.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-drivetrain/pkg/behavior"
	"github.com/teslashibe/go-drivetrain/pkg/robot"
)

// MessageType identifies the type of websocket message
type MessageType string

const (
	// Robot → dashboard
	TypeTelemetry MessageType = "telemetry" // Per-tick snapshot
	TypeRoutines  MessageType = "routines"  // Running routine list
	TypeEvent     MessageType = "event"     // Routine lifecycle event

	// Dashboard → robot
	TypeCancel MessageType = "cancel" // Cancel every running routine

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the envelope for every websocket message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a message stamped with the current time
func NewMessage(msgType MessageType, data any) (*Message, error) {
	return NewMessageAt(time.Now(), msgType, data)
}

// NewMessageAt creates a message stamped with ts.
func NewMessageAt(ts time.Time, msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: ts.UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into v
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Payloads
// =============================================================================

// TelemetryData is one tick of drivetrain state.
type TelemetryData struct {
	Tick       uint64               `json:"tick"`
	Wanted     string               `json:"wanted_drive"`
	Controller string               `json:"controller"`
	OnTarget   bool                 `json:"on_target"`
	Pose       robot.Pose           `json:"pose"`
	Setpoint   robot.Pose           `json:"setpoint"`
	Signal     robot.Signal         `json:"signal"`
	Mechanisms robot.Mechanisms     `json:"mechanisms"`
	Slider     robot.SliderFeedback `json:"slider"`
	Routines   []behavior.Info      `json:"routines"`
}

// RoutinesData lists the running routines.
type RoutinesData struct {
	Routines []behavior.Info `json:"routines"`
	Pending  int             `json:"pending"`
}

// EventData is a routine lifecycle event.
type EventData struct {
	Event   string `json:"event"` // admitted, evicted, finished, reset
	Routine string `json:"routine,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// PingData is a health check request
type PingData struct {
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"ts"`
}

// PongData is a health check response
type PongData struct {
	ID        string `json:"id,omitempty"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
