// Package protocol defines the wire formats olivesort speaks: the ASCII
// line protocol to the sorter microcontroller and the WebSocket messages
// pushed to the operator dashboard.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Sorter → Dashboard messages
	TypeState     MessageType = "state"     // Pipeline state and status text
	TypeQuadrants MessageType = "quadrants" // New quadrant crops are available
	TypeCycle     MessageType = "cycle"     // A sorting cycle finished

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
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
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
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

// StateData is a snapshot of the sorter as shown on the dashboard.
type StateData struct {
	State   string `json:"state"`    // Idle, Dropping, Warming, ...
	Status  string `json:"status"`   // Operator-facing status line
	Busy    bool   `json:"busy"`     // A cycle is running
	CycleID string `json:"cycle_id"` // Current or last cycle
}

// QuadrantsData announces freshly split crops.
// Clients fetch the JPEGs from /api/quadrants/{pos}?v={version}.
type QuadrantsData struct {
	CycleID string   `json:"cycle_id"`
	Version uint64   `json:"version"`
	Panes   []string `json:"panes"` // tl, tr, bl, br
}

// CycleData summarises a finished sorting cycle.
type CycleData struct {
	ID         string     `json:"id"`
	OK         bool       `json:"ok"`
	Status     string     `json:"status"`
	Labels     [4]string  `json:"labels"`
	Scores     [4]float64 `json:"scores"`
	Command    string     `json:"command,omitempty"`
	DurationMs int64      `json:"duration_ms"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}

// NewStateMessage creates a state message
func NewStateMessage(s StateData) (*Message, error) {
	return NewMessage(TypeState, s)
}

// NewQuadrantsMessage creates a quadrants message
func NewQuadrantsMessage(q QuadrantsData) (*Message, error) {
	return NewMessage(TypeQuadrants, q)
}

// NewCycleMessage creates a cycle summary message
func NewCycleMessage(c CycleData) (*Message, error) {
	return NewMessage(TypeCycle, c)
}

// NewPongMessage answers a ping
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}
