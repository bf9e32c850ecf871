// internal/service/types.go
package service

import (
	"time"

	"sqm-service/internal/protocol"
)

// CommandRequest asks the sensor for one reply
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
	// Retries overrides the configured retry budget when set
	Retries *int `json:"retries,omitempty" binding:"omitempty,min=0,max=100"`
}

// SendRequest writes a command without waiting for a reply
type SendRequest struct {
	Command string `json:"command" binding:"required"`
}

// CommandResult is the outcome of one command/response exchange. An empty
// Response means every attempt failed.
type CommandResult struct {
	Command    string        `json:"command"`
	Response   string        `json:"response"`
	Reconnects int64         `json:"reconnects"`
	Duration   time.Duration `json:"duration"`
	ReceivedAt time.Time     `json:"received_at"`
}

// ReadingsBatch is one drain of the readings buffer
type ReadingsBatch struct {
	Readings    []string  `json:"readings"`
	Count       int       `json:"count"`
	CollectedAt time.Time `json:"collected_at"`
}

// SensorStatus describes the session
type SensorStatus struct {
	SessionID  string         `json:"session_id"`
	DeviceType string         `json:"device_type"`
	Transport  protocol.Kind  `json:"transport"`
	State      string         `json:"state"`
	Address    string         `json:"address"`
	Connected  bool           `json:"connected"`
	Listening  bool           `json:"listening"`
	Buffered   int            `json:"buffered"`
	Retries    int            `json:"retries"`
	Reconnects int64          `json:"reconnects"`
	Stats      protocol.Stats `json:"stats"`
}
