// internal/protocol/protocol.go
package protocol

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind identifies the physical link to the sensor.
type Kind string

const (
	KindNetwork Kind = "network"
	KindSerial  Kind = "serial"
)

// ParseDeviceType maps a configured device type onto its transport kind.
// SQM-LE devices sit on the network, SQM-LU devices on a serial line.
func ParseDeviceType(deviceType string) (Kind, error) {
	switch strings.ToUpper(strings.ReplaceAll(deviceType, "_", "-")) {
	case "SQM-LE", "NETWORK", "TCP":
		return KindNetwork, nil
	case "SQM-LU", "SERIAL", "":
		return KindSerial, nil
	default:
		return "", fmt.Errorf("unsupported device type: %s", deviceType)
	}
}

// Transport is the link to one sensor. Implementations are not shared across
// sessions and are not safe for concurrent use; callers serialize access.
type Transport interface {
	// Connection lifecycle
	Open(ctx context.Context, address string) error
	Close() error
	IsOpen() bool

	// Data communication
	Send(ctx context.Context, data []byte) error
	// TryRead returns nil data and a nil error when nothing arrived before
	// the read timeout.
	TryRead(ctx context.Context) ([]byte, error)

	Kind() Kind
	Address() string
	Stats() Stats
}

// Stats provides transport-level statistics
type Stats struct {
	BytesWritten   int64     `json:"bytes_written"`
	BytesRead      int64     `json:"bytes_read"`
	OperationCount int64     `json:"operation_count"`
	ErrorCount     int64     `json:"error_count"`
	OpenCount      int64     `json:"open_count"`
	LastActivity   time.Time `json:"last_activity"`
	IsConnected    bool      `json:"is_connected"`
}

func (s *Stats) recordWrite(n int) {
	s.BytesWritten += int64(n)
	s.OperationCount++
	s.LastActivity = time.Now()
}

func (s *Stats) recordRead(n int) {
	s.BytesRead += int64(n)
	s.OperationCount++
	if n > 0 {
		s.LastActivity = time.Now()
	}
}

// readDeadline picks the earlier of the read timeout and the context deadline.
func readDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}
