// internal/discovery/serial.go
package discovery

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"sqm-service/internal/protocol"
)

// SerialOptions configures the port enumeration search for SQM-LU devices.
type SerialOptions struct {
	// Pattern is a printf pattern taking the port index, e.g. "/dev/ttyUSB%d".
	Pattern       string
	Count         int
	UseSystemList bool
	Probe         string
	Marker        byte
	Timeout       time.Duration
	BaudRate      int

	// Opener and ListPorts default to the system serial driver.
	Opener    protocol.PortOpener
	ListPorts func() ([]string, error)
}

// DefaultSerialOptions returns the factory discovery settings for the
// current platform.
func DefaultSerialOptions() SerialOptions {
	return SerialOptions{
		Pattern:  DefaultPortPattern(runtime.GOOS),
		Count:    100,
		Probe:    "ix",
		Marker:   'i',
		Timeout:  time.Second,
		BaudRate: 115200,
	}
}

// DefaultPortPattern returns the USB serial device naming scheme for goos.
func DefaultPortPattern(goos string) string {
	if goos == "windows" {
		return "COM%d"
	}
	return "/dev/ttyUSB%d"
}

// NewSerialStrategy builds the port enumeration strategy.
func NewSerialStrategy(opts SerialOptions, logger *zap.Logger) Strategy {
	listPorts := opts.ListPorts
	if listPorts == nil {
		listPorts = SystemPortNames
	}

	return Strategy{
		Name:       "serial",
		Payload:    []byte(opts.Probe),
		Accept:     MarkerAt(0, opts.Marker),
		Window:     opts.Timeout,
		MaxReplies: 1,
		Candidates: func(context.Context) ([]string, error) {
			if opts.UseSystemList {
				return listPorts()
			}
			return PortCandidates(opts.Pattern, opts.Count), nil
		},
		Dial: func(ctx context.Context, candidate string) (Endpoint, error) {
			return dialSerial(ctx, candidate, opts, logger)
		},
	}
}

// NewSerialLocator creates a locator for SQM-LU devices
func NewSerialLocator(opts SerialOptions, logger *zap.Logger) *Locator {
	return NewLocator(NewSerialStrategy(opts, logger), logger)
}

// PortCandidates expands pattern for indexes 0..count-1.
func PortCandidates(pattern string, count int) []string {
	ports := make([]string, 0, count)
	for i := 0; i < count; i++ {
		ports = append(ports, fmt.Sprintf(pattern, i))
	}
	return ports
}

type serialEndpoint struct {
	name      string
	transport *protocol.SerialTransport
}

func dialSerial(ctx context.Context, name string, opts SerialOptions, logger *zap.Logger) (Endpoint, error) {
	cfg := protocol.DefaultSerialConfig()
	cfg.BaudRate = opts.BaudRate
	cfg.Timeout = opts.Timeout

	transport := protocol.NewSerialTransport(cfg, opts.Opener, logger.Named("probe"))
	if err := transport.Open(ctx, name); err != nil {
		return nil, err
	}
	return &serialEndpoint{name: name, transport: transport}, nil
}

func (e *serialEndpoint) Send(ctx context.Context, payload []byte) error {
	return e.transport.Send(ctx, payload)
}

func (e *serialEndpoint) Receive(ctx context.Context, _ time.Time) ([]byte, string, error) {
	line, err := e.transport.TryRead(ctx)
	return line, e.name, err
}

func (e *serialEndpoint) Close() error {
	return e.transport.Close()
}
