// internal/discovery/network.go
package discovery

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// NetworkOptions configures the UDP broadcast search for SQM-LE devices.
// The marker and MAC offsets follow the vendor's discovery reply layout and
// are best-effort.
type NetworkOptions struct {
	BroadcastAddr string
	Port          int
	ProbeHex      string
	Window        time.Duration
	MarkerOffset  int
	Marker        byte
	MACStart      int
	MACEnd        int
}

// DefaultNetworkOptions returns the factory discovery settings.
func DefaultNetworkOptions() NetworkOptions {
	return NetworkOptions{
		BroadcastAddr: "255.255.255.255",
		Port:          30718,
		ProbeHex:      "000000f6",
		Window:        3 * time.Second,
		MarkerOffset:  3,
		Marker:        0xf7,
		MACStart:      24,
		MACEnd:        30,
	}
}

// NewNetworkStrategy builds the broadcast probe strategy.
func NewNetworkStrategy(opts NetworkOptions) (Strategy, error) {
	payload, err := hex.DecodeString(opts.ProbeHex)
	if err != nil {
		return Strategy{}, fmt.Errorf("invalid discovery probe %q: %w", opts.ProbeHex, err)
	}

	target := net.JoinHostPort(opts.BroadcastAddr, strconv.Itoa(opts.Port))

	return Strategy{
		Name:    "network",
		Payload: payload,
		Accept:  MarkerAt(opts.MarkerOffset, opts.Marker),
		Window:  opts.Window,
		Candidates: func(context.Context) ([]string, error) {
			return []string{target}, nil
		},
		Dial: dialBroadcast,
		Describe: func(reply []byte) []zap.Field {
			if len(reply) < opts.MACEnd || opts.MACStart >= opts.MACEnd {
				return nil
			}
			return []zap.Field{zap.String("mac", hex.EncodeToString(reply[opts.MACStart:opts.MACEnd]))}
		},
	}, nil
}

// NewNetworkLocator creates a locator for SQM-LE devices
func NewNetworkLocator(opts NetworkOptions, logger *zap.Logger) (*Locator, error) {
	strategy, err := NewNetworkStrategy(opts)
	if err != nil {
		return nil, err
	}
	return NewLocator(strategy, logger), nil
}

// MarkerAt accepts replies carrying marker at offset.
func MarkerAt(offset int, marker byte) func([]byte) bool {
	return func(reply []byte) bool {
		return offset >= 0 && len(reply) > offset && reply[offset] == marker
	}
}

type broadcastEndpoint struct {
	conn   net.PacketConn
	target *net.UDPAddr
}

// dialBroadcast opens an unbound UDP socket. The runtime enables
// SO_BROADCAST on datagram sockets.
func dialBroadcast(ctx context.Context, target string) (Endpoint, error) {
	addr, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return nil, err
	}
	return &broadcastEndpoint{conn: conn, target: addr}, nil
}

func (e *broadcastEndpoint) Send(_ context.Context, payload []byte) error {
	_, err := e.conn.WriteTo(payload, e.target)
	return err
}

func (e *broadcastEndpoint) Receive(ctx context.Context, deadline time.Time) ([]byte, string, error) {
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := e.conn.SetReadDeadline(deadline); err != nil {
		return nil, "", err
	}

	buf := make([]byte, 512)
	n, from, err := e.conn.ReadFrom(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, "", nil
		}
		return nil, "", err
	}

	host := from.String()
	if udpAddr, ok := from.(*net.UDPAddr); ok {
		host = udpAddr.IP.String()
	}
	reply := make([]byte, n)
	copy(reply, buf[:n])
	return reply, host, nil
}

func (e *broadcastEndpoint) Close() error {
	return e.conn.Close()
}
