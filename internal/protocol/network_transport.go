// internal/protocol/network_transport.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// NetworkTransport implements Transport over a TCP stream (SQM-LE)
type NetworkTransport struct {
	config  *NetworkConfig
	conn    net.Conn
	address string
	logger  *zap.Logger
	stats   Stats
}

// NewNetworkTransport creates a new TCP transport
func NewNetworkTransport(config *NetworkConfig, logger *zap.Logger) *NetworkTransport {
	if config == nil {
		config = DefaultNetworkConfig()
	}
	cfg := *config
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultNetworkConfig().BufferSize
	}
	return &NetworkTransport{
		config: &cfg,
		logger: logger.With(zap.String("protocol", "tcp")),
	}
}

// Open dials the sensor. A bare host gets the configured port appended.
func (nt *NetworkTransport) Open(ctx context.Context, address string) error {
	if nt.conn != nil {
		return nil
	}

	target := nt.resolve(address)
	nt.logger.Info("Opening TCP connection",
		zap.String("address", target),
		zap.Duration("connect_timeout", nt.config.ConnectTimeout),
	)

	dialer := &net.Dialer{
		Timeout:   nt.config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		nt.stats.ErrorCount++
		nt.logger.Warn("Failed to open TCP connection", zap.Error(err))
		return newOpError(OpOpen, KindNetwork, target, err)
	}

	nt.conn = conn
	nt.address = target
	nt.stats.IsConnected = true
	nt.stats.OpenCount++
	nt.stats.LastActivity = time.Now()

	nt.logger.Info("TCP connection opened successfully", zap.String("address", target))
	return nil
}

// Close resets the connection without lingering on unsent data
func (nt *NetworkTransport) Close() error {
	if nt.conn == nil {
		return nil
	}

	if tcpConn, ok := nt.conn.(*net.TCPConn); ok {
		_ = tcpConn.SetLinger(0)
	}

	err := nt.conn.Close()
	nt.conn = nil
	nt.stats.IsConnected = false
	if err != nil {
		nt.logger.Error("Failed to close TCP connection", zap.Error(err))
		return newOpError(OpClose, KindNetwork, nt.address, err)
	}

	nt.logger.Info("TCP connection closed", zap.String("address", nt.address))
	return nil
}

// IsOpen returns whether the connection is open
func (nt *NetworkTransport) IsOpen() bool {
	return nt.conn != nil
}

// Send writes the full payload to the socket
func (nt *NetworkTransport) Send(ctx context.Context, data []byte) error {
	if nt.conn == nil {
		return newOpError(OpWrite, KindNetwork, nt.address, ErrNotConnected)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if nt.config.WriteTimeout > 0 {
		_ = nt.conn.SetWriteDeadline(time.Now().Add(nt.config.WriteTimeout))
	}

	n, err := nt.conn.Write(data)
	if err != nil {
		nt.stats.ErrorCount++
		return newOpError(OpWrite, KindNetwork, nt.address, err)
	}
	if n != len(data) {
		nt.stats.ErrorCount++
		return newOpError(OpWrite, KindNetwork, nt.address,
			fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data)))
	}

	nt.stats.recordWrite(n)
	nt.logger.Debug("TCP write completed", zap.Int("bytes", n))
	return nil
}

// TryRead performs one bounded recv. A deadline expiry is not an error.
func (nt *NetworkTransport) TryRead(ctx context.Context) ([]byte, error) {
	if nt.conn == nil {
		return nil, newOpError(OpRead, KindNetwork, nt.address, ErrNotConnected)
	}

	if err := nt.conn.SetReadDeadline(readDeadline(ctx, nt.config.ReadTimeout)); err != nil {
		return nil, newOpError(OpRead, KindNetwork, nt.address, err)
	}

	buffer := make([]byte, nt.config.BufferSize)
	n, err := nt.conn.Read(buffer)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			nt.stats.recordRead(0)
			return nil, nil
		}
		nt.stats.ErrorCount++
		return nil, newOpError(OpRead, KindNetwork, nt.address, err)
	}

	nt.stats.recordRead(n)
	if n == 0 {
		return nil, nil
	}

	data := make([]byte, n)
	copy(data, buffer[:n])
	return data, nil
}

// Kind returns the transport kind
func (nt *NetworkTransport) Kind() Kind {
	return KindNetwork
}

// Address returns the last address that was opened
func (nt *NetworkTransport) Address() string {
	return nt.address
}

// Stats returns a snapshot of the transport statistics
func (nt *NetworkTransport) Stats() Stats {
	return nt.stats
}

func (nt *NetworkTransport) resolve(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(address, strconv.Itoa(nt.config.Port))
}
