// internal/protocol/serial_transport.go
package protocol

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// SerialPort is the subset of serial.Port the transport relies on.
type SerialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// PortOpener opens a named serial port.
type PortOpener func(name string, mode *serial.Mode) (SerialPort, error)

// OpenSerialPort opens a real port through go.bug.st/serial.
func OpenSerialPort(name string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// SerialTransport implements Transport over a serial line (SQM-LU).
// TryRead yields one newline-terminated line per call.
type SerialTransport struct {
	config  *SerialConfig
	open    PortOpener
	port    SerialPort
	address string
	pending []byte
	logger  *zap.Logger
	stats   Stats
}

// NewSerialTransport creates a new serial transport. A nil opener uses the
// system serial driver.
func NewSerialTransport(config *SerialConfig, opener PortOpener, logger *zap.Logger) *SerialTransport {
	if config == nil {
		config = DefaultSerialConfig()
	}
	cfg := *config
	if cfg.MaxLineLength <= 0 {
		cfg.MaxLineLength = DefaultSerialConfig().MaxLineLength
	}
	if opener == nil {
		opener = OpenSerialPort
	}
	return &SerialTransport{
		config: &cfg,
		open:   opener,
		logger: logger.With(zap.String("protocol", "serial")),
	}
}

// Open opens the serial port
func (st *SerialTransport) Open(ctx context.Context, address string) error {
	if st.port != nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return newOpError(OpOpen, KindSerial, address, ctx.Err())
	default:
	}

	st.logger.Info("Opening serial port",
		zap.String("port", address),
		zap.Int("baud_rate", st.config.BaudRate),
	)

	port, err := st.open(address, st.mode())
	if err != nil {
		st.stats.ErrorCount++
		st.logger.Debug("Failed to open serial port", zap.String("port", address), zap.Error(err))
		return newOpError(OpOpen, KindSerial, address, err)
	}

	if err := port.SetReadTimeout(st.config.Timeout); err != nil {
		port.Close()
		return newOpError(OpOpen, KindSerial, address, fmt.Errorf("failed to set read timeout: %w", err))
	}

	st.port = port
	st.address = address
	st.pending = nil
	st.stats.IsConnected = true
	st.stats.OpenCount++
	st.stats.LastActivity = time.Now()

	st.logger.Info("Serial port opened successfully", zap.String("port", address))
	return nil
}

// Close closes the serial port
func (st *SerialTransport) Close() error {
	if st.port == nil {
		return nil
	}

	err := st.port.Close()
	st.port = nil
	st.pending = nil
	st.stats.IsConnected = false
	if err != nil {
		st.logger.Error("Failed to close serial port", zap.Error(err))
		return newOpError(OpClose, KindSerial, st.address, err)
	}

	st.logger.Info("Serial port closed", zap.String("port", st.address))
	return nil
}

// IsOpen returns whether the port is open
func (st *SerialTransport) IsOpen() bool {
	return st.port != nil
}

// Send writes data to the serial port
func (st *SerialTransport) Send(ctx context.Context, data []byte) error {
	if st.port == nil {
		return newOpError(OpWrite, KindSerial, st.address, ErrNotConnected)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	n, err := st.port.Write(data)
	if err != nil {
		st.stats.ErrorCount++
		return newOpError(OpWrite, KindSerial, st.address, err)
	}
	if n != len(data) {
		st.stats.ErrorCount++
		return newOpError(OpWrite, KindSerial, st.address,
			fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data)))
	}

	st.stats.recordWrite(n)
	st.logger.Debug("Serial write completed", zap.Int("bytes", n))
	return nil
}

// TryRead reads one line and never blocks past the read timeout. On timeout
// it returns whatever partial line arrived, or nil when nothing did.
func (st *SerialTransport) TryRead(ctx context.Context) ([]byte, error) {
	if st.port == nil {
		return nil, newOpError(OpRead, KindSerial, st.address, ErrNotConnected)
	}

	deadline := readDeadline(ctx, st.config.Timeout)
	chunk := make([]byte, 64)

	for {
		if i := bytes.IndexByte(st.pending, '\n'); i >= 0 {
			return st.takeLine(i + 1), nil
		}
		if len(st.pending) >= st.config.MaxLineLength {
			return st.takeLine(len(st.pending)), nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 || ctx.Err() != nil {
			break
		}
		// each Read may only use what is left of the overall timeout
		if err := st.port.SetReadTimeout(remaining); err != nil {
			st.stats.ErrorCount++
			return nil, newOpError(OpRead, KindSerial, st.address, fmt.Errorf("failed to set read timeout: %w", err))
		}

		n, err := st.port.Read(chunk)
		if err != nil && err != io.EOF {
			st.stats.ErrorCount++
			return nil, newOpError(OpRead, KindSerial, st.address, err)
		}
		if n == 0 {
			break
		}
		st.pending = append(st.pending, chunk[:n]...)
	}

	if len(st.pending) == 0 {
		st.stats.recordRead(0)
		return nil, nil
	}
	return st.takeLine(len(st.pending)), nil
}

// Kind returns the transport kind
func (st *SerialTransport) Kind() Kind {
	return KindSerial
}

// Address returns the last port that was opened
func (st *SerialTransport) Address() string {
	return st.address
}

// Stats returns a snapshot of the transport statistics
func (st *SerialTransport) Stats() Stats {
	return st.stats
}

func (st *SerialTransport) takeLine(n int) []byte {
	line := make([]byte, n)
	copy(line, st.pending[:n])
	st.pending = append(st.pending[:0], st.pending[n:]...)
	st.stats.recordRead(n)
	return line
}

func (st *SerialTransport) mode() *serial.Mode {
	mode := &serial.Mode{
		BaudRate: st.config.BaudRate,
		DataBits: st.config.DataBits,
		StopBits: serial.OneStopBit,
	}
	if st.config.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch st.config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode
}
