// Package sensor drives one SQM photometer over a protocol.Transport:
// connection setup with discovery fallback, the command/response exchange
// with bounded retries, and background collection of unsolicited readings.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sqm-service/internal/protocol"
)

// State is the session lifecycle state
type State int32

const (
	StateDisconnected State = iota
	StateIdle
	StateListening
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	default:
		return "disconnected"
	}
}

// Locator finds a working device address.
type Locator interface {
	Locate(ctx context.Context) (string, error)
}

// Settings is the immutable per-session configuration.
type Settings struct {
	Kind     protocol.Kind
	Address  string
	Tries    int
	Debug    bool
	Encoding string

	LongSettle  time.Duration
	MidSettle   time.Duration
	ShortSettle time.Duration

	// PollInterval is the continuous read cadence; zero uses ShortSettle.
	PollInterval time.Duration
	// DrainLimit caps the read-until-idle loops at connect and close;
	// zero means unbounded.
	DrainLimit int
}

var (
	errNoData     = fmt.Errorf("%w: no data before read timeout", protocol.ErrRead)
	errEmptyReply = fmt.Errorf("%w: empty reply", protocol.ErrDecode)
)

// Session owns one transport and the readings collected from it
type Session struct {
	id        string
	settings  Settings
	transport protocol.Transport
	locator   Locator
	codec     *protocol.Codec
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error

	// cmdMu serializes whole commands, retries included. The continuous
	// reader only takes mu, so it keeps polling between attempts.
	cmdMu sync.Mutex
	// mu serializes every transport operation
	mu      sync.Mutex
	address string

	readerMu sync.Mutex
	reader   *continuousReader

	state      atomic.Int32
	active     atomic.Bool
	reconnects atomic.Int64
	buffer     ReadBuffer
}

// NewSession creates a disconnected session. locator may be nil, in which
// case Connect fails when the configured address does not open.
func NewSession(settings Settings, transport protocol.Transport, locator Locator, logger *zap.Logger) (*Session, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}

	codec, err := protocol.NewCodec(settings.Encoding)
	if err != nil {
		return nil, err
	}

	if settings.Tries < 0 {
		settings.Tries = 0
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = settings.ShortSettle
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = 100 * time.Millisecond
	}

	id := uuid.NewString()
	return &Session{
		id:        id,
		settings:  settings,
		transport: transport,
		locator:   locator,
		codec:     codec,
		logger: logger.With(
			zap.String("session_id", id),
			zap.String("transport", string(transport.Kind())),
		),
		sleep:   sleepContext,
		address: settings.Address,
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

// Address returns the address the transport was last opened at
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Retries returns the configured retry budget for one command
func (s *Session) Retries() int {
	return s.settings.Tries
}

// Reconnects returns how many resets the session performed
func (s *Session) Reconnects() int64 {
	return s.reconnects.Load()
}

// Buffered returns the number of readings waiting to be drained
func (s *Session) Buffered() int {
	return s.buffer.Len()
}

// Kind returns the transport kind
func (s *Session) Kind() protocol.Kind {
	return s.transport.Kind()
}

// Stats returns the transport statistics
func (s *Session) Stats() protocol.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport.Stats()
}

// Connect opens the transport at the configured address, falling back to
// discovery, then flushes bytes left over from a previous run.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport.IsOpen() {
		return nil
	}

	address := s.settings.Address
	err := s.openLocked(ctx, address)
	if err != nil {
		if s.locator == nil {
			return err
		}

		s.logger.Warn("Device not found at configured address, searching for device address",
			zap.String("address", address),
			zap.Error(err),
		)
		found, lerr := s.locator.Locate(ctx)
		if lerr != nil {
			return lerr
		}
		s.logger.Info("Found device address", zap.String("address", found))

		if err := s.openLocked(ctx, found); err != nil {
			return err
		}
	}

	s.state.Store(int32(StateIdle))
	s.flushLocked(ctx)
	return nil
}

func (s *Session) openLocked(ctx context.Context, address string) error {
	if address == "" {
		return &protocol.OpError{Op: protocol.OpOpen, Kind: s.transport.Kind(), Err: errors.New("no address configured")}
	}
	if err := s.transport.Open(ctx, address); err != nil {
		return err
	}

	s.address = address
	if resolved := s.transport.Address(); resolved != "" {
		s.address = resolved
	}
	s.logger.Info("Device connected", zap.String("address", s.address))
	return nil
}

// flushLocked reads until the device goes quiet, discarding what it gets.
func (s *Session) flushLocked(ctx context.Context) {
	discarded := s.readUntilIdleLocked(ctx)
	s.logger.Debug("Cleared stale input", zap.Strings("discarded", discarded))
}

// ClearBuffer performs one read and discards its content.
func (s *Session) ClearBuffer(ctx context.Context) (string, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.transport.TryRead(ctx)
	if err != nil {
		return "", err
	}
	text, err := s.codec.Decode(data)
	if err != nil {
		s.logger.Warn("Discarded input did not decode", zap.Int("bytes", len(data)), zap.Error(err))
		return "", nil
	}
	s.logger.Info("Clearing buffer", zap.String("discarded", text))
	return text, nil
}

// Send writes a command without waiting for its reply. Replies are picked up
// by the continuous reader.
func (s *Session) Send(ctx context.Context, command string) error {
	payload, err := s.codec.Encode(command)
	if err != nil {
		return err
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Sending to sensor", zap.String("command", command))
	return s.transport.Send(ctx, payload)
}

// SendAndReceive sends command and returns the first non-empty reply. A
// failed or empty read triggers a reset and a new attempt, at most retries
// times. When every attempt fails the result is empty; the error is only
// returned in debug mode. Concurrent calls run one after another.
func (s *Session) SendAndReceive(ctx context.Context, command string, retries int) (string, error) {
	if retries < 0 {
		retries = 0
	}

	payload, err := s.codec.Encode(command)
	if err != nil {
		return "", err
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	for attempt := 0; ; attempt++ {
		reply, err := s.exchange(ctx, payload)
		if err == nil {
			if attempt > 0 {
				s.logger.Info("Sensor info",
					zap.String("reply", reply),
					zap.Int("attempt", attempt+1),
				)
			}
			return reply, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		if attempt >= retries {
			s.logger.Error("Error reading the photometer",
				zap.String("command", command),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			if s.settings.Debug {
				return "", fmt.Errorf("command %q failed after %d attempts: %w: %w",
					command, attempt+1, protocol.ErrRetriesExhausted, err)
			}
			return "", nil
		}

		s.logger.Warn("Sensor read failed, resetting connection",
			zap.String("command", command),
			zap.Int("retries_left", retries-attempt-1),
			zap.Error(err),
		)

		if err := s.sleep(ctx, s.settings.MidSettle); err != nil {
			return "", err
		}
		if err := s.reset(ctx); err != nil {
			s.logger.Warn("Reset failed", zap.Error(err))
		}
		if err := s.sleep(ctx, s.settings.MidSettle); err != nil {
			return "", err
		}
	}
}

// exchange holds the transport for send, settle and read so the continuous
// reader cannot take the reply.
func (s *Session) exchange(ctx context.Context, payload []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transport.Send(ctx, payload); err != nil {
		return "", err
	}
	if err := s.sleep(ctx, s.settings.LongSettle); err != nil {
		return "", err
	}
	return s.readLocked(ctx)
}

// readLocked performs one read and records a non-empty reply.
func (s *Session) readLocked(ctx context.Context) (string, error) {
	data, err := s.transport.TryRead(ctx)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errNoData
	}

	text, err := s.codec.Decode(data)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errEmptyReply
	}

	s.buffer.Append(text)
	return text, nil
}

// Reset closes and reopens the transport at the known address. Discovery is
// not repeated.
func (s *Session) Reset(ctx context.Context) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	return s.reset(ctx)
}

func (s *Session) reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconnects.Add(1)
	s.logger.Info("Resetting device connection", zap.String("address", s.address))

	if err := s.teardownLocked(ctx); err != nil {
		s.logger.Warn("Close during reset failed", zap.Error(err))
	}
	if err := s.sleep(ctx, s.settings.ShortSettle); err != nil {
		return err
	}
	if err := s.openLocked(ctx, s.address); err != nil {
		s.state.Store(int32(StateDisconnected))
		return err
	}

	if s.listening() {
		s.state.Store(int32(StateListening))
	} else {
		s.state.Store(int32(StateIdle))
	}
	return nil
}

// teardownLocked waits for the device to stop talking, then closes the
// handle once.
func (s *Session) teardownLocked(ctx context.Context) error {
	if !s.transport.IsOpen() {
		return nil
	}

	discarded := s.readUntilIdleLocked(ctx)
	if len(discarded) > 0 {
		s.logger.Debug("Discarded trailing input before close", zap.Strings("discarded", discarded))
	}
	return s.transport.Close()
}

func (s *Session) readUntilIdleLocked(ctx context.Context) []string {
	var discarded []string
	for i := 0; s.settings.DrainLimit <= 0 || i < s.settings.DrainLimit; i++ {
		data, err := s.transport.TryRead(ctx)
		if err != nil || len(data) == 0 {
			break
		}
		discarded = append(discarded, string(data))
	}
	return discarded
}

// StartContinuousRead spawns the background reader.
func (s *Session) StartContinuousRead() error {
	s.readerMu.Lock()
	defer s.readerMu.Unlock()

	if s.reader != nil {
		return protocol.ErrAlreadyListening
	}
	if s.State() == StateDisconnected {
		return protocol.ErrNotConnected
	}

	s.active.Store(true)
	s.reader = startReader(s.settings.PollInterval, s.poll)
	s.state.Store(int32(StateListening))
	s.logger.Info("Continuous read started", zap.Duration("interval", s.settings.PollInterval))
	return nil
}

// StopContinuousRead stops the background reader and waits for it to exit.
// No reading is buffered after it returns.
func (s *Session) StopContinuousRead() {
	s.readerMu.Lock()
	defer s.readerMu.Unlock()

	if s.reader == nil {
		return
	}
	s.reader.stop()
	s.reader = nil
	s.active.Store(false)

	if s.State() == StateListening {
		s.state.Store(int32(StateIdle))
	}
	s.logger.Info("Continuous read stopped")
}

func (s *Session) listening() bool {
	return s.active.Load()
}

func (s *Session) poll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || !s.transport.IsOpen() {
		return
	}

	text, err := s.readLocked(ctx)
	switch {
	case err == nil:
		s.logger.Debug("Reading collected", zap.String("reading", text))
	case errors.Is(err, errNoData), errors.Is(err, errEmptyReply):
	default:
		s.logger.Debug("Continuous read failed", zap.Error(err))
	}
}

// Drain returns every buffered reading and empties the buffer.
func (s *Session) Drain() []string {
	return s.buffer.Drain()
}

// Close stops continuous read, waits for the device to go idle and releases
// the transport.
func (s *Session) Close(ctx context.Context) error {
	s.StopContinuousRead()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.teardownLocked(ctx)
	s.state.Store(int32(StateDisconnected))
	if err != nil {
		return err
	}
	s.logger.Info("Session closed")
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
