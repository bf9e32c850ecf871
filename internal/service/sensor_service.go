// internal/service/sensor_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sqm-service/internal/config"
	"sqm-service/internal/discovery"
	"sqm-service/internal/protocol"
	"sqm-service/internal/sensor"
	"sqm-service/internal/utils"
)

// ErrInvalidRequest marks requests rejected before reaching the sensor
var ErrInvalidRequest = errors.New("invalid request")

// MaxRetries caps the per-command retry override
const MaxRetries = 100

// SensorService owns the sensor session and exposes it to the API layer
type SensorService struct {
	session    *sensor.Session
	deviceType string
	events     *EventBus
	logger     *utils.ServiceLogger
	sensorLog  *utils.SensorLogger
}

// NewSensorService builds the transport and locator described by cfg and
// wraps them in a disconnected session
func NewSensorService(cfg *config.Config, events *EventBus, logger *zap.Logger) (*SensorService, error) {
	transport, err := protocol.CreateTransport(
		transportKind(cfg),
		serialTransportConfig(cfg),
		networkTransportConfig(cfg),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	locator, err := NewLocator(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create locator: %w", err)
	}

	return newSensorService(cfg, transport, locator, events, logger)
}

// NewLocator returns the discovery strategy for the configured device type,
// or nil when discovery is disabled
func NewLocator(cfg *config.Config, logger *zap.Logger) (sensor.Locator, error) {
	if !cfg.Discovery.Enabled {
		return nil, nil
	}

	switch transportKind(cfg) {
	case protocol.KindNetwork:
		locator, err := discovery.NewNetworkLocator(networkDiscoveryOptions(cfg), logger)
		if err != nil {
			return nil, err
		}
		return locator, nil
	default:
		return discovery.NewSerialLocator(serialDiscoveryOptions(cfg), logger), nil
	}
}

func newSensorService(cfg *config.Config, transport protocol.Transport, locator sensor.Locator, events *EventBus, logger *zap.Logger) (*SensorService, error) {
	session, err := sensor.NewSession(sessionSettings(cfg), transport, locator, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sensor session: %w", err)
	}

	return &SensorService{
		session:    session,
		deviceType: cfg.Sensor.DeviceType,
		events:     events,
		logger:     utils.NewServiceLogger(logger, "sensor-service"),
		sensorLog:  utils.NewSensorLogger(logger, cfg.Sensor.DeviceType, cfg.Sensor.Address),
	}, nil
}

// Events returns the bus sensor events are published on
func (ss *SensorService) Events() *EventBus {
	return ss.events
}

// Connect opens the sensor, searching for it if the configured address fails
func (ss *SensorService) Connect(ctx context.Context) error {
	err := ss.session.Connect(ctx)
	ss.sensorLog.LogConnection("connect", err)
	if err != nil {
		ss.publish(EventError, map[string]interface{}{"action": "connect", "error": err.Error()})
		return fmt.Errorf("failed to connect sensor: %w", err)
	}

	ss.publish(EventConnected, map[string]interface{}{"address": ss.session.Address()})
	return nil
}

// SendCommand sends a command and waits for its reply, reconnecting on
// failed reads
func (ss *SensorService) SendCommand(ctx context.Context, req *CommandRequest) (*CommandResult, error) {
	command := strings.TrimSpace(req.Command)
	if command == "" {
		return nil, fmt.Errorf("%w: command is required", ErrInvalidRequest)
	}
	if !ss.IsConnected() {
		return nil, protocol.ErrNotConnected
	}

	retries := ss.session.Retries()
	if req.Retries != nil {
		if *req.Retries < 0 || *req.Retries > MaxRetries {
			return nil, fmt.Errorf("%w: retries must be between 0 and %d", ErrInvalidRequest, MaxRetries)
		}
		retries = *req.Retries
	}

	reconnects := ss.session.Reconnects()
	start := time.Now()
	response, err := ss.session.SendAndReceive(ctx, command, retries)
	duration := time.Since(start)

	ss.sensorLog.LogExchange(command, response, duration, err)
	if err != nil {
		ss.publish(EventError, map[string]interface{}{"action": "command", "command": command, "error": err.Error()})
		return nil, err
	}

	result := &CommandResult{
		Command:    command,
		Response:   response,
		Reconnects: ss.session.Reconnects() - reconnects,
		Duration:   duration,
		ReceivedAt: time.Now(),
	}
	ss.publish(EventCommandHandled, map[string]interface{}{
		"command":  command,
		"response": response,
	})
	return result, nil
}

// Send writes a command without waiting for the reply
func (ss *SensorService) Send(ctx context.Context, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return fmt.Errorf("%w: command is required", ErrInvalidRequest)
	}
	if !ss.IsConnected() {
		return protocol.ErrNotConnected
	}
	return ss.session.Send(ctx, command)
}

// Reset closes and reopens the sensor at its known address
func (ss *SensorService) Reset(ctx context.Context) error {
	err := ss.session.Reset(ctx)
	ss.sensorLog.LogConnection("reset", err)
	if err != nil {
		ss.publish(EventError, map[string]interface{}{"action": "reset", "error": err.Error()})
		return err
	}

	ss.publish(EventReset, map[string]interface{}{
		"address":    ss.session.Address(),
		"reconnects": ss.session.Reconnects(),
	})
	return nil
}

// ClearBuffer discards one pending read
func (ss *SensorService) ClearBuffer(ctx context.Context) (string, error) {
	if !ss.IsConnected() {
		return "", protocol.ErrNotConnected
	}
	return ss.session.ClearBuffer(ctx)
}

// StartListening starts collecting unsolicited readings
func (ss *SensorService) StartListening() error {
	if err := ss.session.StartContinuousRead(); err != nil {
		return err
	}
	ss.publish(EventListenStarted, nil)
	return nil
}

// StopListening stops collecting readings. Already buffered readings stay
// available to Readings.
func (ss *SensorService) StopListening() {
	if ss.session.State() != sensor.StateListening {
		return
	}
	ss.session.StopContinuousRead()
	ss.publish(EventListenStopped, nil)
}

// Readings drains the readings collected since the previous call
func (ss *SensorService) Readings() *ReadingsBatch {
	readings := ss.session.Drain()
	return &ReadingsBatch{
		Readings:    readings,
		Count:       len(readings),
		CollectedAt: time.Now(),
	}
}

// IsConnected reports whether the sensor transport is open
func (ss *SensorService) IsConnected() bool {
	return ss.session.State() != sensor.StateDisconnected
}

// Status returns the session state and transport statistics
func (ss *SensorService) Status() *SensorStatus {
	state := ss.session.State()
	return &SensorStatus{
		SessionID:  ss.session.ID(),
		DeviceType: ss.deviceType,
		Transport:  ss.session.Kind(),
		State:      state.String(),
		Address:    ss.session.Address(),
		Connected:  state != sensor.StateDisconnected,
		Listening:  state == sensor.StateListening,
		Buffered:   ss.session.Buffered(),
		Retries:    ss.session.Retries(),
		Reconnects: ss.session.Reconnects(),
		Stats:      ss.session.Stats(),
	}
}

// Close stops listening and releases the sensor
func (ss *SensorService) Close(ctx context.Context) error {
	err := ss.session.Close(ctx)
	ss.sensorLog.LogConnection("close", err)
	ss.publish(EventDisconnected, nil)
	return err
}

func (ss *SensorService) publish(eventType string, data map[string]interface{}) {
	if ss.events == nil {
		return
	}
	ss.events.Publish(Event{
		Type:   eventType,
		Source: ss.session.ID(),
		Data:   data,
	})
}
