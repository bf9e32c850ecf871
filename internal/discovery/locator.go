// Package discovery finds a working sensor address when the configured one
// does not answer. Network and serial searches share one algorithm: probe a
// candidate, await replies for a bounded window, accept the first match.
package discovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sqm-service/internal/protocol"
)

// Endpoint is one open probe target.
type Endpoint interface {
	Send(ctx context.Context, payload []byte) error
	// Receive waits until deadline for one reply. A nil reply with a nil
	// error means nothing arrived.
	Receive(ctx context.Context, deadline time.Time) (reply []byte, from string, err error)
	Close() error
}

// Strategy parameterizes the search.
type Strategy struct {
	Name    string
	Payload []byte
	Accept  func(reply []byte) bool
	// Window bounds how long replies are awaited per candidate.
	Window time.Duration
	// MaxReplies stops awaiting after this many receive attempts; 0 waits
	// for the whole window.
	MaxReplies int
	Candidates func(ctx context.Context) ([]string, error)
	Dial       func(ctx context.Context, candidate string) (Endpoint, error)
	// Describe adds log fields for an accepted reply.
	Describe func(reply []byte) []zap.Field
}

// Locator runs a Strategy
type Locator struct {
	strategy Strategy
	logger   *zap.Logger
}

// NewLocator creates a locator for the given strategy
func NewLocator(strategy Strategy, logger *zap.Logger) *Locator {
	return &Locator{
		strategy: strategy,
		logger:   logger.With(zap.String("locator", strategy.Name)),
	}
}

// Name returns the strategy name
func (l *Locator) Name() string {
	return l.strategy.Name
}

// Locate returns the address of the first candidate whose reply is accepted.
func (l *Locator) Locate(ctx context.Context) (string, error) {
	candidates, err := l.strategy.Candidates(ctx)
	if err != nil {
		return "", fmt.Errorf("%s discovery: %w: %w", l.strategy.Name, protocol.ErrDeviceNotFound, err)
	}

	l.logger.Info("Searching for device", zap.Int("candidates", len(candidates)))

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%s discovery: %w: %w", l.strategy.Name, protocol.ErrDeviceNotFound, err)
		}

		if address, ok := l.probe(ctx, candidate); ok {
			l.logger.Info("Device found", zap.String("address", address))
			return address, nil
		}
	}

	l.logger.Error("Device not found")
	return "", fmt.Errorf("%s discovery: %w", l.strategy.Name, protocol.ErrDeviceNotFound)
}

func (l *Locator) probe(ctx context.Context, candidate string) (string, bool) {
	endpoint, err := l.strategy.Dial(ctx, candidate)
	if err != nil {
		l.logger.Debug("Skipping candidate (can't open)", zap.String("candidate", candidate), zap.Error(err))
		return "", false
	}
	defer endpoint.Close()

	if err := endpoint.Send(ctx, l.strategy.Payload); err != nil {
		l.logger.Debug("Skipping candidate (probe failed)", zap.String("candidate", candidate), zap.Error(err))
		return "", false
	}

	deadline := time.Now().Add(l.strategy.Window)
	attempts := 0
	for time.Now().Before(deadline) {
		reply, from, err := endpoint.Receive(ctx, deadline)
		if err != nil {
			l.logger.Debug("Skipping candidate (receive failed)", zap.String("candidate", candidate), zap.Error(err))
			return "", false
		}
		attempts++

		if reply != nil {
			if l.strategy.Accept(reply) {
				fields := []zap.Field{zap.String("from", from)}
				if l.strategy.Describe != nil {
					fields = append(fields, l.strategy.Describe(reply)...)
				}
				l.logger.Info("Accepted discovery reply", fields...)
				return from, true
			}
			l.logger.Debug("Ignoring discovery reply", zap.String("from", from), zap.Binary("reply", reply))
		}

		if l.strategy.MaxReplies > 0 && attempts >= l.strategy.MaxReplies {
			break
		}
	}
	return "", false
}
