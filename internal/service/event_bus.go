// internal/service/event_bus.go
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sensor event types
const (
	EventConnected      = "sensor.connected"
	EventDisconnected   = "sensor.disconnected"
	EventReset          = "sensor.reset"
	EventListenStarted  = "sensor.listen_started"
	EventListenStopped  = "sensor.listen_stopped"
	EventCommandHandled = "sensor.command"
	EventError          = "sensor.error"

	// AllEvents subscribes to every event type
	AllEvents = "*"
)

// Event represents a sensor event
type Event struct {
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventBus manages event distribution
type EventBus struct {
	subscribers map[string][]chan Event
	events      chan Event
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
		events:      make(chan Event, 1000),
		logger:      logger,
	}
}

// Run distributes published events until ctx is done
func (eb *EventBus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eb.events:
			eb.distributeEvent(event)
		}
	}
}

// Publish queues an event without blocking
func (eb *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", event.Type),
		)
	}
}

// Subscribe subscribes to events of a specific type, or AllEvents
func (eb *EventBus) Subscribe(eventType string) <-chan Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan Event, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// Unsubscribe removes and closes a subscription
func (eb *EventBus) Unsubscribe(subscription <-chan Event) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for eventType, subscribers := range eb.subscribers {
		for i, subscriber := range subscribers {
			if subscriber == subscription {
				eb.subscribers[eventType] = append(subscribers[:i], subscribers[i+1:]...)
				close(subscriber)
				return
			}
		}
	}
}

// distributeEvent hands an event to every matching subscriber. Slow
// subscribers miss events.
func (eb *EventBus) distributeEvent(event Event) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, key := range []string{event.Type, AllEvents} {
		for _, subscriber := range eb.subscribers[key] {
			select {
			case subscriber <- event:
			default:
			}
		}
	}
}
