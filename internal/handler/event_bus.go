// internal/handler/event_bus.go
package handler

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"terminal-bridge/internal/model"
	"terminal-bridge/internal/relay"
)

const eventBufferSize = 1000

// EventBus fans relayed bridge events out to every channel client. A single
// distributor goroutine keeps events in publish order.
type EventBus struct {
	connections *ConnectionManager
	events      chan model.ChannelEvent
	done        chan struct{}
	stopOnce    sync.Once
	logger      *zap.Logger
}

var _ relay.Publisher = (*EventBus)(nil)

// NewEventBus creates a new event bus
func NewEventBus(connections *ConnectionManager, logger *zap.Logger) *EventBus {
	return &EventBus{
		connections: connections,
		events:      make(chan model.ChannelEvent, eventBufferSize),
		done:        make(chan struct{}),
		logger:      logger.With(zap.String("component", "event-bus")),
	}
}

// Start distributes events until Stop is called
func (eb *EventBus) Start() {
	for {
		select {
		case event := <-eb.events:
			eb.distributeEvent(event)
		case <-eb.done:
			return
		}
	}
}

// Stop ends distribution. Events published afterwards are discarded.
func (eb *EventBus) Stop() {
	eb.stopOnce.Do(func() { close(eb.done) })
}

// Publish implements relay.Publisher
func (eb *EventBus) Publish(event model.ChannelEvent) {
	select {
	case <-eb.done:
		return
	default:
	}

	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event", event.Method),
		)
	}
}

// distributeEvent encodes an event envelope and broadcasts it
func (eb *EventBus) distributeEvent(event model.ChannelEvent) {
	message, err := encodeEvent(event)
	if err != nil {
		eb.logger.Error("Failed to encode event",
			zap.String("event", event.Method),
			zap.Error(err),
		)
		return
	}

	delivered := eb.connections.Broadcast(message)
	eb.logger.Debug("Event broadcasted",
		zap.String("event", event.Method),
		zap.Int("clients", delivered),
	)
}

func encodeEvent(event model.ChannelEvent) ([]byte, error) {
	arguments, err := json.Marshal(event.Arguments)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&model.ChannelMessage{
		Type:      model.MessageTypeEvent,
		Method:    event.Method,
		Arguments: arguments,
		Timestamp: time.Now(),
	})
}
