package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"terminal-bridge/internal/model"
)

func receive(t *testing.T, client *Client) model.ChannelMessage {
	t.Helper()

	select {
	case raw := <-client.Send:
		var message model.ChannelMessage
		require.NoError(t, json.Unmarshal(raw, &message))
		return message
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return model.ChannelMessage{}
	}
}

func TestEventBus_BroadcastsInOrder(t *testing.T) {
	connections := NewConnectionManager()
	first := newClient("one", nil, "test", "127.0.0.1")
	second := newClient("two", nil, "test", "127.0.0.1")
	connections.Register(first)
	connections.Register(second)

	bus := NewEventBus(connections, zap.NewNop())
	go bus.Start()
	defer bus.Stop()

	bus.Publish(model.ChannelEvent{Method: model.EventReaderInput, Arguments: "Swipe / Insert"})
	bus.Publish(model.ChannelEvent{Method: model.EventNativeLog, Arguments: model.NativeLog{Code: "processPayment", Message: "{}"}})

	for _, client := range []*Client{first, second} {
		input := receive(t, client)
		assert.Equal(t, model.MessageTypeEvent, input.Type)
		assert.Equal(t, model.EventReaderInput, input.Method)
		assert.JSONEq(t, `"Swipe / Insert"`, string(input.Arguments))

		log := receive(t, client)
		assert.Equal(t, model.EventNativeLog, log.Method)
		assert.JSONEq(t, `{"code":"processPayment","message":"{}"}`, string(log.Arguments))
	}
}

func TestEventBus_PublishAfterStop(t *testing.T) {
	bus := NewEventBus(NewConnectionManager(), zap.NewNop())
	bus.Stop()
	bus.Stop()

	assert.NotPanics(t, func() {
		bus.Publish(model.ChannelEvent{Method: model.EventReadersFound})
	})
}

func TestConnectionManager_UnregisterClosesClient(t *testing.T) {
	connections := NewConnectionManager()
	client := newClient("c", nil, "test", "127.0.0.1")
	connections.Register(client)
	assert.Equal(t, 1, connections.Count())

	connections.Unregister(client)
	connections.Unregister(client)

	assert.Equal(t, 0, connections.Count())
	assert.False(t, client.enqueue([]byte("late")))
	assert.Error(t, client.ctx.Err())
	assert.Equal(t, 0, connections.Broadcast([]byte("nobody")))
}
