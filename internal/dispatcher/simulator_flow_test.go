package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"terminal-bridge/internal/config"
	"terminal-bridge/internal/driver/simulator"
	"terminal-bridge/internal/model"
	"terminal-bridge/internal/repository"
	"terminal-bridge/internal/service"
	"terminal-bridge/pkg/terminal/terminaltest"
)

func TestDispatcher_SimulatedPaymentFlow(t *testing.T) {
	sim := simulator.New(config.SimulatorConfig{ReaderCount: 2, PaymentAmount: 2599}, zap.NewNop())
	sink := &terminaltest.RecordingSink{}
	journal := repository.NewMemoryCommandRepository(100, zap.NewNop())
	d := New(sim, staticTokenProvider{}, sink, journal, Options{}, zap.NewNop())
	h := &harness{sink: sink, journal: journal, dispatcher: d}

	_, err := h.call(MethodDiscoverReadersStart, `{"config":{"discoveryMethod":"bluetoothScan","simulated":true}}`)
	requireCode(t, err, service.CodeUnableToDiscover)

	_, err = h.call(MethodInit, "")
	require.NoError(t, err)

	_, err = h.call(MethodDiscoverReadersStart, `{"config":{"discoveryMethod":"bluetoothScan","simulated":true}}`)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(d.Readers()) == 2 }, time.Second, 5*time.Millisecond)

	_, err = h.call(MethodDiscoverReadersStop, "")
	require.NoError(t, err)

	serial := d.Readers()[0].SerialNumber
	result, err := h.call(MethodConnectBluetoothReader, `{"readerSerialNumber":"`+serial+`","locationId":"tml_front"}`)
	require.NoError(t, err)
	reader, ok := result.(*model.Reader)
	require.True(t, ok)
	assert.Equal(t, serial, reader.SerialNumber)

	status, err := h.call(MethodConnectionStatus, "")
	require.NoError(t, err)
	assert.Equal(t, int(model.ConnectionStatusConnected), status)

	result, err = h.call(MethodCollectPaymentMethod, `{"paymentIntentClientSecret":"pi_flow_secret_1"}`)
	require.NoError(t, err)
	payload, ok := result.(json.RawMessage)
	require.True(t, ok)

	var intent struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(payload, &intent))
	assert.Equal(t, "pi_flow", intent.ID)
	assert.EqualValues(t, 2599, intent.Amount)
	assert.Equal(t, string(model.PaymentIntentRequiresCapture), intent.Status)

	assert.Contains(t, sink.Names(), model.EventReadersFound)
	assert.Contains(t, sink.Names(), model.EventReaderInput)
	assert.Len(t, sink.NativeLogs(), 2)

	_, err = h.call(MethodDisconnectFromReader, "")
	require.NoError(t, err)
	assert.Nil(t, sim.ConnectedReader())
}

func TestDispatcher_SimulatedProcessingSurvivesCallerCancel(t *testing.T) {
	sim := simulator.New(config.SimulatorConfig{ReaderCount: 1, ProcessDelay: 300 * time.Millisecond}, zap.NewNop())
	sink := &terminaltest.RecordingSink{}
	journal := repository.NewMemoryCommandRepository(100, zap.NewNop())
	d := New(sim, staticTokenProvider{}, sink, journal, Options{}, zap.NewNop())
	h := &harness{sink: sink, journal: journal, dispatcher: d}

	_, err := h.call(MethodInit, "")
	require.NoError(t, err)
	_, err = h.call(MethodDiscoverReadersStart, `{"config":{"discoveryMethod":"bluetoothScan","simulated":true}}`)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(d.Readers()) == 1 }, time.Second, 5*time.Millisecond)
	_, err = h.call(MethodDiscoverReadersStop, "")
	require.NoError(t, err)
	_, err = h.call(MethodConnectBluetoothReader, `{"readerSerialNumber":"CHB-SIM-0","locationId":"tml_front"}`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs := make(chan error, 1)
	go func() {
		_, err := d.Dispatch(ctx, model.CommandSourceChannel, MethodCollectPaymentMethod,
			json.RawMessage(`{"paymentIntentClientSecret":"pi_cancel_secret_1"}`))
		errs <- err
	}()

	require.Eventually(t, func() bool { return len(sink.NativeLogs()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("collectPaymentMethod did not return")
	}
	assert.Len(t, sink.NativeLogs(), 2)
}
