package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"terminal-bridge/internal/model"
	"terminal-bridge/internal/repository"
	"terminal-bridge/internal/service"
	"terminal-bridge/pkg/terminal/terminaltest"
)

type staticTokenProvider struct{}

func (staticTokenProvider) FetchConnectionToken(ctx context.Context) (string, error) {
	return "pst_test", nil
}

type harness struct {
	fake       *terminaltest.Fake
	sink       *terminaltest.RecordingSink
	journal    repository.CommandRepository
	dispatcher *Dispatcher
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	h := &harness{
		fake:    terminaltest.NewFake(),
		sink:    &terminaltest.RecordingSink{},
		journal: repository.NewMemoryCommandRepository(100, zap.NewNop()),
	}
	h.dispatcher = New(h.fake, staticTokenProvider{}, h.sink, h.journal, opts, zap.NewNop())
	return h
}

func (h *harness) call(method string, args string) (any, error) {
	var raw json.RawMessage
	if args != "" {
		raw = json.RawMessage(args)
	}
	return h.dispatcher.Dispatch(context.Background(), model.CommandSourceChannel, method, raw)
}

func requireCode(t *testing.T, err error, code string) *service.TerminalError {
	t.Helper()

	var terminalErr *service.TerminalError
	require.ErrorAs(t, err, &terminalErr)
	require.Equal(t, code, terminalErr.Code, terminalErr.Message)
	return terminalErr
}

func TestDispatcher_UnknownMethod(t *testing.T) {
	h := newHarness(t, Options{})

	_, err := h.call("chargeCustomer", "")

	terminalErr := requireCode(t, err, service.CodeUnsupportedFunctionCall)
	assert.Contains(t, terminalErr.Message, "chargeCustomer")
}

func TestDispatcher_InitInstallsProviderOnce(t *testing.T) {
	h := newHarness(t, Options{})

	result, err := h.call(MethodInit, "")
	require.NoError(t, err)
	assert.Nil(t, result)

	_, err = h.call(MethodInit, "")
	require.NoError(t, err)

	assert.Equal(t, 1, h.fake.TokenProviderSets())
	assert.Same(t, h.sink, h.fake.EventSink())
}

func TestDispatcher_DiscoverConnectFlow(t *testing.T) {
	h := newHarness(t, Options{})

	result, err := h.call(MethodDiscoverReadersStart, `{"config":{"discoveryMethod":"bluetoothScan","simulated":true}}`)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	h.fake.EmitReaders(&model.Reader{SerialNumber: "CHB-1", LocationID: strPtr("tml_1")})
	assert.Len(t, h.dispatcher.Readers(), 1)

	result, err = h.call(MethodConnectBluetoothReader, `{"readerSerialNumber":"CHB-1"}`)
	require.NoError(t, err)
	reader, ok := result.(*model.Reader)
	require.True(t, ok)
	assert.Equal(t, "CHB-1", reader.SerialNumber)

	result, err = h.call(MethodConnectionStatus, "")
	require.NoError(t, err)
	assert.Equal(t, int(model.ConnectionStatusConnected), result)

	result, err = h.call(MethodFetchConnectedReader, "")
	require.NoError(t, err)
	assert.Equal(t, "CHB-1", result.(*model.Reader).SerialNumber)

	_, err = h.call(MethodConnectBluetoothReader, `{"readerSerialNumber":"CHB-1"}`)
	requireCode(t, err, service.CodeDeviceAlreadyConnected)

	result, err = h.call(MethodDiscoverReadersStop, "")
	require.NoError(t, err)
	assert.Equal(t, true, result)

	_, err = h.call(MethodDisconnectFromReader, "")
	require.NoError(t, err)
	_, err = h.call(MethodDisconnectFromReader, "")
	require.NoError(t, err)

	result, err = h.call(MethodFetchConnectedReader, "")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDispatcher_DiscoverStartValidation(t *testing.T) {
	h := newHarness(t, Options{})

	for _, args := range []string{"", "null", `{}`, `{"config":{}}`, `{"config":{"discoveryMethod":"magic"}}`, `[1,2]`} {
		_, err := h.call(MethodDiscoverReadersStart, args)
		requireCode(t, err, service.CodeInvalidRequest)
	}
	assert.Empty(t, h.fake.DiscoverCalls())
}

func TestDispatcher_DiscoverStopWithoutStart(t *testing.T) {
	h := newHarness(t, Options{})

	_, err := h.call(MethodDiscoverReadersStop, "")

	requireCode(t, err, service.CodeUnableToCancelDiscover)
	assert.False(t, h.dispatcher.Status().DiscoveryRunning)
}

func TestDispatcher_ConnectGuardsBeforeDecoding(t *testing.T) {
	h := newHarness(t, Options{})
	h.fake.Status = model.ConnectionStatusConnecting

	_, err := h.call(MethodConnectToInternetReader, `not json`)
	requireCode(t, err, service.CodeDeviceConnecting)

	h.fake.Status = model.ConnectionStatusNotConnected
	_, err = h.call(MethodConnectToInternetReader, `not json`)
	requireCode(t, err, service.CodeInvalidConnectionArguments)

	_, err = h.call(MethodConnectLocalMobileReader, `{"readerSerialNumber":"nope"}`)
	requireCode(t, err, service.CodeReaderNotFound)
	assert.Empty(t, h.fake.ConnectCalls())
}

func TestDispatcher_DefaultLocation(t *testing.T) {
	h := newHarness(t, Options{DefaultLocationID: "tml_default"})
	_, err := h.call(MethodDiscoverReadersStart, `{"config":{"discoveryMethod":"localMobile"}}`)
	require.NoError(t, err)
	h.fake.EmitReaders(&model.Reader{SerialNumber: "PHONE"})

	_, err = h.call(MethodConnectLocalMobileReader, `{"readerSerialNumber":"PHONE","displayName":"Cafe"}`)
	require.NoError(t, err)

	calls := h.fake.ConnectCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "tml_default", calls[0].LocalMobile.LocationID)
	assert.Equal(t, "Cafe", calls[0].LocalMobile.MerchantDisplayName)
}

func TestDispatcher_CollectPaymentMethod(t *testing.T) {
	h := newHarness(t, Options{})

	_, err := h.call(MethodCollectPaymentMethod, `garbage`)
	requireCode(t, err, service.CodeDeviceNotConnected)

	h.fake.SetConnected(&model.Reader{SerialNumber: "SIM", Simulated: true})
	_, err = h.call(MethodCollectPaymentMethod, `garbage`)
	requireCode(t, err, service.CodeInvalidPaymentIntentClientSecret)

	h.fake.RetrieveIntent = &model.PaymentIntent{ID: "pi_1", Amount: 500, Currency: "usd", OriginalJSON: json.RawMessage(`{"id":"pi_1"}`)}
	result, err := h.call(MethodCollectPaymentMethod, `{"paymentIntentClientSecret":"pi_1_secret","collectConfiguration":{"skipTipping":true}}`)
	require.NoError(t, err)

	payload, ok := result.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"pi_1"}`, string(payload))
	assert.True(t, h.fake.CollectCalls()[0].SkipTipping)

	logs := h.sink.NativeLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, "collectPaymentMethod", logs[0].Code)
	assert.Equal(t, "processPayment", logs[1].Code)

	_, err = h.call(MethodCollectPaymentMethodStop, "")
	requireCode(t, err, service.CodeUnableToCancelCollect)
}

func TestDispatcher_SetReaderDisplay(t *testing.T) {
	h := newHarness(t, Options{})

	result, err := h.call(MethodSetReaderDisplay, `{"readerDisplay":{"type":"cart","cart":{"currency":"usd","tax":0,"total":700,"lineItems":[{"description":"Tea","quantity":1,"amount":300},{"description":"Cake","quantity":2,"amount":200}]}}}`)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	carts := h.fake.DisplayedCarts()
	require.Len(t, carts, 1)
	require.Len(t, carts[0].LineItems, 2)
	assert.Equal(t, model.CartLineItem{Description: "Tea", Quantity: 1, Amount: 300}, carts[0].LineItems[0])
	assert.Equal(t, model.CartLineItem{Description: "Cake", Quantity: 2, Amount: 200}, carts[0].LineItems[1])

	_, err = h.call(MethodSetReaderDisplay, `{"readerDisplay":"oops"}`)
	requireCode(t, err, service.CodeUnableToDisplay)

	result, err = h.call(MethodClearReaderDisplay, "")
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestDispatcher_CapabilityProbes(t *testing.T) {
	h := newHarness(t, Options{})
	h.fake.TapToPay = true

	result, err := h.call(MethodTapToPaySupported, "")
	require.NoError(t, err)
	assert.Equal(t, true, result)

	_, err = h.call(MethodReadReusableCardDetail, "")
	requireCode(t, err, service.CodeDeviceNotConnected)
}

func TestDispatcher_JournalsEveryCommand(t *testing.T) {
	h := newHarness(t, Options{})

	_, _ = h.call(MethodConnectionStatus, "")
	_, _ = h.call("bogus", "")

	records, err := h.journal.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "bogus", records[0].Method)
	assert.Equal(t, model.CommandStatusFailed, records[0].Status)
	require.NotNil(t, records[0].ErrorCode)
	assert.Equal(t, service.CodeUnsupportedFunctionCall, *records[0].ErrorCode)

	assert.Equal(t, MethodConnectionStatus, records[1].Method)
	assert.Equal(t, model.CommandStatusSucceeded, records[1].Status)
	assert.NotNil(t, records[1].CompletedAt)
}

func TestDispatcher_RejectPolicy(t *testing.T) {
	h := newHarness(t, Options{HandlePolicy: service.SlotPolicyReject})
	args := `{"config":{"discoveryMethod":"internet"}}`

	_, err := h.call(MethodDiscoverReadersStart, args)
	require.NoError(t, err)
	_, err = h.call(MethodDiscoverReadersStart, args)
	requireCode(t, err, service.CodeDiscoveryInProgress)
}

func TestDispatcher_Close(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.call(MethodDiscoverReadersStart, `{"config":{"discoveryMethod":"internet"}}`)
	require.NoError(t, err)
	h.fake.SetConnected(&model.Reader{SerialNumber: "WPE"})

	h.dispatcher.Close(context.Background())

	handles := h.fake.DiscoverHandles()
	require.Len(t, handles, 1)
	assert.True(t, handles[0].Canceled())
	assert.Equal(t, 1, h.fake.DisconnectCalls())

	status := h.dispatcher.Status()
	assert.False(t, status.DiscoveryRunning)
	assert.Equal(t, "notConnected", status.ConnectionStatus)
}

func TestDispatcher_CloseLogsFailures(t *testing.T) {
	h := newHarness(t, Options{})
	h.fake.SetConnected(&model.Reader{SerialNumber: "WPE"})
	h.fake.DisconnectErr = errors.New("reader unreachable")

	assert.NotPanics(t, func() { h.dispatcher.Close(context.Background()) })
}

func TestDispatcher_Methods(t *testing.T) {
	h := newHarness(t, Options{})

	methods := h.dispatcher.Methods()
	assert.Len(t, methods, 15)
	assert.Contains(t, methods, MethodTapToPaySupported)
	assert.IsIncreasing(t, methods)
}

func strPtr(s string) *string {
	return &s
}
