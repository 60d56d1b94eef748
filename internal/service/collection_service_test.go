package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminal-bridge/internal/model"
	"terminal-bridge/pkg/terminal/terminaltest"
)

type collectResult struct {
	payload json.RawMessage
	err     error
}

func connectedFixture(t *testing.T, policy SlotPolicy) *fixture {
	t.Helper()

	f := newFixture(t, policy)
	f.fake.SetConnected(simulatedReader("SIM-1", strPtr("tml_1")))
	f.fake.RetrieveIntent = &model.PaymentIntent{
		ID:           "pi_1",
		Status:       model.PaymentIntentRequiresPaymentMethod,
		Amount:       1250,
		Currency:     "usd",
		OriginalJSON: json.RawMessage(`{"id":"pi_1","status":"requires_payment_method"}`),
	}
	f.fake.ProcessIntent = &model.PaymentIntent{
		ID:           "pi_1",
		Status:       model.PaymentIntentRequiresCapture,
		Amount:       1250,
		Currency:     "usd",
		OriginalJSON: json.RawMessage(`{"id":"pi_1","status":"requires_capture"}`),
	}
	return f
}

func validCollect(skipTipping bool) *CollectRequest {
	return &CollectRequest{
		PaymentIntentClientSecret: strPtr("pi_1_secret_abc"),
		CollectConfiguration:      &model.CollectConfiguration{SkipTipping: skipTipping},
	}
}

func collectAsync(f *fixture, ctx context.Context) <-chan collectResult {
	results := make(chan collectResult, 1)
	go func() {
		payload, err := f.collection.Collect(ctx, validCollect(false))
		results <- collectResult{payload: payload, err: err}
	}()
	return results
}

func waitResult(t *testing.T, results <-chan collectResult) collectResult {
	t.Helper()

	select {
	case result := <-results:
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("collection did not finish")
		return collectResult{}
	}
}

func TestCollectionService_SuccessfulPipeline(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReplace)

	payload, err := f.collection.Collect(context.Background(), validCollect(true))
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":"pi_1","status":"requires_capture"}`, string(payload))
	assert.Equal(t, []string{"pi_1_secret_abc"}, f.fake.RetrieveCalls())

	collectCalls := f.fake.CollectCalls()
	require.Len(t, collectCalls, 1)
	assert.True(t, collectCalls[0].SkipTipping)

	logs := f.sink.NativeLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, LogCodeCollectPaymentMethod, logs[0].Code)
	assert.JSONEq(t, `{"id":"pi_1","status":"requires_payment_method"}`, logs[0].Message)
	assert.Equal(t, LogCodeProcessPayment, logs[1].Code)
	assert.JSONEq(t, `{"id":"pi_1","status":"requires_capture"}`, logs[1].Message)

	assert.False(t, f.collection.Running())
}

func TestCollectionService_NotConnected(t *testing.T) {
	f := newFixture(t, SlotPolicyReplace)

	_, err := f.collection.Collect(context.Background(), validCollect(false))

	requireCode(t, err, CodeDeviceNotConnected)
	assert.Empty(t, f.fake.RetrieveCalls())
}

func TestCollectionService_InvalidSecret(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReplace)

	for _, req := range []*CollectRequest{nil, {}, {PaymentIntentClientSecret: strPtr("   ")}} {
		_, err := f.collection.Collect(context.Background(), req)
		requireCode(t, err, CodeInvalidPaymentIntentClientSecret)
	}
	assert.Empty(t, f.fake.RetrieveCalls())
}

func TestCollectionService_RetrieveFailureStopsPipeline(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReject)
	f.fake.RetrieveErr = errors.New("no such payment_intent")

	_, err := f.collection.Collect(context.Background(), validCollect(false))

	terminalErr := requireCode(t, err, CodeUnableToRetrievePaymentIntent)
	assert.Contains(t, terminalErr.Message, "no such payment_intent")
	assert.Empty(t, f.fake.CollectCalls())
	assert.Equal(t, 0, f.fake.ProcessCalls())
	assert.Empty(t, f.sink.NativeLogs())

	// reservation released, a retry is admitted under reject
	f.fake.RetrieveErr = nil
	_, err = f.collection.Collect(context.Background(), validCollect(false))
	require.NoError(t, err)
}

func TestCollectionService_CollectFailure(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReplace)
	f.fake.CollectErr = errors.New("card declined")

	_, err := f.collection.Collect(context.Background(), validCollect(false))

	terminalErr := requireCode(t, err, CodeUnableToCollectPaymentMethod)
	require.NotNil(t, terminalErr.Details)
	assert.Equal(t, "card declined", *terminalErr.Details)
	assert.Contains(t, terminalErr.Message, "card declined")
	assert.Equal(t, 0, f.fake.ProcessCalls())
	assert.Empty(t, f.sink.NativeLogs())
	assert.False(t, f.collection.Running())
}

func TestCollectionService_ProcessFailure(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReplace)
	f.fake.ProcessErr = errors.New("processing error")

	_, err := f.collection.Collect(context.Background(), validCollect(false))

	terminalErr := requireCode(t, err, CodeUnableToProcessPayment)
	assert.Nil(t, terminalErr.Details)
	logs := f.sink.NativeLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, LogCodeCollectPaymentMethod, logs[0].Code)
}

func TestCollectionService_StopDuringCollect(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReplace)
	f.fake.CollectGate = make(chan struct{})

	results := collectAsync(f, context.Background())
	require.Eventually(t, f.collection.Running, time.Second, 5*time.Millisecond)

	require.NoError(t, f.collection.Stop(context.Background()))
	assert.False(t, f.collection.Running())

	result := waitResult(t, results)
	terminalErr := requireCode(t, result.err, CodeUnableToCollectPaymentMethod)
	assert.ErrorIs(t, terminalErr, terminaltest.ErrCanceled)
	assert.Equal(t, 0, f.fake.ProcessCalls())
	assert.True(t, f.fake.CollectHandles()[0].Canceled())
}

func TestCollectionService_StopDuringProcessDoesNotAbort(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReplace)

	var stopErr error
	f.fake.ProcessHook = func() {
		stopErr = f.collection.Stop(context.Background())
	}

	payload, err := f.collection.Collect(context.Background(), validCollect(false))

	require.NoError(t, err)
	require.NoError(t, stopErr)
	assert.JSONEq(t, `{"id":"pi_1","status":"requires_capture"}`, string(payload))
	assert.False(t, f.collection.Running())
}

func TestCollectionService_StopWithoutCollection(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReplace)

	err := f.collection.Stop(context.Background())

	terminalErr := requireCode(t, err, CodeUnableToCancelCollect)
	assert.Equal(t, "There is no collect action running to stop.", terminalErr.Message)
}

func TestCollectionService_StopClearsHandleWhenCancelFails(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReplace)
	f.fake.CollectGate = make(chan struct{})
	f.fake.CollectCancelErr = errors.New("too late to cancel")

	results := collectAsync(f, context.Background())
	require.Eventually(t, f.collection.Running, time.Second, 5*time.Millisecond)

	err := f.collection.Stop(context.Background())
	requireCode(t, err, CodeUnableToCancelCollect)
	assert.False(t, f.collection.Running())

	close(f.fake.CollectGate)
	result := waitResult(t, results)
	require.NoError(t, result.err)
}

func TestCollectionService_RejectPolicy(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReject)
	f.fake.CollectGate = make(chan struct{})

	results := collectAsync(f, context.Background())
	require.Eventually(t, f.collection.Running, time.Second, 5*time.Millisecond)

	_, err := f.collection.Collect(context.Background(), validCollect(false))
	requireCode(t, err, CodeCollectionInProgress)

	close(f.fake.CollectGate)
	require.NoError(t, waitResult(t, results).err)
	assert.Len(t, f.fake.CollectCalls(), 1)
}

func TestCollectionService_ContextEndCancelsCollection(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReplace)
	f.fake.CollectGate = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	results := collectAsync(f, ctx)
	require.Eventually(t, f.collection.Running, time.Second, 5*time.Millisecond)
	cancel()

	result := waitResult(t, results)
	requireCode(t, result.err, CodeUnableToCollectPaymentMethod)
	assert.False(t, f.collection.Running())
}

func TestCollectionService_ContextEndDuringProcessDoesNotAbort(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReplace)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.fake.ProcessHook = cancel

	payload, err := f.collection.Collect(ctx, validCollect(false))

	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"pi_1","status":"requires_capture"}`, string(payload))
	assert.Equal(t, 1, f.fake.ProcessCalls())
	logs := f.sink.NativeLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, LogCodeProcessPayment, logs[1].Code)
}

func TestCollectionService_MissingCollectionHandle(t *testing.T) {
	f := connectedFixture(t, SlotPolicyReject)
	f.fake.CollectNoHandle = true

	_, err := f.collection.Collect(context.Background(), validCollect(false))

	terminalErr := requireCode(t, err, CodeUnableToCollectPaymentMethod)
	assert.NotNil(t, terminalErr.Details)
	assert.False(t, f.collection.Running())
	assert.Equal(t, 0, f.fake.ProcessCalls())

	// reservation released, a retry is admitted under reject
	f.fake.CollectNoHandle = false
	_, err = f.collection.Collect(context.Background(), validCollect(false))
	require.NoError(t, err)
}
