// internal/service/collection_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"terminal-bridge/internal/model"
	"terminal-bridge/internal/utils"
	"terminal-bridge/pkg/terminal"
)

// Native log codes emitted between pipeline stages
const (
	LogCodeCollectPaymentMethod = "collectPaymentMethod"
	LogCodeProcessPayment       = "processPayment"
)

// CollectRequest is the host's collectPaymentMethod payload
type CollectRequest struct {
	PaymentIntentClientSecret *string                     `json:"paymentIntentClientSecret"`
	CollectConfiguration      *model.CollectConfiguration `json:"collectConfiguration"`
}

// CollectionService runs the retrieve, collect, process payment pipeline
type CollectionService struct {
	terminal    terminal.PaymentProcessor
	logSink     terminal.LogSink
	slot        *HandleSlot
	logger      *utils.ServiceLogger
	auditLogger *utils.AuditLogger
}

// NewCollectionService creates a new collection service
func NewCollectionService(
	processor terminal.PaymentProcessor,
	logSink terminal.LogSink,
	slot *HandleSlot,
	logger *zap.Logger,
) *CollectionService {
	return &CollectionService{
		terminal:    processor,
		logSink:     logSink,
		slot:        slot,
		logger:      utils.NewServiceLogger(logger, "collection-service"),
		auditLogger: utils.NewAuditLogger(logger),
	}
}

// Collect runs the full pipeline and returns the processed intent's original JSON
func (cs *CollectionService) Collect(ctx context.Context, req *CollectRequest) (json.RawMessage, error) {
	reader := cs.terminal.ConnectedReader()
	if reader == nil {
		return nil, newError(KindStateGuard, CodeDeviceNotConnected,
			"You must connect to a device before you can use it.")
	}

	if req == nil || req.PaymentIntentClientSecret == nil || strings.TrimSpace(*req.PaymentIntentClientSecret) == "" {
		return nil, newError(KindValidation, CodeInvalidPaymentIntentClientSecret,
			"The payment intent client_secret seems to be invalid or missing.")
	}

	config := model.CollectConfiguration{}
	if req.CollectConfiguration != nil {
		config = *req.CollectConfiguration
	}

	if !cs.slot.Acquire() {
		return nil, newError(KindStateGuard, CodeCollectionInProgress,
			"A collect action is already running. Stop it before starting a new one.")
	}

	opLogger := utils.NewOperationLogger(cs.logger.Logger, "collect_payment", uuid.New().String())
	opLogger.Start(zap.String("reader_serial", reader.SerialNumber), zap.Bool("skip_tipping", config.SkipTipping))

	intent, err := cs.terminal.RetrievePaymentIntent(ctx, *req.PaymentIntentClientSecret)
	if err == nil && intent == nil {
		err = fmt.Errorf("no payment intent matches the client secret")
	}
	if err != nil {
		cs.slot.Release()
		opLogger.Error(err, zap.String("stage", "retrieve"))
		return nil, sdkError(KindOperation, CodeUnableToRetrievePaymentIntent,
			fmt.Sprintf("The payment intent could not be fetched with the provided client secret. %s", err.Error()), err)
	}
	opLogger.Progress("Payment intent retrieved", zap.String("payment_intent_id", intent.ID))

	pending := cs.terminal.CollectPaymentMethod(ctx, intent, config)
	if pending == nil {
		cs.slot.Release()
		err := errors.New("the reader SDK returned no collection handle")
		opLogger.Error(err, zap.String("stage", "collect"))
		return nil, collectFailure(err)
	}
	cs.slot.Store(pending)
	defer cs.slot.ClearIf(pending)

	collected, err := cs.await(ctx, pending)
	if err != nil {
		opLogger.Error(err, zap.String("stage", "collect"))
		return nil, collectFailure(err)
	}
	cs.logSink.OnNativeLog(LogCodeCollectPaymentMethod, string(intentPayload(collected)))

	// Once the payment method is collected the payment is processed to the
	// end, whatever happens to the caller
	processed, err := cs.terminal.ProcessPayment(context.WithoutCancel(ctx), collected)
	if err == nil && processed == nil {
		processed = collected
	}
	if err != nil {
		opLogger.Error(err, zap.String("stage", "process"))
		cs.auditLogger.LogPaymentTransaction(reader.SerialNumber, collected.ID, collected.MajorAmount(), collected.Currency, "failed")
		return nil, sdkError(KindOperation, CodeUnableToProcessPayment,
			fmt.Sprintf("The reader was not able to process the payment for the provided payment intent. %s", err.Error()), err)
	}

	payload := intentPayload(processed)
	cs.logSink.OnNativeLog(LogCodeProcessPayment, string(payload))

	cs.auditLogger.LogPaymentTransaction(reader.SerialNumber, processed.ID, processed.MajorAmount(), processed.Currency, string(processed.Status))
	opLogger.Success(zap.String("payment_intent_id", processed.ID))
	return payload, nil
}

func collectFailure(err error) *TerminalError {
	return collectError(
		fmt.Sprintf("The reader was not able to collect the payment method for the provided payment intent. %s", err.Error()), err)
}

// await waits for the collection to settle. If ctx ends first the collection
// is canceled and its outcome is still awaited.
func (cs *CollectionService) await(ctx context.Context, pending terminal.PendingCollection) (*model.PaymentIntent, error) {
	select {
	case <-pending.Done():
	case <-ctx.Done():
		if err := pending.Cancel(context.Background()); err != nil {
			cs.logger.Warn("Failed to cancel collection after context ended", zap.Error(err))
		}
	}

	intent, err := pending.Result()
	if err == nil && intent == nil {
		err = fmt.Errorf("collection settled without a payment intent")
	}
	return intent, err
}

// Stop cancels the in-flight collection. A stop issued after the payment
// method was collected does not abort processing.
func (cs *CollectionService) Stop(ctx context.Context) error {
	handle, ok := cs.slot.Take()
	if !ok {
		return newError(KindStateGuard, CodeUnableToCancelCollect,
			"There is no collect action running to stop.")
	}

	if err := handle.Cancel(ctx); err != nil {
		cs.logger.Warn("Failed to stop collection", zap.Error(err))
		return sdkError(KindOperation, CodeUnableToCancelCollect,
			fmt.Sprintf("Unable to stop the collect action because %s", err.Error()), err)
	}

	cs.logger.Info("Collection stopped")
	return nil
}

// Running reports whether a collection handle is held
func (cs *CollectionService) Running() bool {
	return cs.slot.Occupied()
}

func intentPayload(intent *model.PaymentIntent) json.RawMessage {
	if len(intent.OriginalJSON) > 0 {
		return intent.OriginalJSON
	}
	data, err := json.Marshal(intent)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
