// internal/service/reader_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"terminal-bridge/internal/model"
	"terminal-bridge/internal/utils"
	"terminal-bridge/pkg/terminal"
)

// ReaderService exposes one-shot reader capabilities. It shares no state with
// the payment pipeline.
type ReaderService struct {
	terminal    terminal.ReaderUtilities
	logger      *utils.ServiceLogger
	auditLogger *utils.AuditLogger
}

// NewReaderService creates a new reader service
func NewReaderService(utilities terminal.ReaderUtilities, logger *zap.Logger) *ReaderService {
	return &ReaderService{
		terminal:    utilities,
		logger:      utils.NewServiceLogger(logger, "reader-service"),
		auditLogger: utils.NewAuditLogger(logger),
	}
}

// ReadReusableCard reads a card without charging it and returns the payment
// method's original JSON
func (rs *ReaderService) ReadReusableCard(ctx context.Context) (json.RawMessage, error) {
	if rs.terminal.ConnectedReader() == nil {
		return nil, newError(KindStateGuard, CodeDeviceNotConnected,
			"You must connect to a device before you can use it.")
	}

	method, err := rs.terminal.ReadReusableCard(ctx, model.ReadReusableCardParameters{})
	if err == nil && method == nil {
		err = fmt.Errorf("reader returned no payment method")
	}
	if err != nil {
		rs.logger.Warn("Failed to read reusable card", zap.Error(err))
		return nil, sdkError(KindOperation, CodeUnableToReadCardDetail,
			"Device was not able to read payment method details.", err)
	}

	if len(method.OriginalJSON) > 0 {
		return method.OriginalJSON, nil
	}
	data, err := json.Marshal(method)
	if err != nil {
		return nil, sdkError(KindOperation, CodeUnableToReadCardDetail,
			"Device was not able to read payment method details.", err)
	}
	return data, nil
}

// SetDisplay shows a cart on the reader screen
func (rs *ReaderService) SetDisplay(ctx context.Context, display *model.ReaderDisplay) error {
	if display == nil || display.Cart == nil {
		return newError(KindValidation, CodeUnableToDisplay, "Invalid `readerDisplay` value provided")
	}
	if err := display.Cart.Validate(); err != nil {
		return &TerminalError{
			Code:    CodeUnableToDisplay,
			Message: "Invalid `readerDisplay` value provided",
			Kind:    KindValidation,
			Err:     err,
		}
	}

	cart := *display.Cart
	if err := rs.terminal.SetReaderDisplay(ctx, cart); err != nil {
		rs.logger.Warn("Failed to set reader display", zap.Error(err))
		return sdkError(KindOperation, CodeUnableToDisplay, err.Error(), err)
	}

	serial := ""
	if reader := rs.terminal.ConnectedReader(); reader != nil {
		serial = reader.SerialNumber
	}
	rs.auditLogger.LogCartDisplayed(serial, cart.Currency, model.MinorToMajor(cart.Total, cart.Currency), len(cart.LineItems))
	return nil
}

// ClearDisplay clears the reader screen
func (rs *ReaderService) ClearDisplay(ctx context.Context) error {
	if err := rs.terminal.ClearReaderDisplay(ctx); err != nil {
		rs.logger.Warn("Failed to clear reader display", zap.Error(err))
		return sdkError(KindOperation, CodeUnableToClearDisplay, err.Error(), err)
	}
	return nil
}

// TapToPaySupported reports whether this device can act as a tap-to-pay reader
func (rs *ReaderService) TapToPaySupported(ctx context.Context) (bool, error) {
	supported, err := rs.terminal.TapToPaySupported(ctx)
	if err != nil {
		return false, sdkError(KindCapability, CodeUnableToCheckTapToPay,
			fmt.Sprintf("Unable to check if Tap to Pay is supported. %s", err.Error()), err)
	}
	return supported, nil
}
