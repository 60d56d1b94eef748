// internal/service/errors.go
package service

import (
	"errors"
	"fmt"

	"terminal-bridge/internal/model"
)

// Error codes returned to the host
const (
	CodeInvalidRequest                   = "stripeTerminal#invalidRequest"
	CodeUnableToDiscover                 = "stripeTerminal#unableToDiscover"
	CodeUnableToCancelDiscover           = "stripeTerminal#unableToCancelDiscover"
	CodeDiscoveryInProgress              = "stripeTerminal#discoveryInProgress"
	CodeDeviceConnecting                 = "stripeTerminal#deviceConnecting"
	CodeDeviceAlreadyConnected           = "stripeTerminal#deviceAlreadyConnected"
	CodeReaderNotFound                   = "stripeTerminal#readerNotFound"
	CodeLocationNotProvided              = "stripeTerminal#locationNotProvided"
	CodeUnableToConnect                  = "stripeTerminal#unableToConnect"
	CodeInvalidConnectionArguments       = "stripeTerminal#invalidConnectionArguments"
	CodeUnableToDisconnect               = "stripeTerminal#unableToDisconnect"
	CodeDeviceNotConnected               = "stripeTerminal#deviceNotConnected"
	CodeInvalidPaymentIntentClientSecret = "stripeTerminal#invalidPaymentIntentClientSecret"
	CodeUnableToRetrievePaymentIntent    = "stripeTerminal#unableToRetrievePaymentIntent"
	CodeUnableToCollectPaymentMethod     = "stripeTerminal#unableToCollectPaymentMethod"
	CodeUnableToProcessPayment           = "stripeTerminal#unableToProcessPayment"
	CodeUnableToCancelCollect            = "stripeTerminal#unableToCancelCollect"
	CodeCollectionInProgress             = "stripeTerminal#collectionInProgress"
	CodeUnableToReadCardDetail           = "stripeTerminal#unableToReadCardDetail"
	CodeUnableToDisplay                  = "stripeTerminal#unableToDisplay"
	CodeUnableToClearDisplay             = "stripeTerminal#unableToClearDisplay"
	CodeUnableToCheckTapToPay            = "stripeTerminal#unableToCheckIfTTPOIIsSupported"
	CodeUnsupportedFunctionCall          = "stripeTerminal#unsupportedFunctionCall"
)

// ErrorKind groups error codes by how the caller should react to them
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindStateGuard  ErrorKind = "state_guard"
	KindLookup      ErrorKind = "lookup"
	KindOperation   ErrorKind = "operation"
	KindCapability  ErrorKind = "capability"
	KindUnsupported ErrorKind = "unsupported"
)

// TerminalError is the structured failure of a bridge command
type TerminalError struct {
	Code    string
	Message string
	Details *string
	Kind    ErrorKind
	Err     error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// ChannelError converts the error to its wire triple
func (e *TerminalError) ChannelError() *model.ChannelError {
	return &model.ChannelError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

func newError(kind ErrorKind, code, message string) *TerminalError {
	return &TerminalError{Code: code, Message: message, Kind: kind}
}

// sdkError wraps an SDK failure. The SDK text is carried in message only.
func sdkError(kind ErrorKind, code, message string, err error) *TerminalError {
	return &TerminalError{
		Code:    code,
		Message: message,
		Kind:    kind,
		Err:     err,
	}
}

// collectError is the collection failure, the only one that also returns
// the SDK text as details
func collectError(message string, err error) *TerminalError {
	terminalErr := sdkError(KindOperation, CodeUnableToCollectPaymentMethod, message, err)
	details := err.Error()
	terminalErr.Details = &details
	return terminalErr
}

// NewInvalidRequestError reports a malformed or missing argument
func NewInvalidRequestError(message string) *TerminalError {
	return newError(KindValidation, CodeInvalidRequest, message)
}

// NewUnsupportedError reports an unknown command name
func NewUnsupportedError(method string) *TerminalError {
	return newError(KindUnsupported, CodeUnsupportedFunctionCall,
		fmt.Sprintf("A method call of name %s is not supported by the bridge.", method))
}

// AsTerminalError extracts a TerminalError from err. Any other error becomes
// an operation failure with the given fallback code.
func AsTerminalError(err error, fallbackCode string) *TerminalError {
	var terminalErr *TerminalError
	if errors.As(err, &terminalErr) {
		return terminalErr
	}
	return sdkError(KindOperation, fallbackCode, err.Error(), err)
}

// HasCode reports whether err is a TerminalError carrying code
func HasCode(err error, code string) bool {
	var terminalErr *TerminalError
	return errors.As(err, &terminalErr) && terminalErr.Code == code
}
