// pkg/terminal/interfaces.go
package terminal

import (
	"context"

	"terminal-bridge/internal/model"
)

// StateAccessor exposes the SDK-owned connection state. The bridge only reads it.
type StateAccessor interface {
	ConnectionStatus() model.ConnectionStatus
	ConnectedReader() *model.Reader
}

// Cancelable is an in-flight operation that can be aborted
type Cancelable interface {
	// Cancel asks the SDK to abort the operation. Canceling an operation that
	// has already settled is a no-op or returns a benign error.
	Cancel(ctx context.Context) error

	// Done is closed once the operation settles
	Done() <-chan struct{}
}

// PendingCollection is a cancelable collect-payment-method call
type PendingCollection interface {
	Cancelable

	// Result blocks until the collection settles
	Result() (*model.PaymentIntent, error)
}

// ConnectionTokenProvider supplies connection tokens to the SDK
type ConnectionTokenProvider interface {
	FetchConnectionToken(ctx context.Context) (string, error)
}

// Discoverer starts reader discovery scans
type Discoverer interface {
	// DiscoverReaders starts a scan. It returns once the scan has been accepted;
	// found readers are delivered to sink until the scan is canceled.
	DiscoverReaders(ctx context.Context, config model.DiscoveryConfiguration, sink DiscoverySink) (Cancelable, error)
}

// Connector connects to and disconnects from readers
type Connector interface {
	StateAccessor

	ConnectBluetoothReader(ctx context.Context, reader *model.Reader, sink ReaderEventSink, config model.BluetoothConnectionConfig) (*model.Reader, error)
	ConnectLocalMobileReader(ctx context.Context, reader *model.Reader, sink ReaderEventSink, config model.LocalMobileConnectionConfig) (*model.Reader, error)
	ConnectInternetReader(ctx context.Context, reader *model.Reader, config model.InternetConnectionConfig) (*model.Reader, error)
	DisconnectReader(ctx context.Context) error
}

// PaymentProcessor drives the payment intent lifecycle
type PaymentProcessor interface {
	StateAccessor

	RetrievePaymentIntent(ctx context.Context, clientSecret string) (*model.PaymentIntent, error)
	CollectPaymentMethod(ctx context.Context, intent *model.PaymentIntent, config model.CollectConfiguration) PendingCollection
	ProcessPayment(ctx context.Context, intent *model.PaymentIntent) (*model.PaymentIntent, error)
}

// ReaderUtilities are one-shot reader capabilities outside the payment pipeline
type ReaderUtilities interface {
	StateAccessor

	ReadReusableCard(ctx context.Context, params model.ReadReusableCardParameters) (*model.PaymentMethod, error)
	SetReaderDisplay(ctx context.Context, cart model.Cart) error
	ClearReaderDisplay(ctx context.Context) error
	TapToPaySupported(ctx context.Context) (bool, error)
}

// Terminal is the full card-reader SDK capability set
type Terminal interface {
	Discoverer
	Connector
	PaymentProcessor
	ReaderUtilities

	HasTokenProvider() bool
	SetTokenProvider(provider ConnectionTokenProvider)
	SetEventSink(sink TerminalEventSink)
}
