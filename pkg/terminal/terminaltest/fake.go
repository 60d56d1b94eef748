// pkg/terminal/terminaltest/fake.go
package terminaltest

import (
	"context"
	"errors"
	"sync"

	"terminal-bridge/internal/model"
	"terminal-bridge/pkg/terminal"
)

// ErrCanceled is the error a canceled fake collection settles with
var ErrCanceled = errors.New("the command was canceled")

// Handle is a scriptable Cancelable
type Handle struct {
	mu              sync.Mutex
	done            chan struct{}
	cancelRequested chan struct{}
	settleOnCancel  bool
	settled         bool
	canceled        bool
	cancelCalls     int

	// CancelErr, when set, is returned by Cancel and the operation keeps running
	CancelErr error
}

// NewHandle creates a handle. When settleOnCancel is true a successful Cancel
// settles the handle immediately.
func NewHandle(settleOnCancel bool) *Handle {
	return &Handle{
		done:            make(chan struct{}),
		cancelRequested: make(chan struct{}),
		settleOnCancel:  settleOnCancel,
	}
}

// Cancel implements terminal.Cancelable
func (h *Handle) Cancel(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cancelCalls++
	if h.CancelErr != nil {
		return h.CancelErr
	}
	if h.settled || h.canceled {
		return nil
	}

	h.canceled = true
	close(h.cancelRequested)
	if h.settleOnCancel {
		h.settleLocked()
	}
	return nil
}

// Done implements terminal.Cancelable
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Settle finishes the operation as if the SDK completed it
func (h *Handle) Settle() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settleLocked()
}

func (h *Handle) settleLocked() {
	if !h.settled {
		h.settled = true
		close(h.done)
	}
}

// CancelCalls returns how many times Cancel was invoked
func (h *Handle) CancelCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelCalls
}

// Canceled reports whether a cancel request was accepted
func (h *Handle) Canceled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.canceled
}

type pendingCollection struct {
	*Handle
	intent *model.PaymentIntent
	err    error
}

func (p *pendingCollection) Result() (*model.PaymentIntent, error) {
	<-p.Done()
	return p.intent, p.err
}

// ConnectCall records one connect request
type ConnectCall struct {
	Kind        model.ConnectionKind
	Reader      *model.Reader
	Bluetooth   *model.BluetoothConnectionConfig
	LocalMobile *model.LocalMobileConnectionConfig
	Internet    *model.InternetConnectionConfig
}

// Fake is a scriptable terminal.Terminal for tests. Configure the exported
// fields before handing it to the code under test.
type Fake struct {
	mu sync.Mutex

	Status    model.ConnectionStatus
	Connected *model.Reader

	DiscoverErr error
	// DiscoverNoHandle makes DiscoverReaders accept the scan without a handle
	DiscoverNoHandle bool

	ConnectErr error

	DisconnectErr error

	RetrieveIntent *model.PaymentIntent
	RetrieveErr    error

	// CollectGate, when set, holds every collection until it is closed or the
	// collection is canceled
	CollectGate      chan struct{}
	CollectErr       error
	CollectCancelErr error
	CollectNoHandle  bool

	ProcessIntent *model.PaymentIntent
	ProcessErr    error
	// ProcessHook runs at the start of ProcessPayment. ProcessPayment fails
	// with the context error if ctx has ended once the hook returns.
	ProcessHook func()

	ReusableMethod *model.PaymentMethod
	ReusableErr    error

	DisplayErr error
	ClearErr   error

	TapToPay    bool
	TapToPayErr error

	tokenProvider     terminal.ConnectionTokenProvider
	tokenProviderSets int
	eventSink         terminal.TerminalEventSink

	discoverCalls   []model.DiscoveryConfiguration
	discoverHandles []*Handle
	discoverySink   terminal.DiscoverySink
	connectCalls    []ConnectCall
	readerSink      terminal.ReaderEventSink
	disconnectCalls int
	retrieveCalls   []string
	collectCalls    []model.CollectConfiguration
	collectHandles  []*Handle
	processCalls    int
	reusableCalls   int
	displayCarts    []model.Cart
	clearCalls      int
}

var _ terminal.Terminal = (*Fake)(nil)

// NewFake creates a disconnected fake terminal
func NewFake() *Fake {
	return &Fake{Status: model.ConnectionStatusNotConnected}
}

func (f *Fake) ConnectionStatus() model.ConnectionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Status
}

func (f *Fake) ConnectedReader() *model.Reader {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetConnected puts the fake into the connected state with reader
func (f *Fake) SetConnected(reader *model.Reader) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Status = model.ConnectionStatusConnected
	f.Connected = reader
}

func (f *Fake) HasTokenProvider() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenProvider != nil
}

func (f *Fake) SetTokenProvider(provider terminal.ConnectionTokenProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenProvider = provider
	f.tokenProviderSets++
}

// TokenProviderSets returns how many times a token provider was installed
func (f *Fake) TokenProviderSets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenProviderSets
}

func (f *Fake) SetEventSink(sink terminal.TerminalEventSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventSink = sink
}

// EventSink returns the installed terminal event sink
func (f *Fake) EventSink() terminal.TerminalEventSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eventSink
}

func (f *Fake) DiscoverReaders(ctx context.Context, config model.DiscoveryConfiguration, sink terminal.DiscoverySink) (terminal.Cancelable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.discoverCalls = append(f.discoverCalls, config)
	if f.DiscoverErr != nil {
		return nil, f.DiscoverErr
	}

	f.discoverySink = sink
	if f.DiscoverNoHandle {
		return nil, nil
	}

	handle := NewHandle(true)
	f.discoverHandles = append(f.discoverHandles, handle)
	return handle, nil
}

// EmitReaders delivers a discovery batch to the latest discovery sink
func (f *Fake) EmitReaders(readers ...*model.Reader) {
	f.mu.Lock()
	sink := f.discoverySink
	f.mu.Unlock()

	if sink != nil {
		sink.OnReadersFound(readers)
	}
}

// DiscoverCalls returns the recorded discovery configurations
func (f *Fake) DiscoverCalls() []model.DiscoveryConfiguration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.DiscoveryConfiguration(nil), f.discoverCalls...)
}

// DiscoverHandles returns every handle issued by DiscoverReaders
func (f *Fake) DiscoverHandles() []*Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Handle(nil), f.discoverHandles...)
}

func (f *Fake) connect(call ConnectCall) (*model.Reader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connectCalls = append(f.connectCalls, call)
	if f.ConnectErr != nil {
		f.Status = model.ConnectionStatusNotConnected
		return nil, f.ConnectErr
	}

	f.Status = model.ConnectionStatusConnected
	f.Connected = call.Reader
	return call.Reader, nil
}

func (f *Fake) ConnectBluetoothReader(ctx context.Context, reader *model.Reader, sink terminal.ReaderEventSink, config model.BluetoothConnectionConfig) (*model.Reader, error) {
	f.mu.Lock()
	f.readerSink = sink
	f.mu.Unlock()
	return f.connect(ConnectCall{Kind: model.ConnectionKindBluetooth, Reader: reader, Bluetooth: &config})
}

func (f *Fake) ConnectLocalMobileReader(ctx context.Context, reader *model.Reader, sink terminal.ReaderEventSink, config model.LocalMobileConnectionConfig) (*model.Reader, error) {
	f.mu.Lock()
	f.readerSink = sink
	f.mu.Unlock()
	return f.connect(ConnectCall{Kind: model.ConnectionKindLocalMobile, Reader: reader, LocalMobile: &config})
}

func (f *Fake) ConnectInternetReader(ctx context.Context, reader *model.Reader, config model.InternetConnectionConfig) (*model.Reader, error) {
	return f.connect(ConnectCall{Kind: model.ConnectionKindInternet, Reader: reader, Internet: &config})
}

// ConnectCalls returns the recorded connect requests
func (f *Fake) ConnectCalls() []ConnectCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ConnectCall(nil), f.connectCalls...)
}

// ReaderSink returns the sink passed with the last Bluetooth or local-mobile connect
func (f *Fake) ReaderSink() terminal.ReaderEventSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readerSink
}

func (f *Fake) DisconnectReader(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.disconnectCalls++
	if f.DisconnectErr != nil {
		return f.DisconnectErr
	}
	f.Status = model.ConnectionStatusNotConnected
	f.Connected = nil
	return nil
}

// DisconnectCalls returns how many times DisconnectReader was invoked
func (f *Fake) DisconnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnectCalls
}

func (f *Fake) RetrievePaymentIntent(ctx context.Context, clientSecret string) (*model.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.retrieveCalls = append(f.retrieveCalls, clientSecret)
	if f.RetrieveErr != nil {
		return nil, f.RetrieveErr
	}
	return f.RetrieveIntent, nil
}

// RetrieveCalls returns the client secrets passed to RetrievePaymentIntent
func (f *Fake) RetrieveCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.retrieveCalls...)
}

func (f *Fake) CollectPaymentMethod(ctx context.Context, intent *model.PaymentIntent, config model.CollectConfiguration) terminal.PendingCollection {
	f.mu.Lock()
	f.collectCalls = append(f.collectCalls, config)
	if f.CollectNoHandle {
		f.mu.Unlock()
		return nil
	}
	gate := f.CollectGate
	collectErr := f.CollectErr
	handle := NewHandle(false)
	handle.CancelErr = f.CollectCancelErr
	f.collectHandles = append(f.collectHandles, handle)
	f.mu.Unlock()

	pending := &pendingCollection{Handle: handle}
	go func() {
		if gate != nil {
			select {
			case <-gate:
			case <-handle.cancelRequested:
				pending.err = ErrCanceled
				handle.Settle()
				return
			}
		}
		if collectErr != nil {
			pending.err = collectErr
		} else {
			pending.intent = intent
		}
		handle.Settle()
	}()

	return pending
}

// CollectCalls returns the recorded collect configurations
func (f *Fake) CollectCalls() []model.CollectConfiguration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.CollectConfiguration(nil), f.collectCalls...)
}

// CollectHandles returns every handle issued by CollectPaymentMethod
func (f *Fake) CollectHandles() []*Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Handle(nil), f.collectHandles...)
}

func (f *Fake) ProcessPayment(ctx context.Context, intent *model.PaymentIntent) (*model.PaymentIntent, error) {
	f.mu.Lock()
	f.processCalls++
	hook := f.ProcessHook
	processed, processErr := f.ProcessIntent, f.ProcessErr
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if processErr != nil {
		return nil, processErr
	}
	if processed == nil {
		processed = intent
	}
	return processed, nil
}

// ProcessCalls returns how many times ProcessPayment was invoked
func (f *Fake) ProcessCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processCalls
}

func (f *Fake) ReadReusableCard(ctx context.Context, params model.ReadReusableCardParameters) (*model.PaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reusableCalls++
	if f.ReusableErr != nil {
		return nil, f.ReusableErr
	}
	return f.ReusableMethod, nil
}

// ReusableCalls returns how many times ReadReusableCard was invoked
func (f *Fake) ReusableCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reusableCalls
}

func (f *Fake) SetReaderDisplay(ctx context.Context, cart model.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.displayCarts = append(f.displayCarts, cart)
	return f.DisplayErr
}

// DisplayedCarts returns every cart passed to SetReaderDisplay
func (f *Fake) DisplayedCarts() []model.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Cart(nil), f.displayCarts...)
}

func (f *Fake) ClearReaderDisplay(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clearCalls++
	return f.ClearErr
}

// ClearCalls returns how many times ClearReaderDisplay was invoked
func (f *Fake) ClearCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearCalls
}

func (f *Fake) TapToPaySupported(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.TapToPay, f.TapToPayErr
}
