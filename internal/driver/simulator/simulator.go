// internal/driver/simulator/simulator.go
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"terminal-bridge/internal/config"
	"terminal-bridge/internal/model"
	"terminal-bridge/pkg/terminal"
)

// Errors reported by the simulated SDK
var (
	ErrNoTokenProvider   = errors.New("no connection token provider has been set")
	ErrNotConnected      = errors.New("no reader is connected")
	ErrAlreadyConnected  = errors.New("a reader is already connected")
	ErrInvalidSecret     = errors.New("invalid payment intent client secret")
	ErrNoPaymentMethod   = errors.New("the payment intent has no collected payment method")
	ErrUnsupportedReader = errors.New("the reader does not support this connection type")
)

// Terminal is an in-process card reader SDK. It produces readers, drives
// connections and runs payments with configurable delays and no hardware.
type Terminal struct {
	cfg    config.SimulatorConfig
	logger *zap.Logger

	mu            sync.Mutex
	status        model.ConnectionStatus
	connected     *model.Reader
	readerSink    terminal.ReaderEventSink
	eventSink     terminal.TerminalEventSink
	tokenProvider terminal.ConnectionTokenProvider
}

var _ terminal.Terminal = (*Terminal)(nil)

// New creates a simulated terminal
func New(cfg config.SimulatorConfig, logger *zap.Logger) *Terminal {
	if cfg.PaymentCurrency == "" {
		cfg.PaymentCurrency = "usd"
	}
	return &Terminal{
		cfg:    cfg,
		status: model.ConnectionStatusNotConnected,
		logger: logger.With(zap.String("component", "simulator")),
	}
}

func (t *Terminal) ConnectionStatus() model.ConnectionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Terminal) ConnectedReader() *model.Reader {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *Terminal) HasTokenProvider() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokenProvider != nil
}

func (t *Terminal) SetTokenProvider(provider terminal.ConnectionTokenProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokenProvider = provider
}

func (t *Terminal) SetEventSink(sink terminal.TerminalEventSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eventSink = sink
}

// fetchToken asks the installed provider for a connection token
func (t *Terminal) fetchToken(ctx context.Context) error {
	t.mu.Lock()
	provider := t.tokenProvider
	t.mu.Unlock()

	if provider == nil {
		return ErrNoTokenProvider
	}
	if _, err := provider.FetchConnectionToken(ctx); err != nil {
		return fmt.Errorf("failed to fetch connection token: %w", err)
	}
	return nil
}

// DiscoverReaders emits one batch after the discovery delay and keeps the
// scan open until it is canceled
func (t *Terminal) DiscoverReaders(ctx context.Context, cfg model.DiscoveryConfiguration, sink terminal.DiscoverySink) (terminal.Cancelable, error) {
	if err := t.fetchToken(ctx); err != nil {
		return nil, err
	}

	readers := t.readersFor(cfg)
	op := newOperation()

	go func() {
		defer op.settle()

		if !op.wait(t.cfg.DiscoveryDelay) {
			return
		}
		t.logger.Debug("Simulated readers found",
			zap.String("discovery_method", string(cfg.DiscoveryMethod)),
			zap.Int("count", len(readers)),
		)
		sink.OnReadersFound(readers)

		<-op.canceled
	}()

	return op, nil
}

// readersFor builds the simulated readers a discovery method finds
func (t *Terminal) readersFor(cfg model.DiscoveryConfiguration) []*model.Reader {
	readers := make([]*model.Reader, 0, t.cfg.ReaderCount)

	switch cfg.DiscoveryMethod {
	case model.DiscoveryMethodLocalMobile:
		if t.cfg.ReaderCount > 0 {
			readers = append(readers, t.newReader("IPHONE-SIM-0", model.DeviceTypeAppleBuiltIn, nil))
		}
	case model.DiscoveryMethodInternet:
		locationID := t.cfg.LocationID
		if cfg.LocationID != nil && *cfg.LocationID != "" {
			locationID = *cfg.LocationID
		}
		for i := 0; i < t.cfg.ReaderCount; i++ {
			reader := t.newReader(fmt.Sprintf("WSC-SIM-%d", i), model.DeviceTypeWisePosE, &locationID)
			ip := fmt.Sprintf("192.168.0.%d", 100+i)
			reader.IPAddress = &ip
			readers = append(readers, reader)
		}
	default:
		for i := 0; i < t.cfg.ReaderCount; i++ {
			deviceType := model.DeviceTypeChipper2X
			if i%2 == 1 {
				deviceType = model.DeviceTypeWisePad3
			}
			reader := t.newReader(fmt.Sprintf("CHB-SIM-%d", i), deviceType, nil)
			battery := 0.8
			reader.BatteryLevel = &battery
			reader.BatteryStatus = model.BatteryStatusNominal
			readers = append(readers, reader)
		}
	}

	return readers
}

func (t *Terminal) newReader(serial string, deviceType model.DeviceType, locationID *string) *model.Reader {
	version := "2.1.0.0-sim"
	reader := &model.Reader{
		SerialNumber:          serial,
		DeviceType:            deviceType,
		DeviceSoftwareVersion: &version,
		LocationID:            locationID,
		LocationStatus:        model.LocationStatusNotSet,
		Simulated:             true,
	}
	if locationID != nil {
		reader.LocationStatus = model.LocationStatusSet
	}
	reader.OriginalJSON, _ = json.Marshal(map[string]any{
		"serialNumber": serial,
		"deviceType":   int(deviceType),
		"locationId":   locationID,
		"simulated":    true,
	})
	return reader
}

// connect moves the terminal through connecting to connected
func (t *Terminal) connect(ctx context.Context, reader *model.Reader, sink terminal.ReaderEventSink, locationID *string) (*model.Reader, error) {
	if err := t.fetchToken(ctx); err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.status != model.ConnectionStatusNotConnected {
		t.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	t.status = model.ConnectionStatusConnecting
	t.mu.Unlock()

	if err := sleepContext(ctx, t.cfg.ConnectDelay); err != nil {
		t.mu.Lock()
		t.status = model.ConnectionStatusNotConnected
		t.mu.Unlock()
		return nil, fmt.Errorf("connection interrupted: %w", err)
	}

	connected := *reader
	if locationID != nil && *locationID != "" {
		loc := *locationID
		connected.LocationID = &loc
		connected.LocationStatus = model.LocationStatusSet
	}

	t.mu.Lock()
	t.status = model.ConnectionStatusConnected
	t.connected = &connected
	t.readerSink = sink
	t.mu.Unlock()

	t.logger.Info("Simulated reader connected", zap.String("reader_serial", connected.SerialNumber))
	return &connected, nil
}

func (t *Terminal) ConnectBluetoothReader(ctx context.Context, reader *model.Reader, sink terminal.ReaderEventSink, cfg model.BluetoothConnectionConfig) (*model.Reader, error) {
	if reader.DeviceType == model.DeviceTypeAppleBuiltIn || reader.DeviceType == model.DeviceTypeWisePosE {
		return nil, ErrUnsupportedReader
	}
	return t.connect(ctx, reader, sink, &cfg.LocationID)
}

func (t *Terminal) ConnectLocalMobileReader(ctx context.Context, reader *model.Reader, sink terminal.ReaderEventSink, cfg model.LocalMobileConnectionConfig) (*model.Reader, error) {
	if reader.DeviceType != model.DeviceTypeAppleBuiltIn {
		return nil, ErrUnsupportedReader
	}
	if !t.cfg.TapToPaySupported {
		return nil, errors.New("tap to pay is not supported on this device")
	}
	return t.connect(ctx, reader, sink, &cfg.LocationID)
}

func (t *Terminal) ConnectInternetReader(ctx context.Context, reader *model.Reader, cfg model.InternetConnectionConfig) (*model.Reader, error) {
	if reader.DeviceType != model.DeviceTypeWisePosE {
		return nil, ErrUnsupportedReader
	}
	return t.connect(ctx, reader, nil, nil)
}

func (t *Terminal) DisconnectReader(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = model.ConnectionStatusNotConnected
	t.connected = nil
	t.readerSink = nil
	return nil
}

// SimulateUnexpectedDisconnect drops the connected reader and notifies the
// terminal event sink
func (t *Terminal) SimulateUnexpectedDisconnect() {
	t.mu.Lock()
	reader := t.connected
	sink := t.eventSink
	t.status = model.ConnectionStatusNotConnected
	t.connected = nil
	t.readerSink = nil
	t.mu.Unlock()

	if reader != nil && sink != nil {
		sink.OnUnexpectedDisconnect(reader)
	}
}

// connectedState returns the connected reader and its sink, or ErrNotConnected
func (t *Terminal) connectedState() (*model.Reader, terminal.ReaderEventSink, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected == nil {
		return nil, nil, ErrNotConnected
	}
	return t.connected, t.readerSink, nil
}

// RetrievePaymentIntent accepts secrets shaped like pi_xxx_secret_yyy
func (t *Terminal) RetrievePaymentIntent(ctx context.Context, clientSecret string) (*model.PaymentIntent, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || !strings.HasPrefix(id, "pi_") {
		return nil, ErrInvalidSecret
	}

	intent := &model.PaymentIntent{
		ID:       id,
		Status:   model.PaymentIntentRequiresPaymentMethod,
		Amount:   t.cfg.PaymentAmount,
		Currency: t.cfg.PaymentCurrency,
	}
	encodeIntent(intent)
	return intent, nil
}

// CollectPaymentMethod prompts for a card and settles after the collect delay
func (t *Terminal) CollectPaymentMethod(ctx context.Context, intent *model.PaymentIntent, cfg model.CollectConfiguration) terminal.PendingCollection {
	pending := &pendingCollection{operation: newOperation()}

	reader, sink, err := t.connectedState()
	if err != nil {
		pending.err = err
		pending.settle()
		return pending
	}

	go func() {
		defer pending.settle()

		if sink != nil {
			sink.OnReaderInput(reader, model.ReaderInputOptionSwipe|model.ReaderInputOptionInsert|model.ReaderInputOptionTap)
		}

		if !pending.wait(t.cfg.CollectDelay) {
			pending.err = ErrCanceled
			return
		}

		if sink != nil {
			sink.OnReaderEvent(reader, model.ReaderEventCardInserted)
			sink.OnDisplayMessage(reader, model.DisplayMessageRemoveCard)
		}

		collected := *intent
		collected.Status = model.PaymentIntentRequiresConfirmation
		encodeIntent(&collected)
		pending.intent = &collected
	}()

	return pending
}

// ProcessPayment confirms a collected intent
func (t *Terminal) ProcessPayment(ctx context.Context, intent *model.PaymentIntent) (*model.PaymentIntent, error) {
	if _, _, err := t.connectedState(); err != nil {
		return nil, err
	}
	if intent.Status != model.PaymentIntentRequiresConfirmation {
		return nil, ErrNoPaymentMethod
	}
	if err := sleepContext(ctx, t.cfg.ProcessDelay); err != nil {
		return nil, fmt.Errorf("processing interrupted: %w", err)
	}

	processed := *intent
	processed.Status = model.PaymentIntentRequiresCapture
	encodeIntent(&processed)
	return &processed, nil
}

func (t *Terminal) ReadReusableCard(ctx context.Context, params model.ReadReusableCardParameters) (*model.PaymentMethod, error) {
	reader, sink, err := t.connectedState()
	if err != nil {
		return nil, err
	}
	if sink != nil {
		sink.OnReaderInput(reader, model.ReaderInputOptionSwipe|model.ReaderInputOptionInsert)
	}
	if err := sleepContext(ctx, t.cfg.CollectDelay); err != nil {
		return nil, fmt.Errorf("card read interrupted: %w", err)
	}

	country := "US"
	card := &model.CardDetails{
		Brand:    "visa",
		Country:  &country,
		ExpMonth: 12,
		ExpYear:  time.Now().Year() + 3,
		Last4:    "4242",
	}
	method := &model.PaymentMethod{
		ID:   "pm_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24],
		Card: card,
	}
	method.OriginalJSON, _ = json.Marshal(map[string]any{
		"id":       method.ID,
		"object":   "payment_method",
		"type":     "card",
		"customer": params.Customer,
		"metadata": params.Metadata,
		"card":     card,
	})
	return method, nil
}

func (t *Terminal) SetReaderDisplay(ctx context.Context, cart model.Cart) error {
	reader, _, err := t.connectedState()
	if err != nil {
		return err
	}
	t.logger.Debug("Simulated cart displayed",
		zap.String("reader_serial", reader.SerialNumber),
		zap.Int("line_items", len(cart.LineItems)),
	)
	return nil
}

func (t *Terminal) ClearReaderDisplay(ctx context.Context) error {
	_, _, err := t.connectedState()
	return err
}

func (t *Terminal) TapToPaySupported(ctx context.Context) (bool, error) {
	return t.cfg.TapToPaySupported, nil
}

// encodeIntent refreshes the intent's original JSON from its fields
func encodeIntent(intent *model.PaymentIntent) {
	intent.OriginalJSON, _ = json.Marshal(map[string]any{
		"id":       intent.ID,
		"object":   "payment_intent",
		"amount":   intent.Amount,
		"currency": intent.Currency,
		"status":   intent.Status,
	})
}
