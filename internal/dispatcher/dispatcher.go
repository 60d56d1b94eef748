// internal/dispatcher/dispatcher.go
package dispatcher

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"terminal-bridge/internal/model"
	"terminal-bridge/internal/registry"
	"terminal-bridge/internal/repository"
	"terminal-bridge/internal/service"
	"terminal-bridge/internal/utils"
	"terminal-bridge/pkg/terminal"
)

// Command names accepted from the host
const (
	MethodInit                     = "init"
	MethodDiscoverReadersStart     = "discoverReaders#start"
	MethodDiscoverReadersStop      = "discoverReaders#stop"
	MethodFetchConnectedReader     = "fetchConnectedReader"
	MethodConnectionStatus         = "connectionStatus"
	MethodDisconnectFromReader     = "disconnectFromReader"
	MethodConnectBluetoothReader   = "connectBluetoothReader"
	MethodConnectLocalMobileReader = "connectLocalMobileReader"
	MethodConnectToInternetReader  = "connectToInternetReader"
	MethodReadReusableCardDetail   = "readReusableCardDetail"
	MethodCollectPaymentMethod     = "collectPaymentMethod"
	MethodCollectPaymentMethodStop = "collectPaymentMethod#stop"
	MethodSetReaderDisplay         = "setReaderDisplay"
	MethodClearReaderDisplay       = "clearReaderDisplay"
	MethodTapToPaySupported        = "tapToPayOnIphoneIsSupported"
)

// CommandFunc executes one command against decoded arguments
type CommandFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Options configures a Dispatcher
type Options struct {
	HandlePolicy      service.SlotPolicy
	DefaultLocationID string
}

// Dispatcher maps command names to bridge operations and produces exactly
// one result or error per command
type Dispatcher struct {
	terminal      terminal.Terminal
	tokenProvider terminal.ConnectionTokenProvider
	sink          terminal.EventSink
	registry      *registry.ReaderRegistry
	journal       repository.CommandRepository

	discoverySlot  *service.HandleSlot
	collectionSlot *service.HandleSlot

	discovery  *service.DiscoveryService
	connection *service.ConnectionService
	collection *service.CollectionService
	reader     *service.ReaderService

	commands map[string]CommandFunc
	logger   *utils.ServiceLogger
}

// New wires the bridge services around sdk. Events are delivered to sink.
func New(
	sdk terminal.Terminal,
	tokenProvider terminal.ConnectionTokenProvider,
	sink terminal.EventSink,
	journal repository.CommandRepository,
	opts Options,
	logger *zap.Logger,
) *Dispatcher {
	if opts.HandlePolicy == "" {
		opts.HandlePolicy = service.SlotPolicyReplace
	}

	d := &Dispatcher{
		terminal:       sdk,
		tokenProvider:  tokenProvider,
		sink:           sink,
		registry:       registry.NewReaderRegistry(logger),
		journal:        journal,
		discoverySlot:  service.NewHandleSlot("discovery", opts.HandlePolicy, logger),
		collectionSlot: service.NewHandleSlot("collection", opts.HandlePolicy, logger),
		logger:         utils.NewServiceLogger(logger, "dispatcher"),
	}

	d.discovery = service.NewDiscoveryService(sdk, d.registry, sink, d.discoverySlot, logger)
	d.connection = service.NewConnectionService(sdk, d.registry, sink, opts.DefaultLocationID, logger)
	d.collection = service.NewCollectionService(sdk, sink, d.collectionSlot, logger)
	d.reader = service.NewReaderService(sdk, logger)
	d.commands = d.buildCommands()

	return d
}

func (d *Dispatcher) buildCommands() map[string]CommandFunc {
	return map[string]CommandFunc{
		MethodInit:                     d.handleInit,
		MethodDiscoverReadersStart:     d.handleDiscoverStart,
		MethodDiscoverReadersStop:      d.handleDiscoverStop,
		MethodFetchConnectedReader:     d.handleFetchConnectedReader,
		MethodConnectionStatus:         d.handleConnectionStatus,
		MethodDisconnectFromReader:     d.handleDisconnect,
		MethodConnectBluetoothReader:   d.connectHandler(model.ConnectionKindBluetooth),
		MethodConnectLocalMobileReader: d.connectHandler(model.ConnectionKindLocalMobile),
		MethodConnectToInternetReader:  d.connectHandler(model.ConnectionKindInternet),
		MethodReadReusableCardDetail:   d.handleReadReusableCard,
		MethodCollectPaymentMethod:     d.handleCollect,
		MethodCollectPaymentMethodStop: d.handleCollectStop,
		MethodSetReaderDisplay:         d.handleSetReaderDisplay,
		MethodClearReaderDisplay:       d.handleClearReaderDisplay,
		MethodTapToPaySupported:        d.handleTapToPaySupported,
	}
}

// Methods returns the supported command names in sorted order
func (d *Dispatcher) Methods() []string {
	methods := make([]string, 0, len(d.commands))
	for method := range d.commands {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// Dispatch runs a single command. The returned error is always a
// *service.TerminalError.
func (d *Dispatcher) Dispatch(ctx context.Context, source model.CommandSource, method string, args json.RawMessage) (any, error) {
	record := &model.CommandRecord{
		ID:        uuid.New(),
		Method:    method,
		Source:    source,
		Status:    model.CommandStatusPending,
		StartedAt: time.Now(),
	}
	d.journalCreate(ctx, record)

	opLogger := utils.NewOperationLogger(d.logger.Logger, method, record.ID.String())
	opLogger.Start(zap.String("source", string(source)))

	result, err := d.execute(ctx, method, args)
	if err != nil {
		terminalErr := service.AsTerminalError(err, service.CodeInvalidRequest)
		record.Complete(model.CommandStatusFailed, terminalErr.Code, terminalErr.Message)
		d.journalUpdate(record)
		opLogger.Error(terminalErr, zap.String("code", terminalErr.Code))
		return nil, terminalErr
	}

	record.Complete(model.CommandStatusSucceeded, "", "")
	d.journalUpdate(record)
	opLogger.Success()
	return result, nil
}

func (d *Dispatcher) execute(ctx context.Context, method string, args json.RawMessage) (any, error) {
	command, ok := d.commands[method]
	if !ok {
		return nil, service.NewUnsupportedError(method)
	}
	return command(ctx, args)
}

func (d *Dispatcher) journalCreate(ctx context.Context, record *model.CommandRecord) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Create(ctx, record); err != nil {
		d.logger.Warn("Failed to journal command", zap.String("method", record.Method), zap.Error(err))
	}
}

// journalUpdate runs detached from the command context, which may already be done
func (d *Dispatcher) journalUpdate(record *model.CommandRecord) {
	if d.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.journal.Update(ctx, record); err != nil {
		d.logger.Warn("Failed to update command journal", zap.String("method", record.Method), zap.Error(err))
	}
}

// Readers returns the latest discovery batch
func (d *Dispatcher) Readers() []*model.Reader {
	return d.registry.List()
}

// Status summarizes the bridge state
func (d *Dispatcher) Status() Status {
	status := Status{
		ConnectionStatus:  d.connection.Status().String(),
		DiscoveryRunning:  d.discovery.Running(),
		CollectionRunning: d.collection.Running(),
		ReaderCount:       d.registry.Len(),
		TokenProvider:     d.terminal.HasTokenProvider(),
	}
	if reader := d.connection.ConnectedReader(); reader != nil {
		status.ConnectedSerial = reader.SerialNumber
	}
	return status
}

// Status is a snapshot of the bridge state for health reporting
type Status struct {
	ConnectionStatus  string `json:"connection_status"`
	ConnectedSerial   string `json:"connected_serial,omitempty"`
	DiscoveryRunning  bool   `json:"discovery_running"`
	CollectionRunning bool   `json:"collection_running"`
	ReaderCount       int    `json:"reader_count"`
	TokenProvider     bool   `json:"token_provider"`
}

// Close releases everything the bridge holds on the SDK: the discovery scan,
// the reader connection and the pending collection. Failures are logged.
func (d *Dispatcher) Close(ctx context.Context) {
	if handle, ok := d.discoverySlot.Take(); ok {
		if err := handle.Cancel(ctx); err != nil {
			d.logger.Warn("Failed to cancel discovery on close", zap.Error(err))
		}
	}

	if d.connection.ConnectedReader() != nil {
		if err := d.connection.Disconnect(ctx); err != nil {
			d.logger.Warn("Failed to disconnect reader on close", zap.Error(err))
		}
	}

	if handle, ok := d.collectionSlot.Take(); ok {
		if err := handle.Cancel(ctx); err != nil {
			d.logger.Warn("Failed to cancel collection on close", zap.Error(err))
		}
	}

	d.logger.Info("Bridge closed")
}
