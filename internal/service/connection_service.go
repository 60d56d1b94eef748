// internal/service/connection_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"terminal-bridge/internal/model"
	"terminal-bridge/internal/registry"
	"terminal-bridge/internal/utils"
	"terminal-bridge/pkg/terminal"
)

// ConnectRequest is the host's connect payload. Fields a strategy does not
// use are ignored.
type ConnectRequest struct {
	ReaderSerialNumber *string `json:"readerSerialNumber"`
	LocationID         *string `json:"locationId"`
	OnBehalfOf         *string `json:"onBehalfOf"`
	DisplayName        *string `json:"displayName"`
	FailIfInUse        *bool   `json:"failIfInUse"`
}

type connectStrategy struct {
	requiresLocation bool
	build            func(req *ConnectRequest, locationID string) model.ConnectionConfig
	connect          func(ctx context.Context, reader *model.Reader, config model.ConnectionConfig) (*model.Reader, error)
}

// ConnectionService connects the SDK to discovered readers
type ConnectionService struct {
	terminal          terminal.Connector
	registry          *registry.ReaderRegistry
	readerSink        terminal.ReaderEventSink
	defaultLocationID string
	strategies        map[model.ConnectionKind]connectStrategy
	logger            *utils.ServiceLogger
	auditLogger       *utils.AuditLogger
}

// NewConnectionService creates a new connection service. readerSink receives
// the reader callbacks of Bluetooth and local-mobile connections.
func NewConnectionService(
	connector terminal.Connector,
	readerRegistry *registry.ReaderRegistry,
	readerSink terminal.ReaderEventSink,
	defaultLocationID string,
	logger *zap.Logger,
) *ConnectionService {
	cs := &ConnectionService{
		terminal:          connector,
		registry:          readerRegistry,
		readerSink:        readerSink,
		defaultLocationID: defaultLocationID,
		logger:            utils.NewServiceLogger(logger, "connection-service"),
		auditLogger:       utils.NewAuditLogger(logger),
	}
	cs.strategies = cs.buildStrategies()
	return cs
}

func (cs *ConnectionService) buildStrategies() map[model.ConnectionKind]connectStrategy {
	return map[model.ConnectionKind]connectStrategy{
		model.ConnectionKindBluetooth: {
			requiresLocation: true,
			build: func(req *ConnectRequest, locationID string) model.ConnectionConfig {
				return model.ConnectionConfig{
					Kind:      model.ConnectionKindBluetooth,
					Bluetooth: &model.BluetoothConnectionConfig{LocationID: locationID},
				}
			},
			connect: func(ctx context.Context, reader *model.Reader, config model.ConnectionConfig) (*model.Reader, error) {
				return cs.terminal.ConnectBluetoothReader(ctx, reader, cs.readerSink, *config.Bluetooth)
			},
		},
		model.ConnectionKindLocalMobile: {
			requiresLocation: true,
			build: func(req *ConnectRequest, locationID string) model.ConnectionConfig {
				return model.ConnectionConfig{
					Kind: model.ConnectionKindLocalMobile,
					LocalMobile: &model.LocalMobileConnectionConfig{
						LocationID:          locationID,
						MerchantDisplayName: deref(req.DisplayName),
						OnBehalfOf:          req.OnBehalfOf,
					},
				}
			},
			connect: func(ctx context.Context, reader *model.Reader, config model.ConnectionConfig) (*model.Reader, error) {
				return cs.terminal.ConnectLocalMobileReader(ctx, reader, cs.readerSink, *config.LocalMobile)
			},
		},
		model.ConnectionKindInternet: {
			build: func(req *ConnectRequest, _ string) model.ConnectionConfig {
				failIfInUse := false
				if req.FailIfInUse != nil {
					failIfInUse = *req.FailIfInUse
				}
				return model.ConnectionConfig{
					Kind:     model.ConnectionKindInternet,
					Internet: &model.InternetConnectionConfig{FailIfInUse: failIfInUse},
				}
			},
			connect: func(ctx context.Context, reader *model.Reader, config model.ConnectionConfig) (*model.Reader, error) {
				return cs.terminal.ConnectInternetReader(ctx, reader, *config.Internet)
			},
		},
	}
}

// Guard checks the SDK is free to start a new connection
func (cs *ConnectionService) Guard() error {
	switch cs.terminal.ConnectionStatus() {
	case model.ConnectionStatusConnecting:
		return newError(KindStateGuard, CodeDeviceConnecting,
			"A new connection is being established with a device thus you cannot request a new connection at the moment.")
	case model.ConnectionStatusConnected:
		serial := "unknown"
		if reader := cs.terminal.ConnectedReader(); reader != nil {
			serial = reader.SerialNumber
		}
		return newError(KindStateGuard, CodeDeviceAlreadyConnected,
			fmt.Sprintf("A device with serial number %s is already connected", serial))
	}
	return nil
}

// Connect connects to a discovered reader using the strategy for kind
func (cs *ConnectionService) Connect(ctx context.Context, kind model.ConnectionKind, req *ConnectRequest) (*model.Reader, error) {
	if err := cs.Guard(); err != nil {
		return nil, err
	}

	strategy, ok := cs.strategies[kind]
	if !ok {
		return nil, NewInvalidRequestError(fmt.Sprintf("unsupported connection kind: %s", kind))
	}
	if req == nil {
		req = &ConnectRequest{}
	}

	reader, ok := cs.registry.Find(deref(req.ReaderSerialNumber))
	if !ok {
		return nil, newError(KindLookup, CodeReaderNotFound,
			"Reader with provided serial number no longer exists")
	}

	var locationID string
	if strategy.requiresLocation {
		locationID = cs.resolveLocation(req, reader)
		if locationID == "" {
			return nil, newError(KindLookup, CodeLocationNotProvided,
				"Either you have to provide the location id or device should be attached to a location")
		}
	}

	config := strategy.build(req, locationID)
	readerLogger := utils.NewReaderLogger(cs.logger.Logger, reader.SerialNumber, int(reader.DeviceType), reader.Simulated)

	connected, err := strategy.connect(ctx, reader, config)
	if err != nil {
		readerLogger.LogConnection(string(kind), false, err)
		cs.auditLogger.LogReaderConnection(reader.SerialNumber, string(kind), locationID, false)
		return nil, sdkError(KindOperation, CodeUnableToConnect, err.Error(), err)
	}
	if connected == nil {
		connected = reader
	}

	readerLogger.LogConnection(string(kind), true, nil)
	cs.auditLogger.LogReaderConnection(connected.SerialNumber, string(kind), locationID, true)
	return connected, nil
}

// resolveLocation picks the explicit location, then the reader's own, then
// the configured default
func (cs *ConnectionService) resolveLocation(req *ConnectRequest, reader *model.Reader) string {
	if loc := strings.TrimSpace(deref(req.LocationID)); loc != "" {
		return loc
	}
	if reader.HasLocation() {
		return *reader.LocationID
	}
	return cs.defaultLocationID
}

// Disconnect disconnects the connected reader
func (cs *ConnectionService) Disconnect(ctx context.Context) error {
	reader := cs.terminal.ConnectedReader()

	if err := cs.terminal.DisconnectReader(ctx); err != nil {
		cs.logger.Warn("Failed to disconnect reader", zap.Error(err))
		return sdkError(KindOperation, CodeUnableToDisconnect,
			fmt.Sprintf("Unable to disconnect from device because %s", err.Error()), err)
	}

	if reader != nil {
		cs.logger.Info("Reader disconnected", zap.String("reader_serial", reader.SerialNumber))
	}
	return nil
}

// Status returns the SDK connection status
func (cs *ConnectionService) Status() model.ConnectionStatus {
	return cs.terminal.ConnectionStatus()
}

// ConnectedReader returns the connected reader, or nil
func (cs *ConnectionService) ConnectedReader() *model.Reader {
	return cs.terminal.ConnectedReader()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
