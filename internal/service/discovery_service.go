// internal/service/discovery_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"terminal-bridge/internal/model"
	"terminal-bridge/internal/registry"
	"terminal-bridge/internal/utils"
	"terminal-bridge/pkg/terminal"
)

// DiscoverRequest is the host's discovery configuration
type DiscoverRequest struct {
	DiscoveryMethod string  `json:"discoveryMethod"`
	LocationID      *string `json:"locationId"`
	Simulated       bool    `json:"simulated"`
}

// DiscoveryService starts and stops reader discovery scans
type DiscoveryService struct {
	terminal terminal.Discoverer
	registry *registry.ReaderRegistry
	sink     terminal.DiscoverySink
	slot     *HandleSlot
	logger   *utils.ServiceLogger
}

// NewDiscoveryService creates a new discovery service. Found readers are
// stored in the registry before being forwarded to sink.
func NewDiscoveryService(
	discoverer terminal.Discoverer,
	readerRegistry *registry.ReaderRegistry,
	sink terminal.DiscoverySink,
	slot *HandleSlot,
	logger *zap.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		terminal: discoverer,
		registry: readerRegistry,
		sink:     sink,
		slot:     slot,
		logger:   utils.NewServiceLogger(logger, "discovery-service"),
	}
}

// Start begins a discovery scan and returns once the SDK accepted it
func (ds *DiscoveryService) Start(ctx context.Context, req *DiscoverRequest) error {
	if req == nil {
		return NewInvalidRequestError("`discoveryMethod` is not provided on discoverReaders function")
	}

	method, ok := model.ParseDiscoveryMethod(req.DiscoveryMethod)
	if !ok {
		return NewInvalidRequestError("`discoveryMethod` is not provided on discoverReaders function")
	}

	if !ds.slot.Acquire() {
		return newError(KindStateGuard, CodeDiscoveryInProgress,
			"A discover action is already running. Stop it before starting a new one.")
	}

	config := model.DiscoveryConfiguration{
		DiscoveryMethod: method,
		LocationID:      req.LocationID,
		Simulated:       req.Simulated,
	}

	handle, err := ds.terminal.DiscoverReaders(ctx, config, ds)
	if err == nil && handle == nil {
		err = errors.New("the reader SDK returned no discovery handle")
	}
	if err != nil {
		ds.slot.Release()
		ds.logger.Warn("Discovery failed to start",
			zap.String("method", string(method)),
			zap.Error(err),
		)
		return sdkError(KindOperation, CodeUnableToDiscover,
			fmt.Sprintf("Unable to discover readers because %s", err.Error()), err)
	}

	ds.slot.Store(handle)
	go ds.watch(handle)

	ds.logger.Info("Discovery started",
		zap.String("method", string(method)),
		zap.Bool("simulated", req.Simulated),
	)
	return nil
}

// watch clears the slot once the scan settles on its own
func (ds *DiscoveryService) watch(handle terminal.Cancelable) {
	<-handle.Done()
	if ds.slot.ClearIf(handle) {
		ds.logger.Debug("Discovery settled")
	}
}

// OnReadersFound implements terminal.DiscoverySink
func (ds *DiscoveryService) OnReadersFound(readers []*model.Reader) {
	ds.registry.Replace(readers)
	ds.sink.OnReadersFound(readers)
}

// Stop cancels the running scan
func (ds *DiscoveryService) Stop(ctx context.Context) error {
	handle, ok := ds.slot.Take()
	if !ok {
		return newError(KindStateGuard, CodeUnableToCancelDiscover,
			"There is no discover action running to stop.")
	}

	if err := handle.Cancel(ctx); err != nil {
		ds.logger.Warn("Failed to stop discovery", zap.Error(err))
		return sdkError(KindOperation, CodeUnableToCancelDiscover,
			fmt.Sprintf("Unable to stop the discover action because %s", err.Error()), err)
	}

	ds.logger.Info("Discovery stopped")
	return nil
}

// Running reports whether a scan handle is held
func (ds *DiscoveryService) Running() bool {
	return ds.slot.Occupied()
}

// Readers returns the readers found by the latest batch
func (ds *DiscoveryService) Readers() []*model.Reader {
	return ds.registry.List()
}
