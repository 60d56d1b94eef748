package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"terminal-bridge/internal/model"
	"terminal-bridge/internal/registry"
	"terminal-bridge/pkg/terminal/terminaltest"
)

type fixture struct {
	fake           *terminaltest.Fake
	sink           *terminaltest.RecordingSink
	registry       *registry.ReaderRegistry
	discoverySlot  *HandleSlot
	collectionSlot *HandleSlot
	discovery      *DiscoveryService
	connection     *ConnectionService
	collection     *CollectionService
	reader         *ReaderService
}

func newFixture(t *testing.T, policy SlotPolicy) *fixture {
	t.Helper()

	logger := zap.NewNop()
	f := &fixture{
		fake:     terminaltest.NewFake(),
		sink:     &terminaltest.RecordingSink{},
		registry: registry.NewReaderRegistry(logger),
	}
	f.discoverySlot = NewHandleSlot("discovery", policy, logger)
	f.collectionSlot = NewHandleSlot("collection", policy, logger)
	f.discovery = NewDiscoveryService(f.fake, f.registry, f.sink, f.discoverySlot, logger)
	f.connection = NewConnectionService(f.fake, f.registry, f.sink, "", logger)
	f.collection = NewCollectionService(f.fake, f.sink, f.collectionSlot, logger)
	f.reader = NewReaderService(f.fake, logger)
	return f
}

func strPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

func requireCode(t *testing.T, err error, code string) *TerminalError {
	t.Helper()

	require.Error(t, err)
	var terminalErr *TerminalError
	require.ErrorAs(t, err, &terminalErr)
	require.Equal(t, code, terminalErr.Code, terminalErr.Message)
	return terminalErr
}

func simulatedReader(serial string, locationID *string) *model.Reader {
	return &model.Reader{
		SerialNumber: serial,
		DeviceType:   model.DeviceTypeStripeM2,
		LocationID:   locationID,
		Simulated:    true,
	}
}
