package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"terminal-bridge/internal/model"
)

func TestConnectionService_GuardOrdering(t *testing.T) {
	tests := []struct {
		name     string
		status   model.ConnectionStatus
		serial   string
		wantCode string
	}{
		{"connecting wins over unknown reader", model.ConnectionStatusConnecting, "missing", CodeDeviceConnecting},
		{"connecting wins over known reader", model.ConnectionStatusConnecting, "A", CodeDeviceConnecting},
		{"connected wins over unknown reader", model.ConnectionStatusConnected, "missing", CodeDeviceAlreadyConnected},
		{"reader lookup before location", model.ConnectionStatusNotConnected, "missing", CodeReaderNotFound},
		{"location checked last", model.ConnectionStatusNotConnected, "A", CodeLocationNotProvided},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, SlotPolicyReplace)
			f.registry.Replace([]*model.Reader{simulatedReader("A", nil)})
			f.fake.Status = tt.status
			if tt.status == model.ConnectionStatusConnected {
				f.fake.Connected = simulatedReader("CONNECTED-1", nil)
			}

			_, err := f.connection.Connect(context.Background(), model.ConnectionKindBluetooth, &ConnectRequest{
				ReaderSerialNumber: strPtr(tt.serial),
			})

			requireCode(t, err, tt.wantCode)
			assert.Empty(t, f.fake.ConnectCalls())
		})
	}
}

func TestConnectionService_AlreadyConnectedMessageCarriesSerial(t *testing.T) {
	f := newFixture(t, SlotPolicyReplace)
	f.fake.SetConnected(simulatedReader("SN-42", nil))

	err := f.connection.Guard()

	terminalErr := requireCode(t, err, CodeDeviceAlreadyConnected)
	assert.Equal(t, "A device with serial number SN-42 is already connected", terminalErr.Message)
}

func TestConnectionService_UnknownSerialMakesNoAttempt(t *testing.T) {
	f := newFixture(t, SlotPolicyReplace)
	f.registry.Replace([]*model.Reader{simulatedReader("A", strPtr("tml_1"))})

	_, err := f.connection.Connect(context.Background(), model.ConnectionKindBluetooth, &ConnectRequest{
		ReaderSerialNumber: strPtr("B"),
		LocationID:         strPtr("tml_2"),
	})

	requireCode(t, err, CodeReaderNotFound)
	assert.Empty(t, f.fake.ConnectCalls())
}

func TestConnectionService_LocationResolution(t *testing.T) {
	tests := []struct {
		name       string
		explicit   *string
		readerLoc  *string
		defaultLoc string
		want       string
	}{
		{"explicit argument", strPtr("tml_arg"), strPtr("tml_reader"), "tml_default", "tml_arg"},
		{"reader location", nil, strPtr("tml_reader"), "tml_default", "tml_reader"},
		{"blank argument falls back", strPtr("  "), strPtr("tml_reader"), "", "tml_reader"},
		{"configured default", nil, nil, "tml_default", "tml_default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, SlotPolicyReplace)
			f.connection = NewConnectionService(f.fake, f.registry, f.sink, tt.defaultLoc, zap.NewNop())
			f.registry.Replace([]*model.Reader{simulatedReader("A", tt.readerLoc)})

			reader, err := f.connection.Connect(context.Background(), model.ConnectionKindBluetooth, &ConnectRequest{
				ReaderSerialNumber: strPtr("A"),
				LocationID:         tt.explicit,
			})
			require.NoError(t, err)
			assert.Equal(t, "A", reader.SerialNumber)

			calls := f.fake.ConnectCalls()
			require.Len(t, calls, 1)
			require.NotNil(t, calls[0].Bluetooth)
			assert.Equal(t, tt.want, calls[0].Bluetooth.LocationID)
			assert.Equal(t, model.ConnectionStatusConnected, f.connection.Status())
		})
	}
}

func TestConnectionService_LocalMobileDefaults(t *testing.T) {
	f := newFixture(t, SlotPolicyReplace)
	f.registry.Replace([]*model.Reader{simulatedReader("PHONE", strPtr("tml_1"))})

	_, err := f.connection.Connect(context.Background(), model.ConnectionKindLocalMobile, &ConnectRequest{
		ReaderSerialNumber: strPtr("PHONE"),
		OnBehalfOf:         strPtr("acct_9"),
	})
	require.NoError(t, err)

	calls := f.fake.ConnectCalls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].LocalMobile)
	assert.Equal(t, "", calls[0].LocalMobile.MerchantDisplayName)
	assert.Equal(t, "tml_1", calls[0].LocalMobile.LocationID)
	assert.Equal(t, "acct_9", *calls[0].LocalMobile.OnBehalfOf)
	assert.Same(t, f.sink, f.fake.ReaderSink())
}

func TestConnectionService_InternetNeedsNoLocation(t *testing.T) {
	f := newFixture(t, SlotPolicyReplace)
	f.registry.Replace([]*model.Reader{simulatedReader("WPE", nil)})

	_, err := f.connection.Connect(context.Background(), model.ConnectionKindInternet, &ConnectRequest{
		ReaderSerialNumber: strPtr("WPE"),
	})
	require.NoError(t, err)

	calls := f.fake.ConnectCalls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Internet)
	assert.False(t, calls[0].Internet.FailIfInUse)

	require.NoError(t, f.connection.Disconnect(context.Background()))
	_, err = f.connection.Connect(context.Background(), model.ConnectionKindInternet, &ConnectRequest{
		ReaderSerialNumber: strPtr("WPE"),
		FailIfInUse:        boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, f.fake.ConnectCalls()[1].Internet.FailIfInUse)
}

func TestConnectionService_ConnectFailure(t *testing.T) {
	f := newFixture(t, SlotPolicyReplace)
	f.registry.Replace([]*model.Reader{simulatedReader("A", strPtr("tml_1"))})
	f.fake.ConnectErr = errors.New("reader is busy")

	reader, err := f.connection.Connect(context.Background(), model.ConnectionKindBluetooth, &ConnectRequest{
		ReaderSerialNumber: strPtr("A"),
	})

	assert.Nil(t, reader)
	terminalErr := requireCode(t, err, CodeUnableToConnect)
	assert.Equal(t, "reader is busy", terminalErr.Message)
	assert.Equal(t, model.ConnectionStatusNotConnected, f.connection.Status())
}

func TestConnectionService_DisconnectTwice(t *testing.T) {
	f := newFixture(t, SlotPolicyReplace)
	f.fake.SetConnected(simulatedReader("A", nil))

	require.NoError(t, f.connection.Disconnect(context.Background()))
	require.NoError(t, f.connection.Disconnect(context.Background()))

	assert.Equal(t, 2, f.fake.DisconnectCalls())
	assert.Nil(t, f.connection.ConnectedReader())
}

func TestConnectionService_DisconnectFailure(t *testing.T) {
	f := newFixture(t, SlotPolicyReplace)
	f.fake.DisconnectErr = errors.New("no reader")

	err := f.connection.Disconnect(context.Background())

	terminalErr := requireCode(t, err, CodeUnableToDisconnect)
	assert.Contains(t, terminalErr.Message, "no reader")
}
