// internal/dispatcher/commands.go
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"terminal-bridge/internal/model"
	"terminal-bridge/internal/service"
)

var errNoArguments = errors.New("no arguments provided")

// decodeArgs decodes a JSON object payload into v
func decodeArgs(args json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errNoArguments
	}
	return json.Unmarshal(trimmed, v)
}

type discoverArgs struct {
	Config *service.DiscoverRequest `json:"config"`
}

type displayArgs struct {
	ReaderDisplay *model.ReaderDisplay `json:"readerDisplay"`
}

// handleInit installs the token provider and event sink once per process
func (d *Dispatcher) handleInit(ctx context.Context, args json.RawMessage) (any, error) {
	if !d.terminal.HasTokenProvider() {
		d.terminal.SetTokenProvider(d.tokenProvider)
		d.terminal.SetEventSink(d.sink)
		d.logger.Info("Token provider and event sink installed")
	}
	return nil, nil
}

func (d *Dispatcher) handleDiscoverStart(ctx context.Context, args json.RawMessage) (any, error) {
	var payload discoverArgs
	if err := decodeArgs(args, &payload); err != nil || payload.Config == nil {
		return nil, service.NewInvalidRequestError("`discoveryMethod` is not provided on discoverReaders function")
	}

	if err := d.discovery.Start(ctx, payload.Config); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) handleDiscoverStop(ctx context.Context, args json.RawMessage) (any, error) {
	if err := d.discovery.Stop(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) handleFetchConnectedReader(ctx context.Context, args json.RawMessage) (any, error) {
	if reader := d.connection.ConnectedReader(); reader != nil {
		return reader, nil
	}
	return nil, nil
}

func (d *Dispatcher) handleConnectionStatus(ctx context.Context, args json.RawMessage) (any, error) {
	return int(d.connection.Status()), nil
}

func (d *Dispatcher) handleDisconnect(ctx context.Context, args json.RawMessage) (any, error) {
	if err := d.connection.Disconnect(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

// connectHandler builds the command for one connection kind. State guards run
// before the payload is decoded.
func (d *Dispatcher) connectHandler(kind model.ConnectionKind) CommandFunc {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		if err := d.connection.Guard(); err != nil {
			return nil, err
		}

		var req service.ConnectRequest
		if err := decodeArgs(args, &req); err != nil {
			d.logger.Debug("Invalid connection arguments", zap.String("kind", string(kind)), zap.Error(err))
			return nil, &service.TerminalError{
				Code:    service.CodeInvalidConnectionArguments,
				Message: "The connection arguments could not be read.",
				Kind:    service.KindValidation,
				Err:     err,
			}
		}

		reader, err := d.connection.Connect(ctx, kind, &req)
		if err != nil {
			return nil, err
		}
		return reader, nil
	}
}

func (d *Dispatcher) handleReadReusableCard(ctx context.Context, args json.RawMessage) (any, error) {
	payload, err := d.reader.ReadReusableCard(ctx)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (d *Dispatcher) handleCollect(ctx context.Context, args json.RawMessage) (any, error) {
	// an unreadable payload is reported as a missing client secret, after the
	// connection guard
	var req *service.CollectRequest
	var decoded service.CollectRequest
	if err := decodeArgs(args, &decoded); err == nil {
		req = &decoded
	}

	payload, err := d.collection.Collect(ctx, req)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (d *Dispatcher) handleCollectStop(ctx context.Context, args json.RawMessage) (any, error) {
	if err := d.collection.Stop(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) handleSetReaderDisplay(ctx context.Context, args json.RawMessage) (any, error) {
	var payload displayArgs
	if err := decodeArgs(args, &payload); err != nil {
		payload.ReaderDisplay = nil
	}

	if err := d.reader.SetDisplay(ctx, payload.ReaderDisplay); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) handleClearReaderDisplay(ctx context.Context, args json.RawMessage) (any, error) {
	if err := d.reader.ClearDisplay(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) handleTapToPaySupported(ctx context.Context, args json.RawMessage) (any, error) {
	supported, err := d.reader.TapToPaySupported(ctx)
	if err != nil {
		return nil, err
	}
	return supported, nil
}
