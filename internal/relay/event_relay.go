// internal/relay/event_relay.go
package relay

import (
	"go.uber.org/zap"

	"terminal-bridge/internal/model"
	"terminal-bridge/pkg/terminal"
)

// Publisher delivers outbound events to the host
type Publisher interface {
	Publish(event model.ChannelEvent)
}

// UpdateEvent is the payload of the reader software update events
type UpdateEvent struct {
	SerialNumber string                `json:"serialNumber"`
	Update       *model.SoftwareUpdate `json:"update,omitempty"`
	Progress     *float64              `json:"progress,omitempty"`
	Error        *string               `json:"error,omitempty"`
}

// EventRelay turns SDK callbacks into named channel events. It keeps no state
// and never buffers; every callback is published before it returns.
type EventRelay struct {
	publisher Publisher
	logger    *zap.Logger
}

var _ terminal.EventSink = (*EventRelay)(nil)

// NewEventRelay creates a relay publishing to publisher
func NewEventRelay(publisher Publisher, logger *zap.Logger) *EventRelay {
	return &EventRelay{
		publisher: publisher,
		logger:    logger.With(zap.String("component", "event-relay")),
	}
}

func (r *EventRelay) publish(method string, arguments any) {
	r.logger.Debug("Relaying event", zap.String("method", method))
	r.publisher.Publish(model.ChannelEvent{Method: method, Arguments: arguments})
}

// OnReadersFound relays a discovery batch
func (r *EventRelay) OnReadersFound(readers []*model.Reader) {
	if readers == nil {
		readers = []*model.Reader{}
	}
	r.publish(model.EventReadersFound, readers)
}

func (r *EventRelay) OnReaderEvent(reader *model.Reader, event model.ReaderEvent) {
	r.publish(model.EventReaderReportedEvent, event.String())
}

func (r *EventRelay) OnTerminalReaderEvent(event model.ReaderEvent) {
	r.publish(model.EventReaderReportedEvent, event.String())
}

func (r *EventRelay) OnUnexpectedDisconnect(reader *model.Reader) {
	r.publish(model.EventReaderUnexpectedDisconnect, reader)
}

func (r *EventRelay) OnReaderInput(reader *model.Reader, options model.ReaderInputOptions) {
	r.publish(model.EventReaderInput, options.String())
}

func (r *EventRelay) OnDisplayMessage(reader *model.Reader, message model.ReaderDisplayMessage) {
	r.publish(model.EventReaderDisplayMessage, message.String())
}

// OnNativeLog relays a diagnostic log line
func (r *EventRelay) OnNativeLog(code, message string) {
	r.publish(model.EventNativeLog, model.NativeLog{Code: code, Message: message})
}

func (r *EventRelay) OnAvailableUpdate(reader *model.Reader, update model.SoftwareUpdate) {
	r.publish(model.EventReaderAvailableUpdate, UpdateEvent{
		SerialNumber: serialOf(reader),
		Update:       &update,
	})
}

func (r *EventRelay) OnStartInstallingUpdate(reader *model.Reader, update model.SoftwareUpdate) {
	r.publish(model.EventReaderStartInstallUpdate, UpdateEvent{
		SerialNumber: serialOf(reader),
		Update:       &update,
	})
}

func (r *EventRelay) OnUpdateProgress(reader *model.Reader, progress float64) {
	r.publish(model.EventReaderUpdateProgress, UpdateEvent{
		SerialNumber: serialOf(reader),
		Progress:     &progress,
	})
}

func (r *EventRelay) OnFinishInstallingUpdate(reader *model.Reader, update *model.SoftwareUpdate, err error) {
	event := UpdateEvent{
		SerialNumber: serialOf(reader),
		Update:       update,
	}
	if err != nil {
		msg := err.Error()
		event.Error = &msg
	}
	r.publish(model.EventReaderFinishInstallUpdate, event)
}

func serialOf(reader *model.Reader) string {
	if reader == nil {
		return ""
	}
	return reader.SerialNumber
}
