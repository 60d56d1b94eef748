// pkg/terminal/terminaltest/sink.go
package terminaltest

import (
	"sync"

	"terminal-bridge/internal/model"
	"terminal-bridge/pkg/terminal"
)

// RecordedEvent is one callback captured by RecordingSink
type RecordedEvent struct {
	Name    string
	Reader  *model.Reader
	Readers []*model.Reader
	Value   any
}

// RecordingSink captures every callback it receives, in order
type RecordingSink struct {
	mu     sync.Mutex
	events []RecordedEvent
}

var _ terminal.EventSink = (*RecordingSink)(nil)

func (s *RecordingSink) record(event RecordedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns the captured callbacks
func (s *RecordingSink) Events() []RecordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedEvent(nil), s.events...)
}

// Names returns the captured callback names in order
func (s *RecordingSink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.events))
	for _, event := range s.events {
		names = append(names, event.Name)
	}
	return names
}

// NativeLogs returns the captured diagnostic logs
func (s *RecordingSink) NativeLogs() []model.NativeLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	var logs []model.NativeLog
	for _, event := range s.events {
		if log, ok := event.Value.(model.NativeLog); ok {
			logs = append(logs, log)
		}
	}
	return logs
}

func (s *RecordingSink) OnReadersFound(readers []*model.Reader) {
	s.record(RecordedEvent{Name: model.EventReadersFound, Readers: readers})
}

func (s *RecordingSink) OnReaderEvent(reader *model.Reader, event model.ReaderEvent) {
	s.record(RecordedEvent{Name: model.EventReaderReportedEvent, Reader: reader, Value: event})
}

func (s *RecordingSink) OnReaderInput(reader *model.Reader, options model.ReaderInputOptions) {
	s.record(RecordedEvent{Name: model.EventReaderInput, Reader: reader, Value: options})
}

func (s *RecordingSink) OnDisplayMessage(reader *model.Reader, message model.ReaderDisplayMessage) {
	s.record(RecordedEvent{Name: model.EventReaderDisplayMessage, Reader: reader, Value: message})
}

func (s *RecordingSink) OnAvailableUpdate(reader *model.Reader, update model.SoftwareUpdate) {
	s.record(RecordedEvent{Name: model.EventReaderAvailableUpdate, Reader: reader, Value: update})
}

func (s *RecordingSink) OnStartInstallingUpdate(reader *model.Reader, update model.SoftwareUpdate) {
	s.record(RecordedEvent{Name: model.EventReaderStartInstallUpdate, Reader: reader, Value: update})
}

func (s *RecordingSink) OnUpdateProgress(reader *model.Reader, progress float64) {
	s.record(RecordedEvent{Name: model.EventReaderUpdateProgress, Reader: reader, Value: progress})
}

func (s *RecordingSink) OnFinishInstallingUpdate(reader *model.Reader, update *model.SoftwareUpdate, err error) {
	s.record(RecordedEvent{Name: model.EventReaderFinishInstallUpdate, Reader: reader, Value: err})
}

func (s *RecordingSink) OnUnexpectedDisconnect(reader *model.Reader) {
	s.record(RecordedEvent{Name: model.EventReaderUnexpectedDisconnect, Reader: reader})
}

func (s *RecordingSink) OnTerminalReaderEvent(event model.ReaderEvent) {
	s.record(RecordedEvent{Name: model.EventReaderReportedEvent, Value: event})
}

func (s *RecordingSink) OnNativeLog(code, message string) {
	s.record(RecordedEvent{Name: model.EventNativeLog, Value: model.NativeLog{Code: code, Message: message}})
}
