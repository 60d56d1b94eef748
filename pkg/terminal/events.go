// pkg/terminal/events.go
package terminal

import "terminal-bridge/internal/model"

// DiscoverySink receives discovery batches. Every batch is the full current
// result set and supersedes the previous one.
type DiscoverySink interface {
	OnReadersFound(readers []*model.Reader)
}

// ReaderEventSink receives callbacks from a connected reader
type ReaderEventSink interface {
	OnReaderEvent(reader *model.Reader, event model.ReaderEvent)
	OnReaderInput(reader *model.Reader, options model.ReaderInputOptions)
	OnDisplayMessage(reader *model.Reader, message model.ReaderDisplayMessage)
	OnAvailableUpdate(reader *model.Reader, update model.SoftwareUpdate)
	OnStartInstallingUpdate(reader *model.Reader, update model.SoftwareUpdate)
	OnUpdateProgress(reader *model.Reader, progress float64)
	OnFinishInstallingUpdate(reader *model.Reader, update *model.SoftwareUpdate, err error)
}

// TerminalEventSink receives terminal-wide callbacks
type TerminalEventSink interface {
	OnUnexpectedDisconnect(reader *model.Reader)
	OnTerminalReaderEvent(event model.ReaderEvent)
}

// LogSink receives diagnostic log events emitted by the bridge itself
type LogSink interface {
	OnNativeLog(code, message string)
}

// EventSink is the full set of callbacks the bridge relays to the host
type EventSink interface {
	DiscoverySink
	ReaderEventSink
	TerminalEventSink
	LogSink
}
