// internal/model/channel.go
package model

import (
	"encoding/json"
	"time"
)

// Channel message types
const (
	MessageTypeCall   = "call"
	MessageTypeResult = "result"
	MessageTypeError  = "error"
	MessageTypeEvent  = "event"
)

// ChannelError is the structured error triple returned to the host
type ChannelError struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details"`
}

// ChannelMessage is the envelope carried over the method channel
type ChannelMessage struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    any             `json:"result,omitempty"`
	Error     *ChannelError   `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ChannelEvent is an outbound named event produced by the event relay
type ChannelEvent struct {
	Method    string
	Arguments any
}
