// internal/model/event.go
package model

import (
	"fmt"
	"strings"
)

// Outbound channel event names
const (
	EventReadersFound               = "onReadersFound"
	EventReaderReportedEvent        = "onReaderReportedEvent"
	EventReaderUnexpectedDisconnect = "onReaderUnexpectedDisconnect"
	EventReaderInput                = "onReaderInput"
	EventReaderDisplayMessage       = "onReaderDisplayMessage"
	EventNativeLog                  = "onNativeLog"
	EventReaderAvailableUpdate      = "onReaderReportedAvailableUpdate"
	EventReaderStartInstallUpdate   = "onReaderStartInstallingUpdate"
	EventReaderUpdateProgress       = "onReaderSoftwareUpdateProgress"
	EventReaderFinishInstallUpdate  = "onReaderFinishInstallingUpdate"
)

// ReaderEvent represents a physical card event reported by the reader
type ReaderEvent int

const (
	ReaderEventCardInserted ReaderEvent = iota
	ReaderEventCardRemoved
)

func (e ReaderEvent) String() string {
	switch e {
	case ReaderEventCardInserted:
		return "Card Inserted"
	case ReaderEventCardRemoved:
		return "Card Removed"
	default:
		return "Unknown"
	}
}

// ReaderInputOptions is a bitmask of the card inputs the reader accepts
type ReaderInputOptions uint

const (
	ReaderInputOptionNone   ReaderInputOptions = 0
	ReaderInputOptionSwipe  ReaderInputOptions = 1 << 0
	ReaderInputOptionInsert ReaderInputOptions = 1 << 1
	ReaderInputOptionTap    ReaderInputOptions = 1 << 2
)

func (o ReaderInputOptions) String() string {
	var parts []string
	if o&ReaderInputOptionSwipe != 0 {
		parts = append(parts, "Swipe")
	}
	if o&ReaderInputOptionInsert != 0 {
		parts = append(parts, "Insert")
	}
	if o&ReaderInputOptionTap != 0 {
		parts = append(parts, "Tap")
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, " / ")
}

// ReaderDisplayMessage is a prompt the reader asks the host to show
type ReaderDisplayMessage int

const (
	DisplayMessageRetryCard ReaderDisplayMessage = iota
	DisplayMessageInsertCard
	DisplayMessageInsertOrSwipeCard
	DisplayMessageSwipeCard
	DisplayMessageRemoveCard
	DisplayMessageMultipleContactlessCardsDetected
	DisplayMessageTryAnotherReadMethod
	DisplayMessageTryAnotherCard
	DisplayMessageCardRemovedTooEarly
)

var displayMessageText = map[ReaderDisplayMessage]string{
	DisplayMessageRetryCard:                        "Retry Card",
	DisplayMessageInsertCard:                       "Insert Card",
	DisplayMessageInsertOrSwipeCard:                "Insert Or Swipe Card",
	DisplayMessageSwipeCard:                        "Swipe Card",
	DisplayMessageRemoveCard:                       "Remove Card",
	DisplayMessageMultipleContactlessCardsDetected: "Multiple Contactless Cards Detected",
	DisplayMessageTryAnotherReadMethod:             "Try Another Read Method",
	DisplayMessageTryAnotherCard:                   "Try Another Card",
	DisplayMessageCardRemovedTooEarly:              "Card Removed Too Early",
}

func (m ReaderDisplayMessage) String() string {
	if text, ok := displayMessageText[m]; ok {
		return text
	}
	return fmt.Sprintf("Unknown(%d)", int(m))
}

// SoftwareUpdate describes a reader firmware/configuration update
type SoftwareUpdate struct {
	DeviceSoftwareVersion string `json:"deviceSoftwareVersion"`
	EstimatedUpdateTime   string `json:"estimatedUpdateTime"`
	Required              bool   `json:"required"`
}

// NativeLog is the payload of the onNativeLog diagnostic event
type NativeLog struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
