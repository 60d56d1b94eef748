// internal/model/command.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// CommandStatus represents the outcome of a dispatched command
type CommandStatus string

const (
	CommandStatusPending   CommandStatus = "PENDING"
	CommandStatusSucceeded CommandStatus = "SUCCEEDED"
	CommandStatusFailed    CommandStatus = "FAILED"
)

// CommandSource identifies which transport a command arrived on
type CommandSource string

const (
	CommandSourceChannel CommandSource = "CHANNEL"
	CommandSourceHTTP    CommandSource = "HTTP"
)

// CommandRecord is a journal entry for one dispatched command
type CommandRecord struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	Method       string        `json:"method" db:"method"`
	Source       CommandSource `json:"source" db:"source"`
	Status       CommandStatus `json:"status" db:"status"`
	ErrorCode    *string       `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage *string       `json:"error_message,omitempty" db:"error_message"`
	StartedAt    time.Time     `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	DurationMs   *int          `json:"duration_ms,omitempty" db:"duration_ms"`
}

// Complete marks the record finished with the given outcome
func (r *CommandRecord) Complete(status CommandStatus, errorCode, errorMessage string) {
	now := time.Now()
	duration := int(now.Sub(r.StartedAt).Milliseconds())

	r.Status = status
	r.CompletedAt = &now
	r.DurationMs = &duration
	if errorCode != "" {
		r.ErrorCode = &errorCode
	}
	if errorMessage != "" {
		r.ErrorMessage = &errorMessage
	}
}
