// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"terminal-bridge/internal/model"
)

// ErrCommandNotFound is returned when a journal entry does not exist
var ErrCommandNotFound = errors.New("command record not found")

// CommandRepository defines command journal data access operations
type CommandRepository interface {
	// CRUD operations
	Create(ctx context.Context, record *model.CommandRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error)
	Update(ctx context.Context, record *model.CommandRecord) error

	// Listing and filtering
	List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, error)

	// Cleanup
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// CommandFilter represents journal listing filters
type CommandFilter struct {
	Method *string              `json:"method,omitempty"`
	Status *model.CommandStatus `json:"status,omitempty"`
	Source *model.CommandSource `json:"source,omitempty"`
	Limit  int                  `json:"limit"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// EffectiveLimit clamps the requested limit
func (f *CommandFilter) EffectiveLimit() int {
	if f == nil || f.Limit <= 0 {
		return defaultListLimit
	}
	if f.Limit > maxListLimit {
		return maxListLimit
	}
	return f.Limit
}

func (f *CommandFilter) matches(record *model.CommandRecord) bool {
	if f == nil {
		return true
	}
	if f.Method != nil && record.Method != *f.Method {
		return false
	}
	if f.Status != nil && record.Status != *f.Status {
		return false
	}
	if f.Source != nil && record.Source != *f.Source {
		return false
	}
	return true
}
