// internal/repository/memory_command_repository.go
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"terminal-bridge/internal/model"
)

// memoryCommandRepository keeps the most recent journal entries in memory.
// It is used when no database is configured.
type memoryCommandRepository struct {
	mu      sync.RWMutex
	records []*model.CommandRecord
	index   map[uuid.UUID]*model.CommandRecord
	limit   int
	logger  *zap.Logger
}

// NewMemoryCommandRepository creates an in-memory journal holding at most limit entries
func NewMemoryCommandRepository(limit int, logger *zap.Logger) CommandRepository {
	if limit <= 0 {
		limit = maxListLimit
	}
	return &memoryCommandRepository{
		index:  make(map[uuid.UUID]*model.CommandRecord),
		limit:  limit,
		logger: logger,
	}
}

func (r *memoryCommandRepository) Create(ctx context.Context, record *model.CommandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[record.ID]; exists {
		return fmt.Errorf("command record already exists: %s", record.ID)
	}

	stored := *record
	r.records = append(r.records, &stored)
	r.index[stored.ID] = &stored

	// evict oldest
	for len(r.records) > r.limit {
		delete(r.index, r.records[0].ID)
		r.records = r.records[1:]
	}

	return nil
}

func (r *memoryCommandRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, id)
	}
	clone := *record
	return &clone, nil
}

func (r *memoryCommandRepository) Update(ctx context.Context, record *model.CommandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.index[record.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, record.ID)
	}
	*stored = *record
	return nil
}

// List returns matching entries, newest first
func (r *memoryCommandRepository) List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.EffectiveLimit()
	result := []*model.CommandRecord{}
	for i := len(r.records) - 1; i >= 0 && len(result) < limit; i-- {
		if filter.matches(r.records[i]) {
			clone := *r.records[i]
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *memoryCommandRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var deleted int64
	for _, record := range r.records {
		if record.StartedAt.Before(olderThan) {
			delete(r.index, record.ID)
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	r.records = kept

	if deleted > 0 {
		r.logger.Debug("Expired command records removed", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
