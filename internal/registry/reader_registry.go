// internal/registry/reader_registry.go
package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"terminal-bridge/internal/model"
)

// ReaderRegistry holds the most recent discovery result set
type ReaderRegistry struct {
	readers   []*model.Reader
	updatedAt time.Time
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewReaderRegistry creates an empty reader registry
func NewReaderRegistry(logger *zap.Logger) *ReaderRegistry {
	return &ReaderRegistry{
		logger: logger,
	}
}

// Replace swaps the registry contents for a new discovery batch. Batches are
// never merged.
func (r *ReaderRegistry) Replace(readers []*model.Reader) {
	snapshot := make([]*model.Reader, len(readers))
	copy(snapshot, readers)

	r.mu.Lock()
	r.readers = snapshot
	r.updatedAt = time.Now()
	r.mu.Unlock()

	r.logger.Debug("Reader registry replaced", zap.Int("readers", len(snapshot)))
}

// Find resolves a reader by serial number
func (r *ReaderRegistry) Find(serialNumber string) (*model.Reader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reader := range r.readers {
		if reader.SerialNumber == serialNumber {
			return reader, true
		}
	}
	return nil, false
}

// List returns the current discovery result set
func (r *ReaderRegistry) List() []*model.Reader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	readers := make([]*model.Reader, len(r.readers))
	copy(readers, r.readers)
	return readers
}

// Len returns the number of readers in the current result set
func (r *ReaderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.readers)
}

// UpdatedAt returns when the last batch arrived
func (r *ReaderRegistry) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}
