// internal/driver/registry.go
package driver

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"terminal-bridge/internal/config"
	"terminal-bridge/pkg/terminal"
)

// Factory creates a card reader SDK backend
type Factory func(cfg *config.TerminalConfig, logger *zap.Logger) (terminal.Terminal, error)

// Registry manages SDK backend registration and creation
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRegistry creates a new backend registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger,
	}
}

// Register registers a backend factory under name
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = factory
	r.logger.Info("Terminal driver registered", zap.String("driver", name))
}

// Create builds the backend selected by cfg.Driver
func (r *Registry) Create(cfg *config.TerminalConfig) (terminal.Terminal, error) {
	r.mu.RLock()
	factory, exists := r.factories[cfg.Driver]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no terminal driver registered as %q", cfg.Driver)
	}

	sdk, err := factory(cfg, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal driver %q: %w", cfg.Driver, err)
	}
	return sdk, nil
}

// List returns the registered driver names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSupported checks if a driver name is registered
func (r *Registry) IsSupported(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[name]
	return exists
}
