// internal/driver/registry_init.go
package driver

import (
	"go.uber.org/zap"

	"terminal-bridge/internal/config"
	"terminal-bridge/internal/driver/simulator"
	"terminal-bridge/pkg/terminal"
)

// SimulatorDriver is the name of the built-in simulated backend
const SimulatorDriver = "simulator"

// RegisterDefaultDrivers registers all built-in SDK backends
func RegisterDefaultDrivers(registry *Registry) {
	registry.Register(SimulatorDriver, newSimulator)
}

func newSimulator(cfg *config.TerminalConfig, logger *zap.Logger) (terminal.Terminal, error) {
	return simulator.New(cfg.Simulator, logger), nil
}
