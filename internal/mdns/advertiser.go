// internal/mdns/advertiser.go
package mdns

import (
	"fmt"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"terminal-bridge/internal/config"
)

// Advertiser publishes the channel endpoint over mDNS so hosts on the local
// network can find the bridge
type Advertiser struct {
	cfg    *config.MDNSConfig
	port   int
	txt    []string
	server *zeroconf.Server
	mu     sync.Mutex
	logger *zap.Logger
}

// NewAdvertiser creates an advertiser for a bridge listening on port
func NewAdvertiser(cfg *config.MDNSConfig, port int, version, channelPath string, logger *zap.Logger) *Advertiser {
	return &Advertiser{
		cfg:    cfg,
		port:   port,
		txt:    TXTRecords(version, channelPath),
		logger: logger.With(zap.String("component", "mdns")),
	}
}

// TXTRecords builds the service info records
func TXTRecords(version, channelPath string) []string {
	return []string{
		"version=" + version,
		"protocol=websocket",
		"path=" + channelPath,
		"api=/api/v1",
	}
}

// Start registers the service. It is a no-op when already registered.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}

	domain := a.cfg.Domain
	if domain == "" {
		domain = "local."
	}
	if !strings.HasSuffix(domain, ".") {
		domain += "."
	}

	server, err := zeroconf.Register(a.cfg.Instance, a.cfg.Service, domain, a.port, a.txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.server = server

	a.logger.Info("mDNS service registered",
		zap.String("instance", a.cfg.Instance),
		zap.String("service", a.cfg.Service),
		zap.Int("port", a.port),
	)
	return nil
}

// Stop withdraws the advertisement
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.logger.Info("mDNS service stopped")
	}
}
