package mdns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"terminal-bridge/internal/config"
)

func TestTXTRecords(t *testing.T) {
	records := TXTRecords("1.2.0", "/ws/channel")

	assert.Contains(t, records, "version=1.2.0")
	assert.Contains(t, records, "path=/ws/channel")
	assert.Contains(t, records, "protocol=websocket")
}

func TestAdvertiser_StopWithoutStart(t *testing.T) {
	advertiser := NewAdvertiser(&config.MDNSConfig{Instance: "bridge", Service: "_terminal-bridge._tcp"}, 4242, "1.0.0", "/ws/channel", zap.NewNop())

	assert.NotPanics(t, advertiser.Stop)
}
