// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"terminal-bridge/internal/config"
	"terminal-bridge/internal/database"
	"terminal-bridge/internal/dispatcher"
	"terminal-bridge/internal/utils"
)

// StatusProvider reports the bridge state
type StatusProvider interface {
	Status() dispatcher.Status
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db          *database.DB
	bridge      StatusProvider
	connections *ConnectionManager
	config      *config.Config
	startedAt   time.Time
	logger      *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler. db is nil when the journal
// is kept in memory.
func NewHealthHandler(
	db *database.DB,
	bridge StatusProvider,
	connections *ConnectionManager,
	config *config.Config,
	logger *zap.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:          db,
		bridge:      bridge,
		connections: connections,
		config:      config,
		startedAt:   time.Now(),
		logger:      utils.NewServiceLogger(logger, "health-handler"),
	}
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Get overall service health including the bridge state and journal store
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Service is unhealthy"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    statusHealthy,
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Checks: map[string]CheckResult{
			"bridge":  h.bridgeCheck(),
			"channel": h.channelCheck(),
			"journal": h.journalCheck(),
		},
	}

	for _, check := range health.Checks {
		if check.Status != statusHealthy {
			health.Status = statusUnhealthy
		}
	}

	statusCode := http.StatusOK
	if health.Status != statusHealthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, health)
}

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

func (h *HealthHandler) bridgeCheck() CheckResult {
	status := h.bridge.Status()
	return CheckResult{
		Status: statusHealthy,
		Data: map[string]interface{}{
			"connection_status":  status.ConnectionStatus,
			"connected_serial":   status.ConnectedSerial,
			"discovery_running":  status.DiscoveryRunning,
			"collection_running": status.CollectionRunning,
			"reader_count":       status.ReaderCount,
			"initialized":        status.TokenProvider,
		},
	}
}

func (h *HealthHandler) channelCheck() CheckResult {
	stats := h.connections.GetStats()
	return CheckResult{
		Status: statusHealthy,
		Data: map[string]interface{}{
			"clients":     stats.TotalConnections,
			"connections": stats.Clients,
		},
	}
}

// journalCheck reports the command journal store. The in-memory journal is
// always healthy.
func (h *HealthHandler) journalCheck() CheckResult {
	if h.db == nil {
		return CheckResult{Status: statusHealthy, Message: "In-memory journal"}
	}

	if err := h.db.HealthCheck(); err != nil {
		h.logger.Warn("Journal database unreachable", zap.Error(err))
		return CheckResult{Status: statusUnhealthy, Message: err.Error()}
	}

	stats := h.db.GetStats()
	return CheckResult{
		Status:  statusHealthy,
		Message: "Database connection OK",
		Data: map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		},
	}
}

// DatabaseHealthCheck checks database connectivity
// @Summary Database health check
// @Description Check journal database connectivity and pool statistics
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Database is healthy"
// @Failure 404 {object} utils.APIResponse "No database configured"
// @Failure 503 {object} utils.APIResponse "Database is unhealthy"
// @Router /health/db [get]
func (h *HealthHandler) DatabaseHealthCheck(c *gin.Context) {
	if h.db == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "No database configured", nil)
		return
	}

	started := time.Now()
	if err := h.db.HealthCheck(); err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Database unhealthy", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Database is healthy", gin.H{
		"status":           statusHealthy,
		"response_time_ms": time.Since(started).Milliseconds(),
		"migrations_table": database.MigrationsTable,
		"stats":            h.db.GetStats(),
	})
}

// ReadinessCheck reports whether the service can accept commands
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is ready"
// @Failure 503 {object} object{status=string,reason=string} "Service is not ready"
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if journal := h.journalCheck(); journal.Status != statusHealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "journal database not available",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck reports that the process is serving
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is alive"
// @Router /live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
