// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"terminal-bridge/internal/config"
)

// NewLogger creates the application logger. Output is stdout, stderr or a
// rotated log file.
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	writeSyncer, err := newWriteSyncer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create write syncer: %w", err)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), writeSyncer, level)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	return zapcore.NewJSONEncoder(encoderConfig)
}

func newWriteSyncer(cfg *config.LoggingConfig) (zapcore.WriteSyncer, error) {
	switch cfg.Output {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Output,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}), nil
}

// ParseLevel maps a configured level name to a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// ReaderLogger wraps zap.Logger with reader-specific fields
type ReaderLogger struct {
	*zap.Logger
	serialNumber string
}

// NewReaderLogger creates a reader-specific logger
func NewReaderLogger(baseLogger *zap.Logger, serialNumber string, deviceType int, simulated bool) *ReaderLogger {
	logger := baseLogger.With(
		zap.String("reader_serial", serialNumber),
		zap.Int("device_type", deviceType),
		zap.Bool("simulated", simulated),
		zap.String("component", "reader"),
	)

	return &ReaderLogger{
		Logger:       logger,
		serialNumber: serialNumber,
	}
}

// LogConnection logs connection events
func (rl *ReaderLogger) LogConnection(action string, success bool, err error) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.Bool("success", success),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		rl.Warn("Reader connection event", fields...)
	} else {
		rl.Info("Reader connection event", fields...)
	}
}

// OperationLogger provides structured logging for operations
type OperationLogger struct {
	logger      *zap.Logger
	operationID string
	startTime   time.Time
}

// NewOperationLogger creates an operation-specific logger
func NewOperationLogger(baseLogger *zap.Logger, operationType, operationID string) *OperationLogger {
	logger := baseLogger.With(
		zap.String("operation_type", operationType),
		zap.String("operation_id", operationID),
		zap.String("component", "operation"),
	)

	return &OperationLogger{
		logger:      logger,
		operationID: operationID,
		startTime:   time.Now(),
	}
}

// Start logs operation start
func (ol *OperationLogger) Start(fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Time("start_time", ol.startTime),
	}, fields...)

	ol.logger.Debug("Operation started", allFields...)
}

// Success logs successful operation completion
func (ol *OperationLogger) Success(fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Duration("duration", time.Since(ol.startTime)),
		zap.Bool("success", true),
	}, fields...)

	ol.logger.Info("Operation completed successfully", allFields...)
}

// Error logs operation failure. Failures are expected outcomes of reader
// commands, so they are logged at warn.
func (ol *OperationLogger) Error(err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Duration("duration", time.Since(ol.startTime)),
		zap.Bool("success", false),
		zap.Error(err),
	}, fields...)

	ol.logger.Warn("Operation failed", allFields...)
}

// Progress logs operation progress
func (ol *OperationLogger) Progress(message string, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Duration("elapsed", time.Since(ol.startTime)),
	}, fields...)

	ol.logger.Info(message, allFields...)
}

// ServiceLogger provides service-level logging functionality
type ServiceLogger struct {
	*zap.Logger
	serviceName string
}

// NewServiceLogger creates a service-specific logger
func NewServiceLogger(baseLogger *zap.Logger, serviceName string) *ServiceLogger {
	logger := baseLogger.With(
		zap.String("service", serviceName),
		zap.String("component", "service"),
	)

	return &ServiceLogger{
		Logger:      logger,
		serviceName: serviceName,
	}
}

// LogServiceStart logs service startup
func (sl *ServiceLogger) LogServiceStart(version string, config interface{}) {
	sl.Info("Service starting",
		zap.String("version", version),
		zap.Any("config", config),
	)
}

// LogServiceStop logs service shutdown
func (sl *ServiceLogger) LogServiceStop(reason string) {
	sl.Info("Service stopping",
		zap.String("reason", reason),
	)
}

// APIRequest describes one served HTTP request
type APIRequest struct {
	RequestID  string
	Method     string
	Route      string
	Path       string
	ClientIP   string
	UserAgent  string
	StatusCode int
	Duration   time.Duration
}

// LogAPIRequest logs a served HTTP request at a level matching its status
func (sl *ServiceLogger) LogAPIRequest(req APIRequest) {
	level := zapcore.DebugLevel
	switch {
	case req.StatusCode >= 500:
		level = zapcore.ErrorLevel
	case req.StatusCode >= 400:
		level = zapcore.WarnLevel
	case req.Route != "" && !strings.HasPrefix(req.Route, "/health") && req.Route != "/ready" && req.Route != "/live":
		level = zapcore.InfoLevel
	}

	if ce := sl.Check(level, "API request"); ce != nil {
		ce.Write(
			zap.String("request_id", req.RequestID),
			zap.String("method", req.Method),
			zap.String("route", req.Route),
			zap.String("path", req.Path),
			zap.String("client_ip", req.ClientIP),
			zap.String("user_agent", req.UserAgent),
			zap.Int("status_code", req.StatusCode),
			zap.Duration("duration", req.Duration),
		)
	}
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger creates an audit-specific logger
func NewAuditLogger(baseLogger *zap.Logger) *AuditLogger {
	return &AuditLogger{
		logger: baseLogger.With(zap.String("component", "audit")),
	}
}

// LogReaderConnection logs reader connect and disconnect events
func (al *AuditLogger) LogReaderConnection(serialNumber, strategy, locationID string, success bool) {
	al.logger.Info("Reader connection",
		zap.String("reader_serial", serialNumber),
		zap.String("strategy", strategy),
		zap.String("location_id", locationID),
		zap.Bool("success", success),
		zap.String("action", "connect_reader"),
	)
}

// LogPaymentTransaction logs payment transactions (audit trail, no card data)
func (al *AuditLogger) LogPaymentTransaction(serialNumber, paymentIntentID string, amount decimal.Decimal, currency, status string) {
	al.logger.Info("Payment transaction",
		zap.String("reader_serial", serialNumber),
		zap.String("payment_intent_id", paymentIntentID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("currency", currency),
		zap.String("status", status),
		zap.String("action", "payment_transaction"),
	)
}

// LogCartDisplayed logs a cart pushed to the reader screen
func (al *AuditLogger) LogCartDisplayed(serialNumber, currency string, total decimal.Decimal, lineItems int) {
	al.logger.Info("Cart displayed",
		zap.String("reader_serial", serialNumber),
		zap.String("currency", currency),
		zap.String("total", total.StringFixed(2)),
		zap.Int("line_items", lineItems),
		zap.String("action", "display_cart"),
	)
}

// SecurityLogger provides security-related logging
type SecurityLogger struct {
	logger *zap.Logger
}

// NewSecurityLogger creates a security-specific logger
func NewSecurityLogger(baseLogger *zap.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: baseLogger.With(zap.String("component", "security")),
	}
}

// LogRejectedOrigin logs a channel upgrade refused because of its origin
func (sl *SecurityLogger) LogRejectedOrigin(origin, clientIP, userAgent string) {
	sl.logger.Warn("Channel origin rejected",
		zap.String("origin", origin),
		zap.String("client_ip", clientIP),
		zap.String("user_agent", userAgent),
		zap.String("action", "origin_rejected"),
	)
}

// CloseLogger flushes buffered log entries
func CloseLogger(logger *zap.Logger) error {
	return logger.Sync()
}
