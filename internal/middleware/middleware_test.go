package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"terminal-bridge/internal/config"
	"terminal-bridge/internal/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newEngine(logger *zap.Logger, security *config.SecurityConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(RecoveryMiddleware(logger))
	engine.Use(RequestIDMiddleware())
	engine.Use(LoggingMiddleware(utils.NewServiceLogger(logger, "test")))
	engine.Use(CORSMiddleware(security))

	engine.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, utils.GetRequestID(c))
	})
	engine.GET("/panic", func(c *gin.Context) {
		panic("reader exploded")
	})
	return engine
}

func TestRequestIDMiddleware(t *testing.T) {
	engine := newEngine(zap.NewNop(), &config.SecurityConfig{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", w.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	engine := newEngine(zap.New(core), &config.SecurityConfig{})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(RequestIDHeader, "req-panic")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, PanicErrorCode, body.Error.Code)
	assert.Equal(t, "req-panic", body.RequestID)

	panics := logs.FilterMessage("Panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "req-panic", panics[0].ContextMap()["request_id"])
}

func TestLoggingMiddleware_Levels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	engine := newEngine(zap.New(core), &config.SecurityConfig{})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	requests := logs.FilterMessage("API request").All()
	require.Len(t, requests, 2)
	assert.Equal(t, zap.InfoLevel, requests[0].Level)
	assert.Equal(t, "/ok", requests[0].ContextMap()["route"])
	assert.Equal(t, zap.WarnLevel, requests[1].Level)
}

func TestCORSMiddleware(t *testing.T) {
	restricted := newEngine(zap.NewNop(), &config.SecurityConfig{AllowedOrigins: []string{"http://pos.local"}})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Origin", "http://pos.local")
	w := httptest.NewRecorder()
	restricted.ServeHTTP(w, req)
	assert.Equal(t, "http://pos.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	restricted.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	open := newEngine(zap.NewNop(), &config.SecurityConfig{AllowedOrigins: []string{"*"}})
	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Origin", "http://anything.example")
	w = httptest.NewRecorder()
	open.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
