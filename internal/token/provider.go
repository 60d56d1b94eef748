// internal/token/provider.go
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"terminal-bridge/internal/config"
	"terminal-bridge/pkg/terminal"
)

// SimulatedToken is handed out when no token endpoint is configured
const SimulatedToken = "pst_simulated_connection_token"

const maxResponseSize = 64 << 10

// ErrEmptyToken is returned when the endpoint answers without a secret
var ErrEmptyToken = errors.New("connection token endpoint returned an empty secret")

// HTTPProvider fetches connection tokens from the merchant backend
type HTTPProvider struct {
	client *http.Client
	url    string
	secret string
	logger *zap.Logger
}

var _ terminal.ConnectionTokenProvider = (*HTTPProvider)(nil)

type tokenResponse struct {
	Secret string `json:"secret"`
}

// NewHTTPProvider creates a provider posting to cfg.URL
func NewHTTPProvider(cfg *config.TokenConfig, logger *zap.Logger) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		client: &http.Client{Timeout: timeout},
		url:    cfg.URL,
		secret: cfg.Secret,
		logger: logger.With(zap.String("component", "token-provider")),
	}
}

// FetchConnectionToken implements terminal.ConnectionTokenProvider
func (p *HTTPProvider) FetchConnectionToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.secret != "" {
		req.Header.Set("Authorization", "Bearer "+p.secret)
	}

	startTime := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("Connection token request failed", zap.Error(err))
		return "", fmt.Errorf("failed to request connection token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read connection token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("Connection token endpoint rejected request",
			zap.Int("status_code", resp.StatusCode),
		)
		return "", fmt.Errorf("connection token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode connection token response: %w", err)
	}
	if parsed.Secret == "" {
		return "", ErrEmptyToken
	}

	p.logger.Debug("Connection token fetched", zap.Duration("duration", time.Since(startTime)))
	return parsed.Secret, nil
}

// StaticProvider always returns the same token
type StaticProvider string

// FetchConnectionToken implements terminal.ConnectionTokenProvider
func (p StaticProvider) FetchConnectionToken(ctx context.Context) (string, error) {
	return string(p), nil
}

// NewProvider returns an HTTP provider when a token URL is configured and a
// static simulated token otherwise
func NewProvider(cfg *config.TokenConfig, logger *zap.Logger) terminal.ConnectionTokenProvider {
	if strings.TrimSpace(cfg.URL) == "" {
		logger.Warn("No connection token URL configured, using simulated token")
		return StaticProvider(SimulatedToken)
	}
	return NewHTTPProvider(cfg, logger)
}
