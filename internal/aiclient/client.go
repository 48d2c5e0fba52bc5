// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/gazette-assist/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type, so errors carrying a cause or a more
// specific message still satisfy errors.Is(err, ErrTimeout).
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnavailable
	ErrTypeTimeout
	ErrTypeUnauthorized
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// String returns the error type name.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeUnavailable:
		return "unavailable"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeUnauthorized:
		return "unauthorized"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrUnavailable     = &ClientError{Type: ErrTypeUnavailable, Message: "chat endpoint unavailable"}
	ErrTimeout         = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrUnauthorized    = &ClientError{Type: ErrTypeUnauthorized, Message: "not authorized"}
	ErrInvalidResponse = &ClientError{Type: ErrTypeInvalidResponse, Message: "invalid response"}
)

// IsTimeout reports whether err is a client timeout.
func IsTimeout(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeTimeout
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeUnauthorized
}

// IsUnavailable reports whether err means the endpoint could not be reached.
func IsUnavailable(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeUnavailable
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultEndpoint is the chat endpoint of a local development server.
const DefaultEndpoint = "http://127.0.0.1:8484/api/v1/ai/chat"

// ClientConfig holds configuration options for the chat client.
type ClientConfig struct {
	// Endpoint is the full chat URL (default: DefaultEndpoint)
	Endpoint string

	// Token is the bearer token sent with every request. Empty sends none.
	Token string

	// Timeout bounds a single HTTP attempt (default: 30s)
	Timeout time.Duration

	// MaxRetries for unreachable endpoints and 5xx responses (default: 2).
	// Negative disables retries.
	MaxRetries int

	// RetryDelay between retries (default: 500ms)
	RetryDelay time.Duration

	// RequestsPerSecond caps outgoing requests (default: 2)
	RequestsPerSecond float64

	// Burst is the limiter burst size (default: 4)
	Burst int

	// MaxHistory is how many of the most recent prior messages are sent
	// with a turn (default: DefaultMaxHistory, at most MaxHistory)
	MaxHistory int

	// Logger receives request diagnostics (default: no-op)
	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Endpoint:          DefaultEndpoint,
		Timeout:           30 * time.Second,
		MaxRetries:        2,
		RetryDelay:        500 * time.Millisecond,
		RequestsPerSecond: 2,
		Burst:             4,
		MaxHistory:        DefaultMaxHistory,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client issues chat turns against the AI endpoint.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	client := aiclient.NewClientWithConfig(&aiclient.ClientConfig{
//	    Endpoint: "https://admin.example.org/api/v1/ai/chat",
//	    Token:    token,
//	})
//	resp, err := client.SendChatTurn(ctx, "Show me all change of name entries", nil)
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	// Fill in defaults for any zero values
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst == 0 {
		cfg.Burst = 4
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.MaxHistory > MaxHistory {
		cfg.MaxHistory = MaxHistory
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		config: &cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger.Named("aiclient"),
	}
}

// Endpoint returns the configured chat URL.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// SendChatTurn sends text with the prior conversation and returns the
// endpoint's answer. A response with Success false is returned without error.
func (c *Client) SendChatTurn(ctx context.Context, text string, prior []model.ChatMessage) (*TurnResponse, error) {
	body, err := json.Marshal(ChatRequest{
		Message: text,
		History: historyFrom(prior, c.config.MaxHistory),
	})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying chat turn",
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, contextError(ctx.Err())
			case <-time.After(c.config.RetryDelay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, contextError(err)
		}

		resp, err := c.do(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}

	c.logger.Warn("chat turn failed", zap.String("endpoint", c.config.Endpoint), zap.Error(lastErr))
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, body []byte) (*TurnResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx.Err())
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrTimeout
		}
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: ErrUnavailable.Message, Cause: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("chat turn response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 500:
		return nil, &ClientError{
			Type:    ErrTypeUnavailable,
			Message: "chat request failed: " + resp.Status,
		}
	}

	var result ChatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "chat request failed: " + resp.Status}
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	// A 4xx with a JSON body is a refused turn, not a transport failure.
	if resp.StatusCode != http.StatusOK {
		result.Success = false
		if result.Error == "" {
			result.Error = resp.Status
		}
	}

	return &TurnResponse{
		Success:      result.Success,
		ReplyText:    strings.TrimSpace(result.Reply),
		Results:      result.Results,
		ErrorMessage: result.Error,
	}, nil
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return &ClientError{Type: ErrTypeConnection, Message: "request cancelled", Cause: err}
}

func retryable(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Type == ErrTypeUnavailable
}
