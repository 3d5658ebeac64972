package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/churnsense/pkg/logger"
	"github.com/papercomputeco/churnsense/pkg/sse"
	"github.com/papercomputeco/churnsense/pkg/utils"
)

const (
	// DefaultEndpoint is the chat endpoint served by the churnsense proxy.
	DefaultEndpoint = "http://localhost:8080/chat"

	// DefaultTimeout bounds a whole streamed reply.
	DefaultTimeout = 5 * time.Minute

	maxErrorBody = 4096
)

// ErrEmptyBody is returned when a successful chat response carries no body.
var ErrEmptyBody = errors.New("chat response has no body")

// Config holds configuration for the chat client.
type Config struct {
	// Endpoint is the chat URL. Defaults to DefaultEndpoint.
	Endpoint string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds each streamed reply. Defaults to DefaultTimeout.
	Timeout time.Duration

	Logger *slog.Logger
}

// Client streams ChurnBot replies.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a chat client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// Endpoint returns the chat URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Stream posts msgs and assembles the streamed reply, calling onUpdate with
// the full message after every fragment. It returns the assembled message,
// which may be partial when err is non-nil.
func (c *Client) Stream(ctx context.Context, msgs []Message, onUpdate sse.UpdateFunc) (string, error) {
	body, err := json.Marshal(Request{Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", utils.UserAgent())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeGatewayError(resp.StatusCode, resp.Body)
	}
	if resp.StatusCode == http.StatusNoContent || resp.ContentLength == 0 {
		return "", ErrEmptyBody
	}

	r, err := sse.NewDecoder(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}

	a := sse.NewAssembler(onUpdate)
	err = sse.Tee(ctx, r, nil, a)

	if n := a.Dropped(); n > 0 {
		c.logger.Warn("dropped unterminated stream bytes", "bytes", n)
	}
	c.logger.Debug("chat stream finished",
		"state", a.State().String(),
		"fragments", a.Fragments(),
	)

	return a.Message(), err
}
