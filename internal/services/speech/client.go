package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vividly/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings for the text-to-speech service.
type Config struct {
	BaseURL        string
	APIKey         string
	Voice          string
	Format         string
	TimeoutSeconds int
}

// Client wraps an HTTP text-to-speech service. Each call is a single
// request; the pipeline owns the retry policy.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a speech client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Voice:          strings.TrimSpace(cfg.Voice),
			Format:         strings.TrimSpace(cfg.Format),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.Format == "" {
		client.cfg.Format = "mp3"
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Format returns the audio container format the client requests.
func (c *Client) Format() string {
	return c.cfg.Format
}

type synthesisRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format"`
}

// Synthesize converts narration text to audio and returns the raw bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "", "speech synthesize", "text required", nil)
	}
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "speech synthesize", "base url required", nil)
	}

	encoded, err := json.Marshal(synthesisRequest{
		Text:   text,
		Voice:  c.cfg.Voice,
		Format: c.cfg.Format,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "", "speech synthesize", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "", "speech synthesize", "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError("speech synthesize", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "speech synthesize", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, summarizeBody(body))
		return nil, services.Wrap(services.MarkerForHTTPStatus(resp.StatusCode), "", "speech synthesize", detail, nil)
	}
	if len(body) == 0 {
		return nil, services.Wrap(services.ErrTransient, "", "speech synthesize", "empty audio payload", nil)
	}
	return body, nil
}

// HealthCheck verifies the service endpoint accepts requests.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfiguration, "", "speech health", "base url required", nil)
	}
	_, err := c.Synthesize(ctx, "ping")
	return err
}

func classifyTransportError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTransient, "", op, "timeout", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return services.Wrap(services.ErrUnavailable, "", op, "connection failed", err)
	}
	return services.Wrap(services.ErrTransient, "", op, "request failed", err)
}

func summarizeBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(strings.Join(strings.Fields(trimmed), " "))
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return string(runes)
}
