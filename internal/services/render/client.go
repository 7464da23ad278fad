package render

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

const defaultHTTPTimeout = 300 * time.Second

// Config captures the runtime settings for the video rendering service.
type Config struct {
	BaseURL        string
	APIKey         string
	Preset         string
	TimeoutSeconds int
}

// Job describes one rendering request: the script drives visuals, the
// optional audio track is mixed in when present.
type Job struct {
	Title    string   `json:"title"`
	Scenes   []string `json:"scenes"`
	Audio    []byte   `json:"audio,omitempty"`
	AudioExt string   `json:"audio_ext,omitempty"`
	Preset   string   `json:"preset"`
}

// Client wraps an HTTP video rendering service. Each call is a single
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

// NewClient constructs a render client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Preset:         strings.TrimSpace(cfg.Preset),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.Preset == "" {
		client.cfg.Preset = "standard"
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Render submits a job and returns the rendered video bytes.
func (c *Client) Render(ctx context.Context, job Job) ([]byte, error) {
	if len(job.Scenes) == 0 {
		return nil, services.Wrap(services.ErrValidation, "", "video render", "at least one scene required", nil)
	}
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "video render", "base url required", nil)
	}
	if job.Preset == "" {
		job.Preset = c.cfg.Preset
	}

	encoded, err := json.Marshal(job)
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "", "video render", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "", "video render", "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError("video render", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "video render", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, summarizeBody(body))
		return nil, services.Wrap(services.MarkerForHTTPStatus(resp.StatusCode), "", "video render", detail, nil)
	}
	if len(body) == 0 {
		return nil, services.Wrap(services.ErrTransient, "", "video render", "empty video payload", nil)
	}
	return body, nil
}

// HealthCheck verifies the service endpoint accepts requests.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfiguration, "", "render health", "base url required", nil)
	}
	_, err := c.Render(ctx, Job{Title: "ping", Scenes: []string{"ping"}})
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
