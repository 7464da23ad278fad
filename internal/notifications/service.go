package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vividly/internal/config"
)

const userAgent = "Vividly-Go/0.1.0"

// Event identifies a pipeline milestone worth announcing.
type Event string

const (
	// EventRequestCompleted fires when a request reaches completed.
	EventRequestCompleted Event = "request_completed"
	// EventRequestFailed fires when a request exhausts its retry budget or
	// hits a permanent error.
	EventRequestFailed Event = "request_failed"
	// EventRequestBlocked fires on a terminal guardrail ruling.
	EventRequestBlocked Event = "request_blocked"
	// EventClarificationNeeded fires when a request parks for user input.
	EventClarificationNeeded Event = "clarification_needed"
	// EventTest verifies the notification transport.
	EventTest Event = "test"
)

// Payload carries event-specific fields used to render the message.
type Payload map[string]string

// Service is the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	rendered, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, rendered)
}

func render(event Event, payload Payload) (message, bool) {
	title := strings.TrimSpace(payload["title"])
	if title == "" {
		title = strings.TrimSpace(payload["topic"])
	}

	switch event {
	case EventRequestCompleted:
		body := fmt.Sprintf("Content ready: %s", title)
		if payload["degraded"] == "true" {
			body += " (degraded fallback content)"
		}
		return message{
			title:    "Vividly - Request Complete",
			body:     body,
			tags:     []string{"vividly", "request", "completed"},
			priority: "high",
		}, true
	case EventRequestFailed:
		body := fmt.Sprintf("Generation failed: %s", title)
		if stage := strings.TrimSpace(payload["stage"]); stage != "" {
			body = fmt.Sprintf("%s (stage %s)", body, stage)
		}
		if code := strings.TrimSpace(payload["code"]); code != "" {
			body = fmt.Sprintf("%s: %s", body, code)
		}
		return message{
			title:    "Vividly - Request Failed",
			body:     body,
			tags:     []string{"vividly", "error", "alert"},
			priority: "high",
		}, true
	case EventRequestBlocked:
		return message{
			title: "Vividly - Request Blocked",
			body:  fmt.Sprintf("Blocked by content guardrails: %s", title),
			tags:  []string{"vividly", "guardrail", "blocked"},
		}, true
	case EventClarificationNeeded:
		return message{
			title: "Vividly - Clarification Needed",
			body:  fmt.Sprintf("Waiting for input: %s\nResubmit with an answer to continue", title),
			tags:  []string{"vividly", "clarification", "waiting"},
		}, true
	case EventTest:
		return message{
			title:    "Vividly - Test",
			body:     "Notification system test",
			tags:     []string{"vividly", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
