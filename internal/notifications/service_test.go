package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"vividly/internal/config"
	"vividly/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventRequestCompleted, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "request completed",
			event: notifications.EventRequestCompleted,
			payload: notifications.Payload{
				"title": "Photosynthesis Explained",
			},
			expectTitle:    "Vividly - Request Complete",
			expectMessage:  "Content ready: Photosynthesis Explained",
			expectTags:     "vividly,request,completed",
			expectPriority: "high",
		},
		{
			name:  "request completed degraded",
			event: notifications.EventRequestCompleted,
			payload: notifications.Payload{
				"title":    "Photosynthesis Explained",
				"degraded": "true",
			},
			expectTitle:    "Vividly - Request Complete",
			expectMessage:  "Content ready: Photosynthesis Explained (degraded fallback content)",
			expectTags:     "vividly,request,completed",
			expectPriority: "high",
		},
		{
			name:  "request failed",
			event: notifications.EventRequestFailed,
			payload: notifications.Payload{
				"title": "Volcano Basics",
				"stage": "generating_script",
				"code":  "retries_exhausted",
			},
			expectTitle:    "Vividly - Request Failed",
			expectMessage:  "Generation failed: Volcano Basics (stage generating_script): retries_exhausted",
			expectTags:     "vividly,error,alert",
			expectPriority: "high",
		},
		{
			name:  "request blocked",
			event: notifications.EventRequestBlocked,
			payload: notifications.Payload{
				"title": "Something Unsafe",
			},
			expectTitle:   "Vividly - Request Blocked",
			expectMessage: "Blocked by content guardrails: Something Unsafe",
			expectTags:    "vividly,guardrail,blocked",
		},
		{
			name:  "clarification needed",
			event: notifications.EventClarificationNeeded,
			payload: notifications.Payload{
				"title": "Cells",
			},
			expectTitle:   "Vividly - Clarification Needed",
			expectMessage: "Waiting for input: Cells\nResubmit with an answer to continue",
			expectTags:    "vividly,clarification,waiting",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.TimeoutSeconds = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresUnknownEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for unknown event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.Event("nonsense"), notifications.Payload{"value": "ignored"}); err != nil {
		t.Fatalf("expected no error for unknown event, got %v", err)
	}
}

func TestNtfyServiceSurfacesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventRequestCompleted, notifications.Payload{"title": "Example"})
	if err == nil {
		t.Fatal("expected error from failing ntfy endpoint")
	}
}
