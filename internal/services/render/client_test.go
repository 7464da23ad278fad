package render_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vividly/internal/services"
	"vividly/internal/services/render"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *render.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return render.NewClient(render.Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Preset:  "standard",
	})
}

func TestRenderReturnsVideo(t *testing.T) {
	video := []byte{0x00, 0x00, 0x00, 0x18}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var job render.Job
		if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
			t.Errorf("decode job: %v", err)
		}
		if job.Preset != "standard" {
			t.Errorf("expected default preset, got %q", job.Preset)
		}
		if len(job.Scenes) != 2 {
			t.Errorf("unexpected scenes %v", job.Scenes)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(video)
	})

	got, err := client.Render(context.Background(), render.Job{
		Title:  "How Tides Work",
		Scenes: []string{"scene one", "scene two"},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !bytes.Equal(got, video) {
		t.Fatalf("unexpected video bytes %v", got)
	}
}

func TestRenderClassifiesServiceDown(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Render(context.Background(), render.Job{Scenes: []string{"scene"}})
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRenderRequiresScenes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.Render(context.Background(), render.Job{Title: "empty"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRenderRateLimitIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Render(context.Background(), render.Job{Scenes: []string{"scene"}})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}
