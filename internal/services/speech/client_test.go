package speech_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vividly/internal/services"
	"vividly/internal/services/speech"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *speech.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return speech.NewClient(speech.Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Voice:   "narrator-1",
		Format:  "mp3",
	})
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	audio := []byte{0x49, 0x44, 0x33, 0x04}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text   string `json:"text"`
			Voice  string `json:"voice"`
			Format string `json:"format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Voice != "narrator-1" || req.Format != "mp3" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	})

	got, err := client.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !bytes.Equal(got, audio) {
		t.Fatalf("unexpected audio bytes %v", got)
	}
}

func TestSynthesizeClassifiesServiceDown(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Synthesize(context.Background(), "hello")
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSynthesizeClassifiesBadRequestAsPermanent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	_, err := client.Synthesize(context.Background(), "hello")
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
}

func TestSynthesizeRequiresText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.Synthesize(context.Background(), "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSynthesizeEmptyPayloadIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.Synthesize(context.Background(), "hello")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}
