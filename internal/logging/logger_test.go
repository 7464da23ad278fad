package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"vividly/internal/services"
)

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("stage started", String(FieldStage, "generating_script"), Int(FieldAttempt, 2))

	out := buf.String()
	for _, want := range []string{"INFO", "stage started", "stage=generating_script", "attempt=2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q: %s", want, out)
		}
	}
}

func TestConsoleHandlerQuotesSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Warn("verdict recorded", String("detail", "two words"))
	if !strings.Contains(buf.String(), `detail="two words"`) {
		t.Fatalf("expected quoted value, got %s", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	ctx := services.WithRequestID(context.Background(), "req-1")
	ctx = services.WithStage(ctx, "validating")
	ctx = services.WithWorkerID(ctx, "worker-3")

	WithContext(ctx, logger).Info("hello")

	out := buf.String()
	for _, want := range []string{"request_id=req-1", "stage=validating", "worker=worker-3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output: %s", want, out)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
