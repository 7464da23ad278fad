package audiogen_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"vividly/internal/audiogen"
	"vividly/internal/blob"
	"vividly/internal/logging"
	"vividly/internal/scriptgen"
	"vividly/internal/services"
	"vividly/internal/stage"
	"vividly/internal/testsupport"
	"vividly/internal/tracker"
)

type stubSpeech struct {
	audio []byte
	err   error
}

func (s *stubSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return s.audio, s.err
}

func (s *stubSpeech) Format() string { return "mp3" }

func (s *stubSpeech) HealthCheck(ctx context.Context) error { return s.err }

func setup(t *testing.T, synth *stubSpeech, fallback bool) (*audiogen.Generator, *blob.Store, *tracker.Request) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.AudioFallback = fallback
	blobs, err := blob.NewStore(cfg.Paths.BlobDir)
	if err != nil {
		t.Fatalf("blob.NewStore: %v", err)
	}

	script := scriptgen.Script{
		Title:  "How Rain Forms",
		Topic:  "rain",
		Scenes: []scriptgen.Scene{{Narration: "Water evaporates and condenses into clouds."}},
	}
	encoded, err := script.Encode()
	if err != nil {
		t.Fatalf("encode script: %v", err)
	}
	ref, err := blobs.Put("json", encoded)
	if err != nil {
		t.Fatalf("store script: %v", err)
	}

	request := &tracker.Request{
		ID:            "req-1",
		ResolvedTopic: "rain",
		ScriptRef:     ref,
		Style:         tracker.StyleTextAndAudio,
		Status:        tracker.StatusGeneratingAudio,
	}
	return audiogen.NewGeneratorWithDependencies(cfg, blobs, logging.NewNop(), synth), blobs, request
}

func TestExecuteSynthesizesNarration(t *testing.T) {
	audio := []byte{0x49, 0x44, 0x33}
	gen, blobs, request := setup(t, &stubSpeech{audio: audio}, false)

	result, err := gen.Execute(context.Background(), request)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Disposition != stage.DispositionContinue || result.Degraded {
		t.Fatalf("expected clean continue, got %+v", result)
	}
	if request.AudioRef == "" {
		t.Fatal("expected audio ref persisted")
	}

	stored, err := blobs.Get(request.AudioRef)
	if err != nil {
		t.Fatalf("stored audio unreadable: %v", err)
	}
	if !bytes.Equal(stored, audio) {
		t.Fatal("stored audio does not match synthesis output")
	}
}

func TestExecuteDegradesWhenServiceDown(t *testing.T) {
	down := services.Wrap(services.ErrUnavailable, "generating_audio", "speech synthesize", "down", nil)
	gen, _, request := setup(t, &stubSpeech{err: down}, true)

	result, err := gen.Execute(context.Background(), request)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Disposition != stage.DispositionContinue || !result.Degraded {
		t.Fatalf("expected degraded continue, got %+v", result)
	}
	if request.AudioRef != "" {
		t.Fatal("degraded request must not carry an audio ref")
	}
}

func TestExecuteDegradesOnlyOnLastAttempt(t *testing.T) {
	down := services.Wrap(services.ErrUnavailable, "generating_audio", "speech synthesize", "down", nil)
	gen, _, request := setup(t, &stubSpeech{err: down}, true)

	_, err := gen.Execute(stage.WithAttempt(context.Background(), 1, 3), request)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable while retries remain, got %v", err)
	}

	result, err := gen.Execute(stage.WithAttempt(context.Background(), 3, 3), request)
	if err != nil {
		t.Fatalf("final attempt failed: %v", err)
	}
	if result.Disposition != stage.DispositionContinue || !result.Degraded {
		t.Fatalf("expected degraded continue, got %+v", result)
	}
}

func TestExecutePropagatesTransientError(t *testing.T) {
	flaky := services.Wrap(services.ErrTransient, "generating_audio", "speech synthesize", "timeout", nil)
	gen, _, request := setup(t, &stubSpeech{err: flaky}, true)

	_, err := gen.Execute(context.Background(), request)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestExecuteRequiresScript(t *testing.T) {
	gen, _, request := setup(t, &stubSpeech{audio: []byte{1}}, false)
	request.ScriptRef = ""

	_, err := gen.Execute(context.Background(), request)
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
}
