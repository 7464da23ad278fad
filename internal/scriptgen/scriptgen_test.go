package scriptgen_test

import (
	"context"
	"errors"
	"testing"

	"vividly/internal/blob"
	"vividly/internal/guardrail"
	"vividly/internal/logging"
	"vividly/internal/scriptgen"
	"vividly/internal/services"
	"vividly/internal/stage"
	"vividly/internal/testsupport"
	"vividly/internal/tracker"
)

type stubCompleter struct {
	content string
	err     error
}

func (s *stubCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.content, s.err
}

func (s *stubCompleter) HealthCheck(ctx context.Context) error { return s.err }

const validScriptJSON = `{
	"title": "How Tides Work",
	"topic": "tides",
	"scenes": [
		{"narration": "The moon pulls on the ocean.", "visual": "moon and earth"},
		{"narration": "That pull creates two bulges of water.", "visual": "tidal bulges"}
	]
}`

func newGenerator(t *testing.T, completer *stubCompleter, scriptFallback bool, blocked []string) (*scriptgen.Generator, *blob.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithGuardrailTerms(blocked, nil))
	cfg.Pipeline.ScriptFallback = scriptFallback
	blobs, err := blob.NewStore(cfg.Paths.BlobDir)
	if err != nil {
		t.Fatalf("blob.NewStore: %v", err)
	}
	gen := scriptgen.NewGeneratorWithDependencies(
		cfg,
		blobs,
		logging.NewNop(),
		completer,
		guardrail.Chain{guardrail.KeywordCheckpoint{
			BlockedTerms: cfg.Guardrails.BlockedTerms,
			FlaggedTerms: cfg.Guardrails.FlaggedTerms,
		}},
		guardrail.NewPolicy(nil),
	)
	return gen, blobs
}

func newRequest() *tracker.Request {
	return &tracker.Request{
		ID:            "req-1",
		TopicRef:      "how do tides work",
		ResolvedTopic: "tides",
		ResolvedTitle: "How Tides Work",
		Style:         tracker.StyleTextAndVideo,
		Status:        tracker.StatusGeneratingScript,
	}
}

func TestExecuteGeneratesAndStoresScript(t *testing.T) {
	gen, blobs := newGenerator(t, &stubCompleter{content: validScriptJSON}, false, nil)

	request := newRequest()
	result, err := gen.Execute(context.Background(), request)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Disposition != stage.DispositionContinue {
		t.Fatalf("expected continue, got %s", result.Disposition)
	}
	if request.ScriptRef == "" {
		t.Fatal("expected script ref persisted on request")
	}

	stored, err := blobs.Get(request.ScriptRef)
	if err != nil {
		t.Fatalf("stored script unreadable: %v", err)
	}
	script, err := scriptgen.DecodeScript(stored)
	if err != nil {
		t.Fatalf("stored script undecodable: %v", err)
	}
	if len(script.Scenes) != 2 {
		t.Fatalf("unexpected scene count %d", len(script.Scenes))
	}
}

func TestExecuteBlocksUnsafeScript(t *testing.T) {
	unsafe := `{"title":"Bad","topic":"bad","scenes":[{"narration":"this mentions forbidden material"}]}`
	gen, _ := newGenerator(t, &stubCompleter{content: unsafe}, false, []string{"forbidden"})

	request := newRequest()
	result, err := gen.Execute(context.Background(), request)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Disposition != stage.DispositionBlock {
		t.Fatalf("expected block, got %s", result.Disposition)
	}
	if request.ScriptRef != "" {
		t.Fatal("blocked script must not be stored")
	}
}

func TestExecuteFallsBackWhenUnavailable(t *testing.T) {
	down := services.Wrap(services.ErrUnavailable, "generating_script", "llm complete", "down", nil)
	gen, _ := newGenerator(t, &stubCompleter{err: down}, true, nil)

	request := newRequest()
	result, err := gen.Execute(context.Background(), request)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Disposition != stage.DispositionContinue || !result.Degraded {
		t.Fatalf("expected degraded continue, got %+v", result)
	}
	if request.ScriptRef == "" {
		t.Fatal("fallback script must still be stored")
	}
}

func TestExecuteFallbackWaitsOutRetryBudget(t *testing.T) {
	down := services.Wrap(services.ErrUnavailable, "generating_script", "llm complete", "down", nil)
	gen, _ := newGenerator(t, &stubCompleter{err: down}, true, nil)

	request := newRequest()
	for attempt := 1; attempt < 3; attempt++ {
		_, err := gen.Execute(stage.WithAttempt(context.Background(), attempt, 3), request)
		if !errors.Is(err, services.ErrUnavailable) {
			t.Fatalf("attempt %d: expected ErrUnavailable while retries remain, got %v", attempt, err)
		}
	}

	result, err := gen.Execute(stage.WithAttempt(context.Background(), 3, 3), request)
	if err != nil {
		t.Fatalf("final attempt failed: %v", err)
	}
	if result.Disposition != stage.DispositionContinue || !result.Degraded {
		t.Fatalf("expected degraded continue on final attempt, got %+v", result)
	}
}

func TestExecutePropagatesErrorWithoutFallback(t *testing.T) {
	down := services.Wrap(services.ErrUnavailable, "generating_script", "llm complete", "down", nil)
	gen, _ := newGenerator(t, &stubCompleter{err: down}, false, nil)

	_, err := gen.Execute(context.Background(), newRequest())
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestExecuteRequiresResolvedTopic(t *testing.T) {
	gen, _ := newGenerator(t, &stubCompleter{content: validScriptJSON}, false, nil)

	request := newRequest()
	request.ResolvedTopic = ""
	_, err := gen.Execute(context.Background(), request)
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
}

func TestScriptNarrationAndValidate(t *testing.T) {
	script := scriptgen.Script{
		Title: "T",
		Scenes: []scriptgen.Scene{
			{Narration: "one"},
			{Narration: "two", Visual: "diagram"},
		},
	}
	if err := script.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if script.Narration() != "one\n\ntwo" {
		t.Fatalf("unexpected narration %q", script.Narration())
	}
	texts := script.SceneTexts()
	if texts[0] != "one" || texts[1] != "diagram" {
		t.Fatalf("unexpected scene texts %v", texts)
	}

	if err := (scriptgen.Script{Title: "T"}).Validate(); err == nil {
		t.Fatal("expected validation error for empty scenes")
	}
}
