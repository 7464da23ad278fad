package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"

	"vividly/internal/artifact"
	"vividly/internal/config"
	"vividly/internal/logging"
	"vividly/internal/stage"
	"vividly/internal/testsupport"
	"vividly/internal/tracker"
)

// fakeProcessor is a scriptable stage.Processor. The default behavior for
// each pipeline position is installed by newTestManager; tests override the
// execute hook to inject failures, blocks, and clarifications.
type fakeProcessor struct {
	name    string
	execute func(ctx context.Context, request *tracker.Request, call int) (stage.Result, error)
	health  *stage.Health

	mu    sync.Mutex
	calls int
}

func (f *fakeProcessor) Name() string { return f.name }

func (f *fakeProcessor) Execute(ctx context.Context, request *tracker.Request) (stage.Result, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.execute == nil {
		return stage.Continue(), nil
	}
	return f.execute(ctx, request, call)
}

func (f *fakeProcessor) HealthCheck(context.Context) stage.Health {
	if f.health != nil {
		return *f.health
	}
	return stage.Healthy(f.name)
}

func (f *fakeProcessor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testHarness struct {
	cfg       *config.Config
	manager   *Manager
	store     *tracker.Store
	artifacts *artifact.Store
	resolver  *fakeProcessor
	script    *fakeProcessor
	audio     *fakeProcessor
	video     *fakeProcessor
}

func newTestManager(t *testing.T, opts ...testsupport.ConfigOption) *testHarness {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Pipeline.RetryBackoffBase = 0
	cfg.Pipeline.RetryBackoffMax = 0
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	artifacts, err := artifact.Open(cfg)
	if err != nil {
		t.Fatalf("artifact.Open: %v", err)
	}
	t.Cleanup(func() {
		artifacts.Close()
	})

	resolver := &fakeProcessor{
		name: string(tracker.StatusValidating),
		execute: func(_ context.Context, request *tracker.Request, _ int) (stage.Result, error) {
			request.ResolvedTopic = strings.ToLower(strings.TrimSpace(request.TopicRef))
			request.ResolvedTitle = "About " + request.ResolvedTopic
			return stage.Continue(), nil
		},
	}
	script := &fakeProcessor{
		name: string(tracker.StatusGeneratingScript),
		execute: func(_ context.Context, request *tracker.Request, _ int) (stage.Result, error) {
			request.ScriptRef = "script-" + request.ID
			return stage.Continue(), nil
		},
	}
	audio := &fakeProcessor{
		name: string(tracker.StatusGeneratingAudio),
		execute: func(_ context.Context, request *tracker.Request, _ int) (stage.Result, error) {
			request.AudioRef = "audio-" + request.ID
			return stage.Continue(), nil
		},
	}
	video := &fakeProcessor{
		name: string(tracker.StatusGeneratingVideo),
		execute: func(_ context.Context, request *tracker.Request, _ int) (stage.Result, error) {
			request.VideoRef = "video-" + request.ID
			return stage.Continue(), nil
		},
	}

	manager := NewManagerWithStages(cfg, store, artifacts, StageSet{
		Resolve: resolver,
		Script:  script,
		Audio:   audio,
		Video:   video,
	}, logging.NewNop())

	return &testHarness{
		cfg:       cfg,
		manager:   manager,
		store:     store,
		artifacts: artifacts,
		resolver:  resolver,
		script:    script,
		audio:     audio,
		video:     video,
	}
}

// runOne claims the next available request and drives it synchronously.
func (h *testHarness) runOne(t *testing.T) *tracker.Request {
	t.Helper()

	ctx := context.Background()
	request, err := h.store.ClaimNext(ctx, "test-worker")
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if request == nil {
		t.Fatal("expected a claimable request")
	}
	h.manager.process(ctx, h.manager.logger, "test-worker", request)

	fresh, err := h.store.GetByID(ctx, request.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh == nil {
		t.Fatalf("request %s disappeared", request.ID)
	}
	return fresh
}

func (h *testHarness) mustEvents(t *testing.T, requestID string) []tracker.StageEvent {
	t.Helper()
	events, err := h.store.ListEvents(context.Background(), requestID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func eventOutcomes(events []tracker.StageEvent, stageName string) []tracker.EventOutcome {
	var outcomes []tracker.EventOutcome
	for _, event := range events {
		if event.Stage == stageName {
			outcomes = append(outcomes, event.Outcome)
		}
	}
	return outcomes
}

func hasOutcome(events []tracker.StageEvent, stageName string, outcome tracker.EventOutcome) bool {
	for _, recorded := range eventOutcomes(events, stageName) {
		if recorded == outcome {
			return true
		}
	}
	return false
}
