package testsupport

import (
	"context"
	"testing"

	"vividly/internal/config"
	"vividly/internal/tracker"
)

// MustOpenStore opens a tracker.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *tracker.Store {
	t.Helper()

	store, err := tracker.Open(cfg)
	if err != nil {
		t.Fatalf("tracker.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustSubmit creates a new content request for tests using the provided store.
func MustSubmit(t testing.TB, store *tracker.Store, correlationID, topicRef string) *tracker.Request {
	t.Helper()

	request, _, err := store.Submit(context.Background(), tracker.SubmitParams{
		CorrelationID: correlationID,
		TopicRef:      topicRef,
		Style:         tracker.StyleTextAndVideo,
	})
	if err != nil {
		t.Fatalf("store.Submit: %v", err)
	}
	return request
}

// AdvanceTo walks a request through the state machine to the target status,
// following the shortest forward path. Fails the test on an impossible path.
func AdvanceTo(t testing.TB, store *tracker.Store, id string, target tracker.Status) *tracker.Request {
	t.Helper()

	ctx := context.Background()
	path := map[tracker.Status]tracker.Status{
		tracker.StatusPending:          tracker.StatusValidating,
		tracker.StatusValidating:       tracker.StatusCacheCheck,
		tracker.StatusCacheCheck:       tracker.StatusGeneratingScript,
		tracker.StatusGeneratingScript: tracker.StatusGeneratingAudio,
		tracker.StatusGeneratingAudio:  tracker.StatusGeneratingVideo,
		tracker.StatusGeneratingVideo:  tracker.StatusCompleted,
	}

	for {
		request, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if request == nil {
			t.Fatalf("request %s not found", id)
		}
		if request.Status == target {
			return request
		}
		next, ok := path[request.Status]
		if !ok {
			t.Fatalf("no forward path from %s to %s", request.Status, target)
		}
		if next != target && !tracker.CanTransition(request.Status, next) {
			t.Fatalf("cannot advance %s -> %s", request.Status, next)
		}
		if tracker.CanTransition(request.Status, target) {
			next = target
		}
		if err := store.Transition(ctx, id, request.Status, next, nil); err != nil {
			t.Fatalf("Transition %s -> %s: %v", request.Status, next, err)
		}
	}
}
