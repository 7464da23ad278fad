package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"vividly/internal/testsupport"
	"vividly/internal/tracker"
)

func waitForStatus(t *testing.T, h *testHarness, id string, want tracker.Status) *tracker.Request {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		request, err := h.store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if request != nil && request.Status == want {
			return request
		}
		time.Sleep(25 * time.Millisecond)
	}
	request, _ := h.store.GetByID(context.Background(), id)
	t.Fatalf("timed out waiting for %s; last seen %+v", want, request)
	return nil
}

func TestManagerStartProcessesSubmissions(t *testing.T) {
	h := newTestManager(t)
	h.manager.pollInterval = 25 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := h.manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.manager.Stop()

	if err := h.manager.Start(ctx); err == nil {
		t.Fatal("second Start should fail while running")
	}
	if !h.manager.Running() {
		t.Fatal("expected Running after Start")
	}

	submitted := testsupport.MustSubmit(t, h.store, "corr-daemon", "ocean currents")
	request := waitForStatus(t, h, submitted.ID, tracker.StatusCompleted)
	if request.ScriptRef == "" {
		t.Fatal("expected script ref on completed request")
	}

	h.manager.Stop()
	if h.manager.Running() {
		t.Fatal("expected stopped manager")
	}
}

func TestManagerWorkersShareQueue(t *testing.T) {
	h := newTestManager(t)
	h.manager.pollInterval = 25 * time.Millisecond
	h.manager.workers = 2

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := h.manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.manager.Stop()

	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		request := testsupport.MustSubmit(t, h.store, fmt.Sprintf("corr-pool-%d", i), fmt.Sprintf("topic %d", i))
		ids = append(ids, request.ID)
	}
	for _, id := range ids {
		waitForStatus(t, h, id, tracker.StatusCompleted)
	}
}
