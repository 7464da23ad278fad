package main

import (
	"encoding/json"
	"strings"
	"testing"

	"vividly/internal/tracker"
)

func TestQueueListAndClear(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "submit", "ocean currents", "--correlation-id", "corr-q-1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForStatus(t, env, "corr-q-1", tracker.StatusCompleted)

	out, _, err := runCLI(t, env, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "ocean currents")
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, env, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 1 completed request(s)")

	out, _, err = runCLI(t, env, "queue", "list")
	if err != nil {
		t.Fatalf("queue list after clear: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "submit", "tides", "--correlation-id", "corr-q-2"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	out, _, err := runCLI(t, env, "queue", "list", "--json")
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}

	var response struct {
		Requests []map[string]any `json:"requests"`
	}
	if err := json.Unmarshal([]byte(out), &response); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(response.Requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(response.Requests))
	}
	if _, ok := response.Requests[0]["id"]; !ok {
		t.Fatal("missing 'id' key in JSON request")
	}
	if _, ok := response.Requests[0]["status"]; !ok {
		t.Fatal("missing 'status' key in JSON request")
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "queue", "list", "--status", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}

func TestQueueRetryWithNothingFailed(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "queue", "retry")
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Requeued 0 request(s)")
}
