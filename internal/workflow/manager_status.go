package workflow

import (
	"context"

	"vividly/internal/stage"
	"vividly/internal/tracker"
)

// Health is the daemon-level view of pipeline readiness: the worker pool
// state, aggregate request counts, and per-stage capability checks.
type Health struct {
	Running bool
	Workers int
	Queue   tracker.HealthSummary
	Stages  []stage.Health
}

// Ready reports whether every configured stage capability answered healthy.
func (h Health) Ready() bool {
	for _, check := range h.Stages {
		if !check.Ready {
			return false
		}
	}
	return true
}

// Health gathers the current pipeline health snapshot.
func (m *Manager) Health(ctx context.Context) (Health, error) {
	summary, err := m.store.Health(ctx)
	if err != nil {
		return Health{}, err
	}
	return Health{
		Running: m.Running(),
		Workers: m.workers,
		Queue:   summary,
		Stages:  m.stages.Health(ctx),
	}, nil
}
