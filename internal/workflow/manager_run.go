package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vividly/internal/logging"
	"vividly/internal/services"
	"vividly/internal/tracker"
)

// Start launches the reclaimer and the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.owners = make([]string, 0, m.workers)
	for i := 0; i < m.workers; i++ {
		m.owners = append(m.owners, fmt.Sprintf("%s-worker-%d", m.instanceID, i+1))
	}
	owners := m.owners
	m.wg.Add(len(owners) + 1)
	m.mu.Unlock()

	go m.runReclaimer(runCtx)
	for _, owner := range owners {
		go m.runWorker(runCtx, owner)
	}

	return nil
}

// Stop terminates background processing, waits for workers to settle, and
// releases any leases this instance still holds so another worker can resume
// the requests.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	owners := m.owners
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer releaseCancel()
	for _, owner := range owners {
		released, err := m.store.ReleaseOwned(releaseCtx, owner)
		if err != nil {
			m.logger.Warn("failed to release worker leases on shutdown",
				logging.String(logging.FieldWorker, owner),
				logging.Error(err),
			)
			continue
		}
		if released > 0 {
			m.logger.Info("released leases on shutdown",
				logging.String(logging.FieldWorker, owner),
				logging.Int("count", released),
			)
		}
	}
}

func (m *Manager) runWorker(ctx context.Context, owner string) {
	defer m.wg.Done()
	logger := m.logger.With(logging.String(logging.FieldWorker, owner))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		request, err := m.store.ClaimNext(ctx, owner)
		if err != nil {
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if request == nil {
			m.waitForWorkOrShutdown(ctx)
			continue
		}

		m.process(ctx, logger, owner, request)
	}
}

func (m *Manager) runReclaimer(ctx context.Context) {
	defer m.wg.Done()
	interval := m.heartbeat.interval
	if interval <= 0 {
		interval = m.pollInterval
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.heartbeat.reclaimStale(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("reclaim stale leases failed; stuck requests may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				)
			}
		}
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	logger.Error("failed to claim next request",
		logging.Error(err),
		logging.String(logging.FieldEventType, "claim_failed"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetryInterval):
	}
}

func (m *Manager) waitForWorkOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

// requestLogger decorates the worker logger with request identity for every
// log line emitted while the request is held.
func (m *Manager) requestLogger(logger *slog.Logger, request *tracker.Request) *slog.Logger {
	return logger.With(
		logging.String(logging.FieldRequestID, request.ID),
		logging.String(logging.FieldCorrelationID, request.CorrelationID),
	)
}

func requestContext(ctx context.Context, owner string, request *tracker.Request) context.Context {
	ctx = services.WithWorkerID(ctx, owner)
	ctx = services.WithRequestID(ctx, request.ID)
	return services.WithCorrelationID(ctx, request.CorrelationID)
}
