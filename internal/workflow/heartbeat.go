package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vividly/internal/logging"
	"vividly/internal/tracker"
)

// heartbeatMonitor keeps leases fresh while a worker holds a request and
// reclaims leases whose owners stopped reporting.
type heartbeatMonitor struct {
	store    *tracker.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

func newHeartbeatMonitor(store *tracker.Store, logger *slog.Logger, interval, timeout time.Duration) *heartbeatMonitor {
	return &heartbeatMonitor{
		store:    store,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// reclaimStale clears expired leases. Status is left untouched so the next
// claimant resumes the request at the stage it was persisted in.
func (h *heartbeatMonitor) reclaimStale(ctx context.Context) error {
	if h.timeout <= 0 {
		return nil
	}
	reclaimed, err := h.store.ReclaimStale(ctx, h.timeout)
	if err != nil {
		return err
	}
	if len(reclaimed) > 0 {
		h.logger.Info("reclaimed stale request leases",
			logging.Int("count", len(reclaimed)),
			logging.Any("request_ids", reclaimed),
		)
	}
	return nil
}

// startLoop renews the lease for one request until context cancellation.
func (h *heartbeatMonitor) startLoop(ctx context.Context, wg *sync.WaitGroup, requestID, owner string) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String(logging.FieldComponent, "workflow-heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.Heartbeat(ctx, requestID, owner); err != nil {
				switch {
				case errors.Is(err, context.Canceled):
					return
				case errors.Is(err, tracker.ErrStaleTransition):
					logger.Warn("lease no longer held; heartbeat stopped",
						logging.String(logging.FieldRequestID, requestID),
						logging.String(logging.FieldWorker, owner),
					)
					return
				default:
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}
