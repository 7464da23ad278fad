package tracker

import (
	"context"
	"fmt"
	"time"
)

// Health aggregates request counts per lifecycle grouping for status
// surfaces and the health endpoint.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM requests GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("aggregate request counts: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return HealthSummary{}, err
		}
		summary.Total += count
		switch status := Status(statusStr); {
		case status == StatusPending:
			summary.Pending += count
		case status.IsProcessing():
			summary.Processing += count
		case status == StatusCompleted:
			summary.Completed += count
		case status == StatusFailed:
			summary.Failed += count
		case status == StatusBlocked:
			summary.Blocked += count
		case status == StatusClarificationNeeded:
			summary.Clarification += count
		}
	}
	return summary, rows.Err()
}

// RetryFailed resets failed requests to pending so they run again from the
// top of the pipeline with a clean attempt budget. When ids is empty every
// failed request is reset. Returns how many requests were reset.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	query := `UPDATE requests
        SET status = ?, stage = NULL, progress = 0, retry_count = 0,
            error_stage = NULL, error_code = NULL, error_class = NULL, error_message = NULL,
            lease_owner = NULL, last_heartbeat = NULL, completed_at = NULL, updated_at = ?
        WHERE status = ?`
	args := []any{StatusPending, timestamp, StatusFailed}

	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed requests: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// ClearCompleted deletes completed requests and their audit trails.
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM requests WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed requests: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// Remove deletes one request regardless of state.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
