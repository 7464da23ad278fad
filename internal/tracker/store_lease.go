package tracker

import (
	"context"
	"fmt"
	"time"
)

// ClaimNext leases the oldest claimable request for the named worker. A
// request is claimable when it sits in pending, awaits clarification
// re-entry, or has an expired lease in a processing state after a crash.
// The claim itself is a conditional update: if two workers race for the
// same row, only one update matches and the loser moves on to the next
// candidate. A reclaimed request resumes from its persisted status, not
// from the beginning.
func (s *Store) ClaimNext(ctx context.Context, owner string) (*Request, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+requestColumns+` FROM requests
         WHERE status IN (?, ?, ?, ?, ?, ?) AND lease_owner IS NULL
         ORDER BY created_at
         LIMIT 10`,
		StatusPending,
		StatusValidating,
		StatusCacheCheck,
		StatusGeneratingScript,
		StatusGeneratingAudio,
		StatusGeneratingVideo,
	)
	if err != nil {
		return nil, fmt.Errorf("select claimable requests: %w", err)
	}

	var candidates []*Request
	for rows.Next() {
		candidate, scanErr := scanRequest(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, candidate := range candidates {
		res, execErr := s.execWithRetry(
			ctx,
			`UPDATE requests
             SET lease_owner = ?, last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND lease_owner IS NULL`,
			owner,
			timestamp,
			timestamp,
			candidate.ID,
		)
		if execErr != nil {
			return nil, fmt.Errorf("claim request: %w", execErr)
		}
		affected, raErr := res.RowsAffected()
		if raErr != nil {
			return nil, fmt.Errorf("rows affected: %w", raErr)
		}
		if affected == 1 {
			candidate.LeaseOwner = owner
			heartbeat := now
			candidate.LastHeartbeat = &heartbeat
			return candidate, nil
		}
	}
	return nil, nil
}

// Heartbeat renews the lease on a request. Returns ErrStaleTransition when
// the lease has been reclaimed by another worker, which tells the holder to
// abandon the work.
func (s *Store) Heartbeat(ctx context.Context, id, owner string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE requests SET last_heartbeat = ? WHERE id = ? AND lease_owner = ?`,
		timestamp,
		id,
		owner,
	)
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: lease for %s no longer held by %s", ErrStaleTransition, id, owner)
	}
	return nil
}

// ReclaimStale clears leases whose heartbeat is older than timeout. The
// requests stay in their current processing status and become claimable
// again, so a replacement worker picks up exactly where the dead one left
// off. Returns the IDs of reclaimed requests.
func (s *Store) ReclaimStale(ctx context.Context, timeout time.Duration) ([]string, error) {
	ctx = ensureContext(ctx)
	cutoff := time.Now().UTC().Add(-timeout).Format(time.RFC3339Nano)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM requests
         WHERE lease_owner IS NOT NULL
           AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("select stale leases: %w", err)
	}

	var stale []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		stale = append(stale, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var reclaimed []string
	for _, id := range stale {
		res, execErr := s.execWithRetry(
			ctx,
			`UPDATE requests
             SET lease_owner = NULL, last_heartbeat = NULL
             WHERE id = ? AND lease_owner IS NOT NULL
               AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
			id,
			cutoff,
		)
		if execErr != nil {
			return reclaimed, fmt.Errorf("reclaim lease: %w", execErr)
		}
		affected, raErr := res.RowsAffected()
		if raErr != nil {
			return reclaimed, fmt.Errorf("rows affected: %w", raErr)
		}
		if affected == 1 {
			reclaimed = append(reclaimed, id)
		}
	}
	return reclaimed, nil
}

// Release drops the lease a worker holds on a request without changing its
// status, for graceful shutdown mid-stage.
func (s *Store) Release(ctx context.Context, id, owner string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE requests
         SET lease_owner = NULL, last_heartbeat = NULL
         WHERE id = ? AND lease_owner = ?`,
		id,
		owner,
	)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// ReleaseOwned drops every lease held by the named owner. Called on
// shutdown so queued work is immediately claimable on restart.
func (s *Store) ReleaseOwned(ctx context.Context, owner string) (int, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE requests
         SET lease_owner = NULL, last_heartbeat = NULL
         WHERE lease_owner = ?`,
		owner,
	)
	if err != nil {
		return 0, fmt.Errorf("release owned leases: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}
