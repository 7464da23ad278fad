package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// AppendEvent records a stage attempt in the audit log, together with any
// guardrail verdicts produced during the attempt, in a single transaction.
func (s *Store) AppendEvent(ctx context.Context, event StageEvent, verdicts []VerdictRecord) (int64, error) {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	var eventID int64
	err := retryOnBusy(ctx, func() error {
		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return txErr
		}
		defer func() { _ = tx.Rollback() }()

		res, insErr := tx.ExecContext(
			ctx,
			`INSERT INTO stage_events (request_id, stage, attempt, outcome, detail, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			event.RequestID,
			event.Stage,
			event.Attempt,
			event.Outcome,
			nullableString(event.Detail),
			timestamp,
		)
		if insErr != nil {
			return insErr
		}
		eventID, insErr = res.LastInsertId()
		if insErr != nil {
			return insErr
		}

		for _, verdict := range verdicts {
			if _, vErr := tx.ExecContext(
				ctx,
				`INSERT INTO guardrail_verdicts (event_id, checkpoint, subject, outcome, matched_rules, confidence)
                 VALUES (?, ?, ?, ?, ?, ?)`,
				eventID,
				verdict.Checkpoint,
				verdict.Subject,
				verdict.Outcome,
				nullableString(strings.Join(verdict.MatchedRules, ",")),
				verdict.Confidence,
			); vErr != nil {
				return vErr
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("append stage event: %w", err)
	}
	return eventID, nil
}

// ListEvents returns the audit trail for a request in insertion order.
func (s *Store) ListEvents(ctx context.Context, requestID string) ([]StageEvent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, request_id, stage, attempt, outcome, detail, created_at
         FROM stage_events WHERE request_id = ? ORDER BY id`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stage events: %w", err)
	}
	defer rows.Close()

	var events []StageEvent
	for rows.Next() {
		var (
			event      StageEvent
			detail     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&event.ID, &event.RequestID, &event.Stage, &event.Attempt, &event.Outcome, &detail, &createdRaw); err != nil {
			return nil, err
		}
		event.Detail = detail.String
		if created, parseErr := parseTimeString(createdRaw); parseErr == nil {
			event.CreatedAt = created
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// ListVerdicts returns the guardrail verdicts attached to a stage event.
func (s *Store) ListVerdicts(ctx context.Context, eventID int64) ([]VerdictRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, event_id, checkpoint, subject, outcome, matched_rules, confidence
         FROM guardrail_verdicts WHERE event_id = ? ORDER BY id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list guardrail verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []VerdictRecord
	for rows.Next() {
		var (
			verdict VerdictRecord
			matched sql.NullString
		)
		if err := rows.Scan(&verdict.ID, &verdict.EventID, &verdict.Checkpoint, &verdict.Subject, &verdict.Outcome, &matched, &verdict.Confidence); err != nil {
			return nil, err
		}
		if matched.Valid && matched.String != "" {
			verdict.MatchedRules = strings.Split(matched.String, ",")
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts, rows.Err()
}

// StageAttempts counts recorded attempts for one stage of a request, used
// to resume the attempt counter after a crash.
func (s *Store) StageAttempts(ctx context.Context, requestID, stage string) (int, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(attempt), 0) FROM stage_events WHERE request_id = ? AND stage = ?`,
		requestID,
		stage,
	)
	var attempts int
	if err := row.Scan(&attempts); err != nil {
		return 0, fmt.Errorf("count stage attempts: %w", err)
	}
	return attempts, nil
}
