package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrStaleTransition indicates the persisted state no longer matches the
	// expected prior state. A redelivered worker observing this must treat
	// the work as already handled and acknowledge without re-executing.
	ErrStaleTransition = errors.New("stale transition")
	// ErrInvalidTransition indicates a move the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNotFound indicates the request does not exist.
	ErrNotFound = errors.New("request not found")
)

// SubmitParams carries the normalized intake for a new content request.
type SubmitParams struct {
	CorrelationID       string
	TopicRef            string
	PersonalizationRef  string
	Style               Style
	ClarificationAnswer string
}

// Submit creates a content request, or returns the existing one when the
// correlation ID has been seen before. The uniqueness constraint on
// correlation_id is what makes submission idempotent under concurrent
// re-submission: exactly one insert wins, every other caller reads the
// winner's row. A follow-up submission answering a clarification moves the
// request back into the pipeline.
func (s *Store) Submit(ctx context.Context, params SubmitParams) (*Request, bool, error) {
	correlationID := strings.TrimSpace(params.CorrelationID)
	if correlationID == "" {
		return nil, false, errors.New("correlation id is required")
	}
	if strings.TrimSpace(params.TopicRef) == "" {
		return nil, false, errors.New("topic ref is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO requests (
            id, correlation_id, topic_ref, personalization_ref, style, status,
            progress, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(correlation_id) DO NOTHING`,
		id,
		correlationID,
		strings.TrimSpace(params.TopicRef),
		strings.TrimSpace(params.PersonalizationRef),
		string(params.Style),
		StatusPending,
		Progress(StatusPending),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert request: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	request, err := s.GetByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, false, err
	}
	if request == nil {
		return nil, false, ErrNotFound
	}

	if inserted == 0 && request.Status == StatusClarificationNeeded && strings.TrimSpace(params.ClarificationAnswer) != "" {
		if err := s.Transition(ctx, request.ID, StatusClarificationNeeded, StatusValidating, func(r *Request) {
			r.ClarificationAnswer = strings.TrimSpace(params.ClarificationAnswer)
			r.ClarificationJSON = ""
			r.ClearError()
		}); err != nil && !errors.Is(err, ErrStaleTransition) {
			return nil, false, err
		}
		request, err = s.GetByID(ctx, request.ID)
		if err != nil {
			return nil, false, err
		}
	}

	return request, inserted == 1, nil
}

// GetByID fetches a request by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Request, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	request, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return request, nil
}

// GetByCorrelationID fetches a request by its idempotency key.
func (s *Store) GetByCorrelationID(ctx context.Context, correlationID string) (*Request, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE correlation_id = ?`, correlationID)
	request, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request by correlation: %w", err)
	}
	return request, nil
}

// Transition atomically advances a request from one state to another,
// applying mutate to the in-memory row before persisting. The update is
// guarded by "current persisted status must equal from": if another worker
// has already advanced the request, ErrStaleTransition is returned and
// nothing is written.
func (s *Store) Transition(ctx context.Context, id string, from, to Status, mutate func(*Request)) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	request, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if request == nil {
		return ErrNotFound
	}
	if request.Status != from {
		return fmt.Errorf("%w: expected %s, found %s", ErrStaleTransition, from, request.Status)
	}

	request.Status = to
	request.Stage = string(to)
	if p := Progress(to); p >= 0 {
		request.Progress = p
	}
	now := time.Now().UTC()
	request.UpdatedAt = now
	if to.Terminal() {
		completed := now
		request.CompletedAt = &completed
		request.LeaseOwner = ""
		request.LastHeartbeat = nil
	}
	if to == StatusClarificationNeeded {
		request.LeaseOwner = ""
		request.LastHeartbeat = nil
	}
	if mutate != nil {
		mutate(request)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE requests
         SET status = ?, stage = ?, progress = ?, retry_count = ?,
             error_stage = ?, error_code = ?, error_class = ?, error_message = ?,
             resolved_topic = ?, resolved_title = ?, script_ref = ?,
             audio_ref = ?, video_ref = ?,
             artifact_fingerprint = ?, degraded = ?, clarification_json = ?,
             clarification_answer = ?, lease_owner = ?, last_heartbeat = ?,
             updated_at = ?, completed_at = ?
         WHERE id = ? AND status = ?`,
		request.Status,
		nullableString(request.Stage),
		request.Progress,
		request.RetryCount,
		nullableString(request.ErrorStage),
		nullableString(request.ErrorCode),
		nullableString(request.ErrorClass),
		nullableString(request.ErrorMessage),
		nullableString(request.ResolvedTopic),
		nullableString(request.ResolvedTitle),
		nullableString(request.ScriptRef),
		nullableString(request.AudioRef),
		nullableString(request.VideoRef),
		nullableString(request.ArtifactFingerprint),
		boolToInt(request.Degraded),
		nullableString(request.ClarificationJSON),
		nullableString(request.ClarificationAnswer),
		nullableString(request.LeaseOwner),
		nullableTime(request.LastHeartbeat),
		request.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(request.CompletedAt),
		id,
		from,
	)
	if err != nil {
		return fmt.Errorf("persist transition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: request advanced concurrently past %s", ErrStaleTransition, from)
	}
	return nil
}

// List returns requests filtered by status set (or all requests when no
// status is provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Request, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + requestColumns + ` FROM requests`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []*Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

const requestColumns = "id, correlation_id, topic_ref, personalization_ref, style, status, stage, progress, retry_count, error_stage, error_code, error_class, error_message, resolved_topic, resolved_title, script_ref, audio_ref, video_ref, artifact_fingerprint, degraded, clarification_json, clarification_answer, lease_owner, last_heartbeat, created_at, updated_at, completed_at"

func scanRequest(scanner interface{ Scan(dest ...any) error }) (*Request, error) {
	var (
		id                  string
		correlationID       string
		topicRef            string
		personalizationRef  string
		styleStr            string
		statusStr           string
		stage               sql.NullString
		progress            sql.NullInt64
		retryCount          sql.NullInt64
		errorStage          sql.NullString
		errorCode           sql.NullString
		errorClass          sql.NullString
		errorMessage        sql.NullString
		resolvedTopic       sql.NullString
		resolvedTitle       sql.NullString
		scriptRef           sql.NullString
		audioRef            sql.NullString
		videoRef            sql.NullString
		artifactFingerprint sql.NullString
		degraded            sql.NullInt64
		clarificationJSON   sql.NullString
		clarificationAnswer sql.NullString
		leaseOwner          sql.NullString
		lastHeartbeatRaw    sql.NullString
		createdRaw          sql.NullString
		updatedRaw          sql.NullString
		completedRaw        sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&correlationID,
		&topicRef,
		&personalizationRef,
		&styleStr,
		&statusStr,
		&stage,
		&progress,
		&retryCount,
		&errorStage,
		&errorCode,
		&errorClass,
		&errorMessage,
		&resolvedTopic,
		&resolvedTitle,
		&scriptRef,
		&audioRef,
		&videoRef,
		&artifactFingerprint,
		&degraded,
		&clarificationJSON,
		&clarificationAnswer,
		&leaseOwner,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	request := &Request{
		ID:                  id,
		CorrelationID:       correlationID,
		TopicRef:            topicRef,
		PersonalizationRef:  personalizationRef,
		Style:               Style(styleStr),
		Status:              Status(statusStr),
		Stage:               stage.String,
		Progress:            int(progress.Int64),
		RetryCount:          int(retryCount.Int64),
		ErrorStage:          errorStage.String,
		ErrorCode:           errorCode.String,
		ErrorClass:          errorClass.String,
		ErrorMessage:        errorMessage.String,
		ResolvedTopic:       resolvedTopic.String,
		ResolvedTitle:       resolvedTitle.String,
		ScriptRef:           scriptRef.String,
		AudioRef:            audioRef.String,
		VideoRef:            videoRef.String,
		ArtifactFingerprint: artifactFingerprint.String,
		Degraded:            degraded.Int64 != 0,
		ClarificationJSON:   clarificationJSON.String,
		ClarificationAnswer: clarificationAnswer.String,
		LeaseOwner:          leaseOwner.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		request.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		request.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			request.LastHeartbeat = &heartbeat
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			request.CompletedAt = &completed
		}
	}
	return request, nil
}
