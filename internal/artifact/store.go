package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vividly/internal/config"
)

// Store persists generated artifacts in SQLite, keyed by the deterministic
// fingerprint of their inputs.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy absorbs SQLITE_BUSY from concurrent writers. The pragma-level
// busy_timeout only covers the pooled connection it was applied to, so writes
// racing across connections still surface busy errors without this.
func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
    fingerprint TEXT PRIMARY KEY,
    topic_ref TEXT NOT NULL,
    style TEXT NOT NULL,
    script_ref TEXT NOT NULL,
    audio_ref TEXT,
    video_ref TEXT,
    degraded INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
`

// Open initializes or connects to the artifact cache database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "cache.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create artifact schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the cached artifact for a fingerprint, or nil when absent.
func (s *Store) Lookup(ctx context.Context, fingerprint string) (*Artifact, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, errors.New("fingerprint is required")
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT fingerprint, topic_ref, style, script_ref, audio_ref, video_ref, degraded, created_at
         FROM artifacts WHERE fingerprint = ?`,
		fingerprint,
	)
	cached, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup artifact: %w", err)
	}
	return cached, nil
}

// PutIfAbsent stores the artifact unless one already exists for the same
// fingerprint. The primary key makes the insert atomic: under concurrent
// writes exactly one insert wins and every caller is told which artifact is
// canonical. Returns the stored artifact and whether this call inserted it.
func (s *Store) PutIfAbsent(ctx context.Context, candidate Artifact) (*Artifact, bool, error) {
	if !candidate.Valid() {
		return nil, false, errors.New("artifact requires a fingerprint and script ref")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (fingerprint, topic_ref, style, script_ref, audio_ref, video_ref, degraded, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(fingerprint) DO NOTHING`,
		candidate.Fingerprint,
		candidate.TopicRef,
		candidate.Style,
		candidate.ScriptRef,
		nullable(candidate.AudioRef),
		nullable(candidate.VideoRef),
		boolToInt(candidate.Degraded),
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert artifact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	stored, err := s.Lookup(ctx, candidate.Fingerprint)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, errors.New("artifact vanished after insert")
	}
	return stored, affected == 1, nil
}

// Remove deletes a cached artifact, for operator-driven invalidation.
func (s *Store) Remove(ctx context.Context, fingerprint string) error {
	_, err := s.execWithRetry(ctx, `DELETE FROM artifacts WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

// Count returns the number of cached artifacts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count artifacts: %w", err)
	}
	return count, nil
}

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		cached     Artifact
		audioRef   sql.NullString
		videoRef   sql.NullString
		degraded   int
		createdRaw string
	)
	if err := scanner.Scan(
		&cached.Fingerprint,
		&cached.TopicRef,
		&cached.Style,
		&cached.ScriptRef,
		&audioRef,
		&videoRef,
		&degraded,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	cached.AudioRef = audioRef.String
	cached.VideoRef = videoRef.String
	cached.Degraded = degraded != 0
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		cached.CreatedAt = created
	}
	return &cached, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
