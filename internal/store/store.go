// Package store is the transactional persistence layer for queuectl.
// It is the sole shared mutable resource between CLI invocations and
// worker processes; every state change here is made by a single guarded
// SQLite statement or transaction that checks the state precondition
// itself rather than trusting the caller's snapshot, per the queue's
// atomic-claim design.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TamannaDash/QueueCTLpy/internal/config"
	"github.com/TamannaDash/QueueCTLpy/internal/model"
	"github.com/mattn/go-sqlite3"
)

// Errors surfaced by store operations. The CLI layer translates these into
// one-line diagnostics; workers only ever see IllegalTransition, which they
// treat as "someone else already handled this job" and ignore.
var (
	ErrConflict          = errors.New("job id already exists")
	ErrNotFound          = errors.New("job not found")
	ErrNotInDLQ          = errors.New("job is not in the dead letter queue")
	ErrIllegalTransition = errors.New("illegal state transition")
)

// Store wraps a SQLite-backed job table plus a config key/value table.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the SQLite database at path and
// ensures the schema and default config rows exist. WAL mode plus a busy
// timeout absorb writer contention as latency rather than errors, per the
// concurrency contract.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite only tolerates one writer at a time; a single connection avoids
	// SQLITE_BUSY storms between goroutines sharing this *Store.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id text PRIMARY KEY,
	command text NOT NULL,
	state text NOT NULL DEFAULT 'pending',
	attempts integer NOT NULL DEFAULT 0,
	max_retries integer NOT NULL DEFAULT 3,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	next_retry_at DATETIME,
	error_message text,
	claimed_by text
);
CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
CREATE INDEX IF NOT EXISTS idx_jobs_next_retry_at ON jobs(next_retry_at);

CREATE TABLE IF NOT EXISTS config (
	key text PRIMARY KEY,
	value text NOT NULL
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	for key, value := range config.Defaults() {
		if _, err := s.db.Exec(`INSERT OR IGNORE INTO config (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("seed default config %s: %w", key, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// beginImmediate pins a connection and issues BEGIN IMMEDIATE, giving us a
// true write lock for the duration of the transaction instead of SQLite's
// default deferred lock, which two concurrent claimers could both pass the
// read phase of before either acquires the write lock. Mirrors the
// original implementation's explicit BEGIN IMMEDIATE around select-then-
// update.
func (s *Store) beginImmediate(ctx context.Context) (*sql.Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func rollback(ctx context.Context, conn *sql.Conn) {
	_, _ = conn.ExecContext(ctx, "ROLLBACK")
	conn.Close()
}

func commit(ctx context.Context, conn *sql.Conn) error {
	defer conn.Close()
	_, err := conn.ExecContext(ctx, "COMMIT")
	return err
}

// InsertJob inserts a new job row. Fails with ErrConflict if id exists.
func (s *Store) InsertJob(ctx context.Context, job *model.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, command, state, attempts, max_retries, created_at, updated_at, next_retry_at, error_message, claimed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Command, string(job.State), job.Attempts, job.MaxRetries,
		job.CreatedAt, job.UpdatedAt, nullTime(job.NextRetryAt), nullString(job.ErrorMessage), nullString(job.ClaimedBy),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrConflict
		}
		return err
	}
	return nil
}

// AtomicClaim selects the earliest-created eligible pending job and marks
// it processing in the same transaction, guarded by a conditional UPDATE
// so two concurrent claimers can never receive the same job. Returns
// (nil, nil) when nothing is eligible.
func (s *Store) AtomicClaim(ctx context.Context, workerID string, now time.Time) (*model.Job, error) {
	conn, err := s.beginImmediate(ctx)
	if err != nil {
		return nil, err
	}

	var id string
	err = conn.QueryRowContext(ctx, `
		SELECT id FROM jobs
		WHERE state = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at ASC
		LIMIT 1`,
		string(model.StatePending), now,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		rollback(ctx, conn)
		return nil, nil
	}
	if err != nil {
		rollback(ctx, conn)
		return nil, err
	}

	res, err := conn.ExecContext(ctx, `
		UPDATE jobs SET state = ?, claimed_by = ?, updated_at = ?, next_retry_at = NULL
		WHERE id = ? AND state = ?`,
		string(model.StateProcessing), workerID, now, id, string(model.StatePending),
	)
	if err != nil {
		rollback(ctx, conn)
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rollback(ctx, conn)
		return nil, err
	}
	if affected == 0 {
		// Lost the race to another claimer between the SELECT and UPDATE.
		rollback(ctx, conn)
		return nil, nil
	}

	var job model.Job
	var nextRetryAt sql.NullTime
	var errMsg, claimedBy sql.NullString
	err = conn.QueryRowContext(ctx, `SELECT id, command, state, attempts, max_retries, created_at, updated_at, next_retry_at, error_message, claimed_by FROM jobs WHERE id = ?`, id).
		Scan(&job.ID, &job.Command, (*string)(&job.State), &job.Attempts, &job.MaxRetries, &job.CreatedAt, &job.UpdatedAt, &nextRetryAt, &errMsg, &claimedBy)
	if err != nil {
		rollback(ctx, conn)
		return nil, err
	}
	if err := commit(ctx, conn); err != nil {
		return nil, err
	}

	job.NextRetryAt = fromNullTime(nextRetryAt)
	job.ErrorMessage = fromNullString(errMsg)
	job.ClaimedBy = fromNullString(claimedBy)
	return &job, nil
}

// Complete transitions a processing job to completed.
func (s *Store) Complete(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, claimed_by = NULL, updated_at = ?
		WHERE id = ? AND state = ?`,
		string(model.StateCompleted), now, id, string(model.StateProcessing),
	)
	return checkAffected(res, err)
}

// FailRetry transitions a processing job back to pending with a future
// next_retry_at, incrementing attempts and recording the failure.
func (s *Store) FailRetry(ctx context.Context, id string, nextRetryAt time.Time, errMsg string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, claimed_by = NULL, attempts = attempts + 1,
			next_retry_at = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND state = ?`,
		string(model.StatePending), nextRetryAt, errMsg, now, id, string(model.StateProcessing),
	)
	return checkAffected(res, err)
}

// FailDead transitions a processing job to dead, incrementing attempts.
func (s *Store) FailDead(ctx context.Context, id string, errMsg string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, claimed_by = NULL, attempts = attempts + 1,
			error_message = ?, updated_at = ?
		WHERE id = ? AND state = ?`,
		string(model.StateDead), errMsg, now, id, string(model.StateProcessing),
	)
	return checkAffected(res, err)
}

// Revive resets a dead job back to pending with attempts cleared.
func (s *Store) Revive(ctx context.Context, id string, now time.Time) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrNotFound
	}
	if job.State != model.StateDead {
		return ErrNotInDLQ
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, attempts = 0, next_retry_at = NULL, error_message = NULL, updated_at = ?
		WHERE id = ? AND state = ?`,
		string(model.StatePending), now, id, string(model.StateDead),
	)
	return checkAffected(res, err)
}

// ListStuck returns processing jobs whose updated_at predates olderThan,
// candidates for the stuck-job sweep. The caller (Queue) applies the same
// retry/DLQ branch a normal failure would.
func (s *Store) ListStuck(ctx context.Context, olderThan time.Time) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, command, state, attempts, max_retries, created_at, updated_at, next_retry_at, error_message, claimed_by
		FROM jobs WHERE state = ? AND updated_at < ? ORDER BY created_at ASC`,
		string(model.StateProcessing), olderThan,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// List returns jobs, optionally filtered by state, oldest-first by created_at.
func (s *Store) List(ctx context.Context, state string) ([]model.Job, error) {
	var rows *sql.Rows
	var err error
	if state == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, command, state, attempts, max_retries, created_at, updated_at, next_retry_at, error_message, claimed_by
			FROM jobs ORDER BY created_at ASC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, command, state, attempts, max_retries, created_at, updated_at, next_retry_at, error_message, claimed_by
			FROM jobs WHERE state = ? ORDER BY created_at ASC`, state)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// CountsByState returns the number of jobs in each state.
func (s *Store) CountsByState(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[state] = n
	}
	return counts, rows.Err()
}

// Get fetches a job by id, returning (nil, nil) if absent.
func (s *Store) Get(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, command, state, attempts, max_retries, created_at, updated_at, next_retry_at, error_message, claimed_by
		FROM jobs WHERE id = ?`, id)

	var job model.Job
	var nextRetryAt sql.NullTime
	var errMsg, claimedBy sql.NullString
	err := row.Scan(&job.ID, &job.Command, (*string)(&job.State), &job.Attempts, &job.MaxRetries, &job.CreatedAt, &job.UpdatedAt, &nextRetryAt, &errMsg, &claimedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	job.NextRetryAt = fromNullTime(nextRetryAt)
	job.ErrorMessage = fromNullString(errMsg)
	job.ClaimedBy = fromNullString(claimedBy)
	return &job, nil
}

// ConfigGet returns a raw config value and whether the key exists.
func (s *Store) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// ConfigAll returns every stored config key/value pair.
func (s *Store) ConfigAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// ConfigSet writes a raw, already-validated config value.
func (s *Store) ConfigSet(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrIllegalTransition
	}
	return nil
}

func scanJobs(rows *sql.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		var job model.Job
		var nextRetryAt sql.NullTime
		var errMsg, claimedBy sql.NullString
		if err := rows.Scan(&job.ID, &job.Command, (*string)(&job.State), &job.Attempts, &job.MaxRetries, &job.CreatedAt, &job.UpdatedAt, &nextRetryAt, &errMsg, &claimedBy); err != nil {
			return nil, err
		}
		job.NextRetryAt = fromNullTime(nextRetryAt)
		job.ErrorMessage = fromNullString(errMsg)
		job.ClaimedBy = fromNullString(claimedBy)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
