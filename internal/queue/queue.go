// Package queue is the domain layer over the store: it owns id generation,
// default max-retries resolution, and the retry/backoff transition that
// decides whether a failed job goes back to pending or to the dead letter
// queue. The store enforces the state machine at the row level; this
// package only ever calls it in ways that respect that machine.
package queue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/TamannaDash/QueueCTLpy/internal/config"
	"github.com/TamannaDash/QueueCTLpy/internal/model"
	"github.com/TamannaDash/QueueCTLpy/internal/store"
	"github.com/google/uuid"
)

// Queue is a thin domain wrapper around a *store.Store.
type Queue struct {
	store *store.Store
}

// New returns a Queue backed by s.
func New(s *store.Store) *Queue {
	return &Queue{store: s}
}

// Spec describes a job submission. MaxRetries is a pointer so an explicit
// zero can be distinguished from "not supplied" — the per-job override
// wins over the config default whenever it is non-nil.
type Spec struct {
	ID         string
	Command    string
	MaxRetries *int
}

// Outcome is what a worker reports back after running a job's command.
type Outcome struct {
	Success bool
	Error   string
}

// Enqueue creates a new job. If spec.ID is empty a UUID is generated. If
// spec.MaxRetries is nil, the current "max-retries" config value is used.
func (q *Queue) Enqueue(ctx context.Context, spec Spec) (*model.Job, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("command must not be empty")
	}

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}

	maxRetries := 0
	if spec.MaxRetries != nil {
		maxRetries = *spec.MaxRetries
	} else {
		values, err := q.Values(ctx)
		if err != nil {
			return nil, err
		}
		maxRetries = values.MaxRetries
	}
	if maxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0")
	}

	now := time.Now().UTC()
	job := &model.Job{
		ID:         id,
		Command:    spec.Command,
		State:      model.StatePending,
		Attempts:   0,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := q.store.InsertJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Claim atomically claims the next eligible job for workerID, or returns
// (nil, nil) if none is eligible right now.
func (q *Queue) Claim(ctx context.Context, workerID string) (*model.Job, error) {
	return q.store.AtomicClaim(ctx, workerID, time.Now().UTC())
}

// Report applies outcome to a job that was previously claimed, moving it
// to completed, back to pending with a backoff delay, or to dead depending
// on the retry budget.
func (q *Queue) Report(ctx context.Context, job *model.Job, outcome Outcome) error {
	now := time.Now().UTC()
	if outcome.Success {
		return q.store.Complete(ctx, job.ID, now)
	}

	nextAttempts := job.Attempts + 1
	if nextAttempts <= job.MaxRetries {
		values, err := q.Values(ctx)
		if err != nil {
			return err
		}
		delay := time.Duration(math.Pow(float64(values.BackoffBase), float64(nextAttempts))) * time.Second
		return q.store.FailRetry(ctx, job.ID, now.Add(delay), outcome.Error, now)
	}
	return q.store.FailDead(ctx, job.ID, outcome.Error, now)
}

// DLQList returns every job currently in the dead letter queue.
func (q *Queue) DLQList(ctx context.Context) ([]model.Job, error) {
	return q.store.List(ctx, string(model.StateDead))
}

// DLQRetry revives a dead job back to pending, resetting its attempt count.
func (q *Queue) DLQRetry(ctx context.Context, id string) error {
	return q.store.Revive(ctx, id, time.Now().UTC())
}

// List returns jobs, optionally filtered by state.
func (q *Queue) List(ctx context.Context, state string) ([]model.Job, error) {
	return q.store.List(ctx, state)
}

// CountsByState returns per-state job counts.
func (q *Queue) CountsByState(ctx context.Context) (map[string]int, error) {
	return q.store.CountsByState(ctx)
}

// Get fetches a single job by id.
func (q *Queue) Get(ctx context.Context, id string) (*model.Job, error) {
	return q.store.Get(ctx, id)
}

// ResetStuck recovers jobs stuck in processing for longer than the stuck
// timeout, running each through the same retry/DLQ branch a normal failure
// takes. It returns the number of jobs actually recovered; a job that a
// worker legitimately completes between the scan and the recovery attempt
// is skipped rather than counted as an error.
func (q *Queue) ResetStuck(ctx context.Context, olderThan time.Time) (int, error) {
	stuck, err := q.store.ListStuck(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for i := range stuck {
		job := stuck[i]
		err := q.Report(ctx, &job, Outcome{Success: false, Error: "stuck beyond threshold"})
		if errors.Is(err, store.ErrIllegalTransition) {
			continue
		}
		if err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

// Values returns the current typed config, backfilling any keys not yet
// stored with their defaults.
func (q *Queue) Values(ctx context.Context) (config.Values, error) {
	raw, err := q.store.ConfigAll(ctx)
	if err != nil {
		return config.Values{}, err
	}
	return config.ParseValues(raw)
}

// ConfigGet returns a single config value, or ok=false if unset.
func (q *Queue) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	return q.store.ConfigGet(ctx, key)
}

// ConfigAll returns every stored config key/value pair, merged with
// defaults for anything not yet written.
func (q *Queue) ConfigAll(ctx context.Context) (map[string]string, error) {
	raw, err := q.store.ConfigAll(ctx)
	if err != nil {
		return nil, err
	}
	merged := config.Defaults()
	for k, v := range raw {
		merged[k] = v
	}
	return merged, nil
}

// ConfigSet validates and persists a config value.
func (q *Queue) ConfigSet(ctx context.Context, key, value string) error {
	canonical, err := config.Validate(key, value)
	if err != nil {
		return err
	}
	return q.store.ConfigSet(ctx, key, canonical)
}
