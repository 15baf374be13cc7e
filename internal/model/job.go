// Package model holds the queue's core data types.
package model

import "time"

// State is a job's lifecycle state. "failed" is deliberately absent: a
// failed-but-retryable job is stored as pending with a future NextRetryAt,
// per the queue's retry design.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateDead       State = "dead"
)

// Job is the queue's primary entity. Zero value is not meaningful; jobs are
// always constructed through Queue.Enqueue.
type Job struct {
	ID           string
	Command      string
	State        State
	Attempts     int
	MaxRetries   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  *time.Time
	ErrorMessage *string
	ClaimedBy    *string
}
