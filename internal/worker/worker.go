// Package worker implements the long-lived per-process poll/claim/execute/
// report loop. A Worker never claims a second job while one is in flight,
// and never abandons an in-flight command on shutdown: it lets the child
// finish, reports the outcome, then exits.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/TamannaDash/QueueCTLpy/internal/model"
	"github.com/TamannaDash/QueueCTLpy/internal/queue"
)

// executionCeiling bounds how long a single job's command may run before
// it is forcibly terminated and counted as a failed attempt.
const executionCeiling = time.Hour

// stderrSnippetLimit bounds the diagnostic captured for a failed job.
const stderrSnippetLimit = 4096

// Liveness is the on-disk record a supervisor uses to observe a worker
// that is not itself resident in the Store.
type Liveness struct {
	WorkerID  string    `json:"worker_id"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// Worker polls a Queue for jobs and executes their commands one at a time.
type Worker struct {
	ID           string
	Queue        *queue.Queue
	PollInterval time.Duration
	LivenessPath string

	// ExecutionCeiling bounds how long a single job's command may run
	// before being forcibly terminated. New sets it to executionCeiling;
	// tests override it to exercise the timeout path without waiting.
	ExecutionCeiling time.Duration
}

// New builds a Worker. livenessDir is the directory the liveness record is
// written to and removed from; typically the store's directory.
func New(id string, q *queue.Queue, pollInterval time.Duration, livenessDir string) *Worker {
	return &Worker{
		ID:               id,
		Queue:            q,
		PollInterval:     pollInterval,
		LivenessPath:     filepath.Join(livenessDir, fmt.Sprintf("queuectl_worker_%s.pid", id)),
		ExecutionCeiling: executionCeiling,
	}
}

// Run is the worker's main loop. It returns when ctx is canceled and any
// in-flight job has been reported. Shutdown never interrupts a running
// child; it only stops the loop from claiming further work.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.writeLiveness(); err != nil {
		return fmt.Errorf("worker %s: write liveness record: %w", w.ID, err)
	}
	defer w.removeLiveness()

	log.Printf("worker %s: started, polling every %s", w.ID, w.PollInterval)

	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker %s: shutting down", w.ID)
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			log.Printf("worker %s: shutting down", w.ID)
			return nil
		case <-ticker.C:
			w.pollOnce()
		}
	}
}

// pollOnce claims at most one job, executes it to completion (regardless
// of the loop's shutdown state — a claimed job is always seen through to
// a report), and never claims a second job before this one is reported.
func (w *Worker) pollOnce() {
	claimCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	job, err := w.Queue.Claim(claimCtx, w.ID)
	if err != nil {
		log.Printf("worker %s: claim failed: %v", w.ID, err)
		return
	}
	if job == nil {
		return
	}

	log.Printf("worker %s: processing job %s: %s", w.ID, job.ID, job.Command)
	outcome := w.execute(job)

	reportCtx, cancelReport := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelReport()
	if err := w.Queue.Report(reportCtx, job, outcome); err != nil {
		log.Printf("worker %s: report job %s failed: %v", w.ID, job.ID, err)
		return
	}
	if outcome.Success {
		log.Printf("worker %s: job %s completed", w.ID, job.ID)
	} else {
		log.Printf("worker %s: job %s failed: %s", w.ID, job.ID, outcome.Error)
	}
}

// execute runs job.Command through the shell, bounded by w.ExecutionCeiling,
// and turns the result into a queue.Outcome.
func (w *Worker) execute(job *model.Job) queue.Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), w.ExecutionCeiling)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", job.Command)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return queue.Outcome{Success: true}
	}

	if ctx.Err() != nil {
		return queue.Outcome{Success: false, Error: "execution-timeout"}
	}

	snippet := tail(stderr.String(), stderrSnippetLimit)
	if snippet == "" {
		snippet = err.Error()
	}
	return queue.Outcome{Success: false, Error: snippet}
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}

func (w *Worker) writeLiveness() error {
	rec := Liveness{WorkerID: w.ID, PID: os.Getpid(), StartedAt: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(w.LivenessPath, data, 0o644)
}

func (w *Worker) removeLiveness() {
	if err := os.Remove(w.LivenessPath); err != nil && !os.IsNotExist(err) {
		log.Printf("worker %s: remove liveness record: %v", w.ID, err)
	}
}
