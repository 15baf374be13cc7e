package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TamannaDash/QueueCTLpy/internal/model"
	"github.com/TamannaDash/QueueCTLpy/internal/queue"
	"github.com/TamannaDash/QueueCTLpy/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T) (*Worker, *queue.Queue) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "queuectl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	q := queue.New(s)
	w := New("worker-1", q, 10*time.Millisecond, dir)
	return w, q
}

func TestExecute_SuccessReturnsSuccessOutcome(t *testing.T) {
	w, _ := newTestWorker(t)
	job := &model.Job{ID: "job-1", Command: "exit 0"}
	outcome := w.execute(job)
	require.True(t, outcome.Success)
	require.Empty(t, outcome.Error)
}

func TestExecute_FailureCapturesStderr(t *testing.T) {
	w, _ := newTestWorker(t)
	job := &model.Job{ID: "job-1", Command: "echo boom 1>&2; exit 1"}
	outcome := w.execute(job)
	require.False(t, outcome.Success)
	require.Contains(t, outcome.Error, "boom")
}

func TestExecute_FailureFallsBackToErrorWhenNoStderr(t *testing.T) {
	w, _ := newTestWorker(t)
	job := &model.Job{ID: "job-1", Command: "exit 1"}
	outcome := w.execute(job)
	require.False(t, outcome.Success)
	require.NotEmpty(t, outcome.Error)
}

func TestExecute_TimeoutReportsExecutionTimeout(t *testing.T) {
	w, _ := newTestWorker(t)
	w.ExecutionCeiling = 20 * time.Millisecond
	job := &model.Job{ID: "job-1", Command: "sleep 5"}
	outcome := w.execute(job)
	require.False(t, outcome.Success)
	require.Equal(t, "execution-timeout", outcome.Error)
}

func TestRun_WritesAndRemovesLivenessRecord(t *testing.T) {
	w, _ := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for {
		if _, err := os.Stat(w.LivenessPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("liveness record was never written")
		}
		time.Sleep(5 * time.Millisecond)
	}

	data, err := os.ReadFile(w.LivenessPath)
	require.NoError(t, err)
	var rec Liveness
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, "worker-1", rec.WorkerID)
	require.Equal(t, os.Getpid(), rec.PID)

	cancel()
	require.NoError(t, <-done)

	_, err = os.Stat(w.LivenessPath)
	require.True(t, os.IsNotExist(err))
}

func TestPollOnce_ClaimsExecutesAndReports(t *testing.T) {
	w, q := newTestWorker(t)
	job, err := q.Enqueue(context.Background(), queue.Spec{Command: "exit 0"})
	require.NoError(t, err)

	w.pollOnce()

	fetched, err := q.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateCompleted, fetched.State)
}
