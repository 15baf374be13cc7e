package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/TamannaDash/QueueCTLpy/internal/model"
	"github.com/TamannaDash/QueueCTLpy/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queuectl.db")
	s, err := store.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestEnqueue_GeneratesIDAndDefaultsMaxRetries(t *testing.T) {
	q := newTestQueue(t)
	job, err := q.Enqueue(context.Background(), Spec{Command: "echo hi"})
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	require.Equal(t, 3, job.MaxRetries)
	require.Equal(t, model.StatePending, job.State)
}

func TestEnqueue_ExplicitMaxRetriesOverridesDefault(t *testing.T) {
	q := newTestQueue(t)
	zero := 0
	job, err := q.Enqueue(context.Background(), Spec{Command: "echo hi", MaxRetries: &zero})
	require.NoError(t, err)
	require.Equal(t, 0, job.MaxRetries)
}

func TestEnqueue_RejectsEmptyCommand(t *testing.T) {
	q := newTestQueue(t)
	_, err := q.Enqueue(context.Background(), Spec{Command: ""})
	require.Error(t, err)
}

func TestEnqueue_RejectsNegativeMaxRetries(t *testing.T) {
	q := newTestQueue(t)
	negative := -1
	_, err := q.Enqueue(context.Background(), Spec{Command: "echo hi", MaxRetries: &negative})
	require.Error(t, err)
}

func TestReport_SuccessCompletesJob(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	job, err := q.Enqueue(ctx, Spec{Command: "echo hi"})
	require.NoError(t, err)

	claimed, err := q.Claim(ctx, "worker-1")
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)

	require.NoError(t, q.Report(ctx, claimed, Outcome{Success: true}))
	fetched, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateCompleted, fetched.State)
}

func TestReport_FailureWithBudgetLeftGoesBackToPending(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	two := 2
	job, err := q.Enqueue(ctx, Spec{Command: "false", MaxRetries: &two})
	require.NoError(t, err)

	claimed, err := q.Claim(ctx, "worker-1")
	require.NoError(t, err)

	require.NoError(t, q.Report(ctx, claimed, Outcome{Success: false, Error: "boom"}))
	fetched, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatePending, fetched.State)
	require.Equal(t, 1, fetched.Attempts)
	require.NotNil(t, fetched.NextRetryAt)
	require.True(t, fetched.NextRetryAt.After(time.Now().UTC()))
}

func TestReport_FailureExhaustsBudgetGoesDead(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	zero := 0
	job, err := q.Enqueue(ctx, Spec{Command: "false", MaxRetries: &zero})
	require.NoError(t, err)

	claimed, err := q.Claim(ctx, "worker-1")
	require.NoError(t, err)

	require.NoError(t, q.Report(ctx, claimed, Outcome{Success: false, Error: "boom"}))
	fetched, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateDead, fetched.State)
	require.Equal(t, 1, fetched.Attempts)
}

func TestDLQRetry_RevivesDeadJob(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	zero := 0
	job, err := q.Enqueue(ctx, Spec{Command: "false", MaxRetries: &zero})
	require.NoError(t, err)

	claimed, err := q.Claim(ctx, "worker-1")
	require.NoError(t, err)
	require.NoError(t, q.Report(ctx, claimed, Outcome{Success: false, Error: "boom"}))

	require.NoError(t, q.DLQRetry(ctx, job.ID))
	fetched, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatePending, fetched.State)
	require.Equal(t, 0, fetched.Attempts)
}

func TestResetStuck_RecoversAndAppliesRetryBranch(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	job, err := q.Enqueue(ctx, Spec{Command: "sleep 100"})
	require.NoError(t, err)

	claimed, err := q.Claim(ctx, "worker-1")
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)

	recovered, err := q.ResetStuck(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, recovered)

	fetched, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatePending, fetched.State)
}

func TestResetStuck_SkipsAlreadyResolvedJobs(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	job, err := q.Enqueue(ctx, Spec{Command: "echo hi"})
	require.NoError(t, err)

	claimed, err := q.Claim(ctx, "worker-1")
	require.NoError(t, err)
	require.NoError(t, q.Report(ctx, claimed, Outcome{Success: true}))

	// The job completed already; ResetStuck's window shouldn't touch it
	// even if the scan somehow included it, since it's no longer processing.
	recovered, err := q.ResetStuck(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 0, recovered)

	fetched, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateCompleted, fetched.State)
}

func TestConfigSet_ValidatesBeforePersisting(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.Error(t, q.ConfigSet(ctx, "max-retries", "not-a-number"))
	require.Error(t, q.ConfigSet(ctx, "unknown-key", "1"))
	require.NoError(t, q.ConfigSet(ctx, "backoff-base", "5"))

	value, ok, err := q.ConfigGet(ctx, "backoff-base")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "5", value)
}
