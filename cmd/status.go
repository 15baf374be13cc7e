package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/TamannaDash/QueueCTLpy/internal/queue"
	"github.com/TamannaDash/QueueCTLpy/internal/supervisor"
	"github.com/spf13/cobra"
)

// StatusCmd implements `status`, which always runs the stuck-job sweep
// before reporting counts (see DESIGN.md's resolution of the
// status/--reset-stuck open question), then lists live workers.
func StatusCmd(q *queue.Queue, dbPath string) *cobra.Command {
	var resetStuck bool
	var stuckTimeoutOverride int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show job counts and live workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			stuckTimeout := stuckTimeoutOverride
			if !cmd.Flags().Changed("stuck-timeout") {
				values, err := q.Values(ctx)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				stuckTimeout = values.StuckTimeoutSeconds
			}

			olderThan := time.Now().UTC().Add(-time.Duration(stuckTimeout) * time.Second)
			recovered, err := q.ResetStuck(ctx, olderThan)
			if err != nil {
				return fmt.Errorf("failed to recover stuck jobs: %w", err)
			}
			if resetStuck || recovered > 0 {
				fmt.Printf("Recovered %d stuck job(s).\n", recovered)
			}

			counts, err := q.CountsByState(ctx)
			if err != nil {
				return fmt.Errorf("failed to get job counts: %w", err)
			}

			fmt.Println("--- Job Queue Status ---")
			if len(counts) == 0 {
				fmt.Println("No jobs in the queue.")
			} else {
				states := make([]string, 0, len(counts))
				for state := range counts {
					states = append(states, state)
				}
				sort.Strings(states)
				for _, state := range states {
					fmt.Printf("%s: %d\n", state, counts[state])
				}
			}

			workers, err := supervisor.Status(dbPath)
			if err != nil {
				return fmt.Errorf("failed to inspect workers: %w", err)
			}
			fmt.Println("\n--- Workers ---")
			if len(workers) == 0 {
				fmt.Println("No active workers.")
			} else {
				for _, w := range workers {
					fmt.Printf("worker %s: pid %d, started %s\n", w.WorkerID, w.PID, w.StartedAt.Format(time.RFC3339))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&resetStuck, "reset-stuck", false, "Report how many stuck jobs were recovered even if zero")
	cmd.Flags().IntVar(&stuckTimeoutOverride, "stuck-timeout", 0, "Override stuck-timeout-seconds for this invocation")
	return cmd
}
