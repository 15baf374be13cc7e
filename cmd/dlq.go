package cmd

import (
	"errors"
	"fmt"

	"github.com/TamannaDash/QueueCTLpy/internal/queue"
	"github.com/TamannaDash/QueueCTLpy/internal/store"
	"github.com/spf13/cobra"
)

// DlqCmd implements `dlq list` and `dlq retry <id>`.
func DlqCmd(q *queue.Queue) *cobra.Command {
	dlqCmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and retry dead letter jobs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in the dead letter queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := q.DLQList(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list dead letter jobs: %w", err)
			}
			printJobTable(jobs)
			return nil
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Move a dead job back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := q.DLQRetry(cmd.Context(), args[0])
			switch {
			case errors.Is(err, store.ErrNotFound):
				return fmt.Errorf("job %s not found", args[0])
			case errors.Is(err, store.ErrNotInDLQ):
				return fmt.Errorf("job %s is not in the dead letter queue", args[0])
			case err != nil:
				return fmt.Errorf("failed to retry job %s: %w", args[0], err)
			}
			fmt.Printf("Job %s moved back to pending.\n", args[0])
			return nil
		},
	}

	dlqCmd.AddCommand(listCmd)
	dlqCmd.AddCommand(retryCmd)
	return dlqCmd
}
