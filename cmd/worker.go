package cmd

import (
	"fmt"
	"time"

	"github.com/TamannaDash/QueueCTLpy/internal/queue"
	"github.com/TamannaDash/QueueCTLpy/internal/supervisor"
	"github.com/spf13/cobra"
)

// WorkerCmd implements `worker start`/`worker stop`.
func WorkerCmd(q *queue.Queue, dbPath string) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage worker processes",
	}

	var count int
	var pollIntervalFlag float64

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start one or more worker processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			pollInterval := time.Duration(pollIntervalFlag * float64(time.Second))
			if !cmd.Flags().Changed("poll-interval") {
				values, err := q.Values(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				pollInterval = time.Duration(values.PollIntervalSeconds * float64(time.Second))
			}

			records, err := supervisor.Start(dbPath, count, pollInterval)
			if err != nil {
				return fmt.Errorf("failed to start workers: %w", err)
			}
			fmt.Printf("Started %d worker(s).\n", len(records))
			for _, rec := range records {
				fmt.Printf("  worker %s (pid %d)\n", rec.WorkerID, rec.PID)
			}
			return nil
		},
	}
	startCmd.Flags().IntVar(&count, "count", 1, "Number of workers to start")
	startCmd.Flags().Float64Var(&pollIntervalFlag, "poll-interval", 1.0, "Polling interval in seconds")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop all running worker processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := supervisor.Stop(dbPath)
			if err != nil {
				return fmt.Errorf("failed to stop workers: %w", err)
			}
			fmt.Printf("Stopped %d worker(s).\n", n)
			return nil
		},
	}

	workerCmd.AddCommand(startCmd)
	workerCmd.AddCommand(stopCmd)
	return workerCmd
}
