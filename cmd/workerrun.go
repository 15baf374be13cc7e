package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/TamannaDash/QueueCTLpy/internal/queue"
	"github.com/TamannaDash/QueueCTLpy/internal/store"
	"github.com/TamannaDash/QueueCTLpy/internal/worker"
	"github.com/spf13/cobra"
)

// WorkerRunCmd is the hidden entrypoint a supervisor-spawned subprocess
// actually runs: one worker's poll/claim/execute/report loop, with its own
// Store handle and its own signal handling for graceful shutdown.
func WorkerRunCmd() *cobra.Command {
	var workerID string
	var pollInterval time.Duration
	var dbPath string

	cmd := &cobra.Command{
		Use:    "__worker-run",
		Short:  "Internal: run a single worker loop (spawned by 'worker start')",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workerID == "" {
				return fmt.Errorf("--worker-id is required")
			}

			s, err := store.New(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer s.Close()

			q := queue.New(s)
			w := worker.New(workerID, q, pollInterval, filepath.Dir(dbPath))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				log.Printf("worker %s: received signal %v, shutting down", workerID, sig)
				cancel()
			}()

			return w.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&workerID, "worker-id", "", "Stable worker identity")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", time.Second, "Polling interval")
	cmd.Flags().StringVar(&dbPath, "db", "queuectl.db", "Path to the store file")
	return cmd
}
