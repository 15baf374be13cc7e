// Package cmd wires the cobra command tree for queuectl.
package cmd

import (
	"log"

	"github.com/TamannaDash/QueueCTLpy/internal/queue"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "queuectl",
	Short: "A CLI-based background job queue",
}

// Execute builds and runs the full command tree against q, whose
// underlying store lives at dbPath.
func Execute(q *queue.Queue, dbPath string) {
	rootCmd.AddCommand(EnqueueCmd(q))
	rootCmd.AddCommand(WorkerCmd(q, dbPath))
	rootCmd.AddCommand(WorkerRunCmd())
	rootCmd.AddCommand(StatusCmd(q, dbPath))
	rootCmd.AddCommand(ListCmd(q))
	rootCmd.AddCommand(DlqCmd(q))
	rootCmd.AddCommand(ConfigCmd(q))

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
