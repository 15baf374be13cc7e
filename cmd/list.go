package cmd

import (
	"fmt"
	"text/tabwriter"

	"os"

	"github.com/TamannaDash/QueueCTLpy/internal/model"
	"github.com/TamannaDash/QueueCTLpy/internal/queue"
	"github.com/spf13/cobra"
)

var validListStates = map[string]bool{
	string(model.StatePending):    true,
	string(model.StateProcessing): true,
	string(model.StateCompleted):  true,
	string(model.StateDead):       true,
}

// ListCmd implements `list [--state STATE]`.
func ListCmd(q *queue.Queue) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if state != "" && !validListStates[state] {
				return fmt.Errorf("invalid state %q: must be one of pending, processing, completed, dead", state)
			}

			jobs, err := q.List(cmd.Context(), state)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}
			printJobTable(jobs)
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "Filter by state (pending, processing, completed, dead)")
	return cmd
}

func printJobTable(jobs []model.Job) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tSTATE\tATTEMPTS\tMAX_RETRIES\tCREATED_AT\tERROR")
	for _, job := range jobs {
		errMsg := ""
		if job.ErrorMessage != nil {
			errMsg = *job.ErrorMessage
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			job.ID, job.State, job.Attempts, job.MaxRetries,
			job.CreatedAt.Format("2006-01-02T15:04:05Z"), errMsg)
	}
}
