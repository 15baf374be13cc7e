package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/TamannaDash/QueueCTLpy/internal/queue"
	"github.com/spf13/cobra"
)

// jobSpecJSON mirrors the JSON surface of `enqueue`: {"id"?, "command", "max_retries"?}.
type jobSpecJSON struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	MaxRetries *int   `json:"max_retries"`
}

// EnqueueCmd implements `enqueue <spec>`, accepting either a JSON object or
// a bare command string.
func EnqueueCmd(q *queue.Queue) *cobra.Command {
	var maxRetriesFlag int
	var maxRetriesSet bool

	cmd := &cobra.Command{
		Use:   "enqueue <spec>",
		Short: "Add a job to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := parseJobSpec(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-retries") {
				maxRetriesSet = true
			}
			if maxRetriesSet {
				spec.MaxRetries = &maxRetriesFlag
			}

			job, err := q.Enqueue(cmd.Context(), spec)
			if err != nil {
				return fmt.Errorf("failed to enqueue job: %w", err)
			}
			fmt.Println(job.ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxRetriesFlag, "max-retries", 0, "Override the retry budget for this job")
	return cmd
}

// parseJobSpec tries the JSON object surface first, falling back to
// treating the whole argument as a bare command string.
func parseJobSpec(raw string) (queue.Spec, error) {
	var parsed jobSpecJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil && looksLikeObject(raw) {
		if parsed.Command == "" {
			return queue.Spec{}, fmt.Errorf("invalid job JSON: missing 'command' field")
		}
		return queue.Spec{ID: parsed.ID, Command: parsed.Command, MaxRetries: parsed.MaxRetries}, nil
	}
	return queue.Spec{Command: raw}, nil
}

func looksLikeObject(raw string) bool {
	for _, r := range raw {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
