package cmd

import (
	"fmt"
	"sort"

	"github.com/TamannaDash/QueueCTLpy/internal/config"
	"github.com/TamannaDash/QueueCTLpy/internal/queue"
	"github.com/spf13/cobra"
)

// ConfigCmd implements `config get [--key KEY]` and `config set <key> <value>`.
func ConfigCmd(q *queue.Queue) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change queue settings",
	}

	var key string
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print one or all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key != "" {
				if !config.IsKnownKey(key) {
					return fmt.Errorf("%w: %s", config.ErrUnknownKey, key)
				}
				value, ok, err := q.ConfigGet(cmd.Context(), key)
				if err != nil {
					return fmt.Errorf("failed to read config: %w", err)
				}
				if !ok {
					value = config.Defaults()[key]
				}
				fmt.Println(value)
				return nil
			}

			all, err := q.ConfigAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s=%s\n", k, all[k])
			}
			return nil
		},
	}
	getCmd.Flags().StringVar(&key, "key", "", "Print only this key")

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := q.ConfigSet(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("failed to set config: %w", err)
			}
			fmt.Printf("%s=%s\n", args[0], args[1])
			return nil
		},
	}

	configCmd.AddCommand(getCmd)
	configCmd.AddCommand(setCmd)
	return configCmd
}
