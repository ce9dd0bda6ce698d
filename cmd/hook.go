package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// hookCmd groups the agent lifecycle hooks. Hosts call these from their
// hook configuration; output is one short line the agent can surface.
var hookCmd = &cobra.Command{
	Use:    "hook",
	Short:  "Agent lifecycle hooks",
	Hidden: true,
}

var hookSessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Print the pending task count at session start",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		count, err := svc.CountPending(cmd.Context())
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(map[string]int{"pending": count})
		}
		switch count {
		case 0:
			fmt.Fprintln(cmd.OutOrStdout(), "No pending Push tasks.")
		case 1:
			fmt.Fprintln(cmd.OutOrStdout(), "You have 1 pending Push task. Run 'push' to see it.")
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "You have %d pending Push tasks. Run 'push' to see them.\n", count)
		}
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookSessionStartCmd)
	rootCmd.AddCommand(hookCmd)
}
