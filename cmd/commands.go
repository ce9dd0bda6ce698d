package cmd

import (
	"fmt"

	"github.com/masslessai/push-cli/internal/ui"
	"github.com/spf13/cobra"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Show the command reference",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		tbl := ui.Table{Headers: []string{"Command", "What it does"}, MaxWidth: 56}
		tbl.Rows = [][]string{
			{"push", "List active tasks for this project"},
			{"push all", "List active tasks across all projects"},
			{"push 427", "Fetch task #427"},
			{"push \"login bug\"", "Search tasks"},
			{"push --mark-completed 427", "Mark task #427 completed"},
			{"push review", "Search completed tasks"},
			{"push connect", "Link your Push account"},
			{"push status", "Account, daemon, and project status"},
			{"push watch", "Live executor daemon view"},
			{"push setting", "Get or set behavioral settings"},
			{"push hook session-start", "Pending-task count for agent hooks"},
			{"push mcp", "Run the MCP stdio server"},
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.StyleTitle.Render("Push commands")+"\n\n"+tbl.Render())
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}
