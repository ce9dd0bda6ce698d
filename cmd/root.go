package cmd

import (
	"fmt"
	"os"

	"github.com/masslessai/push-cli/internal/api"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is the CLI version, overridable at build time with -ldflags.
var version = "3.1.0"

// rootCmd is the entry point. A single positional argument is classified:
// reserved words are real subcommands and always win; a number (with or
// without '#') fetches that task directly; anything else is a search
// query; no argument lists active tasks for the current project.
var rootCmd = &cobra.Command{
	Use:   "push [task-number | search terms]",
	Short: "Fetch and work on voice-captured Push tasks",
	Long: `push syncs voice-captured todo items from the Push iOS app into your
coding session.

Without arguments it lists active tasks for the current project (scoped by
git remote). Give it a task number to fetch one task, or free text to
search across your tasks.

Examples:
  push                 # active tasks for this project
  push 427             # fetch task #427
  push "login bug"     # search tasks
  push all             # active tasks across all projects
  push connect         # link your Push account`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd, args)
	},
}

// Execute runs the CLI and returns the process exit code:
// 0 success, 1 not-found/no-tasks, 2 network or auth error.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, humanizeError(err))
	return api.ExitCode(err)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().Bool("json", false, "output machine-readable JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	addFetchFlags(rootCmd)
}

// humanizeError turns taxonomy errors into actionable messages.
func humanizeError(err error) string {
	switch {
	case isKind(err, api.ErrMissingCredentials):
		return "No Push account linked. Run 'push connect' to sign in."
	case isKind(err, api.ErrAuthInvalid):
		return "Your Push API key was rejected. Run 'push connect --reauth' to sign in again."
	case isKind(err, api.ErrNetwork):
		return fmt.Sprintf("Could not reach the Push backend: %v\nCheck your connection and retry.", err)
	default:
		return err.Error()
	}
}
