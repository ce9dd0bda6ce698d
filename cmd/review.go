package cmd

import (
	"fmt"
	"strings"

	"github.com/masslessai/push-cli/internal/api"
	"github.com/masslessai/push-cli/internal/ui"
	"github.com/masslessai/push-cli/models"
	"github.com/spf13/cobra"
)

var reviewAllProjects bool

var reviewCmd = &cobra.Command{
	Use:   "review <query>",
	Short: "Search completed tasks",
	Long: `review searches your completed tasks by summary, content, or
transcript. The plain search surfaces active tasks first; review is the
other half of that coin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewAllProjects, "all-projects", false, "ignore project scoping")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")

	found, err := svc.Search(cmd.Context(), query, reviewAllProjects)
	if err != nil {
		return err
	}
	completed := found[:0:0]
	for _, t := range found {
		if t.Status == models.StatusCompleted {
			completed = append(completed, t)
		}
	}

	if isJSON() {
		if err := printJSON(struct {
			Query string        `json:"query"`
			Tasks []models.Task `json:"tasks"`
		}{query, completed}); err != nil {
			return err
		}
	}
	if len(completed) == 0 {
		return fmt.Errorf("%w: no completed tasks matching %q", api.ErrNotFound, query)
	}
	if isJSON() {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTaskList(completed, fmt.Sprintf("completed, search %q", query), false))
	return nil
}
