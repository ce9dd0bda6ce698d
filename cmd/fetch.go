package cmd

import (
	"fmt"
	"strings"

	"github.com/masslessai/push-cli/internal/api"
	"github.com/masslessai/push-cli/internal/tasks"
	"github.com/masslessai/push-cli/internal/ui"
	"github.com/masslessai/push-cli/models"
	"github.com/spf13/cobra"
)

// fetchFlags are the root-command flags. Kept in a struct rather than
// package-level vars so tests can reset them.
type fetchFlags struct {
	allProjects    bool
	backlogOnly    bool
	includeBacklog bool
	pinned         bool
	refresh        bool
	search         string
	markCompleted  string
	comment        string
}

var fetchOpts fetchFlags

func addFetchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&fetchOpts.allProjects, "all-projects", false, "ignore project scoping")
	f.BoolVar(&fetchOpts.backlogOnly, "backlog", false, "show only backlog tasks")
	f.BoolVar(&fetchOpts.includeBacklog, "include-backlog", false, "include backlog tasks in the listing")
	f.BoolVar(&fetchOpts.pinned, "pinned", false, "show only pinned tasks (falls back to all when none are pinned)")
	f.BoolVar(&fetchOpts.refresh, "refresh", false, "bypass the local cache")
	f.StringVar(&fetchOpts.search, "search", "", "search tasks matching the query")
	f.StringVar(&fetchOpts.markCompleted, "mark-completed", "", "mark the given task completed")
	f.StringVar(&fetchOpts.comment, "completion-comment", "", "comment to attach with --mark-completed (max 500 chars)")
}

// runFetch is the root dispatch. Reserved words never reach it: cobra
// routes them to their subcommands first. What remains is classified as
// number, search text, or the empty listing.
func runFetch(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		trackCommand("fetch", err)
		return err
	}
	var runErr error
	switch {
	case fetchOpts.markCompleted != "":
		runErr = completeTask(cmd, svc, fetchOpts.markCompleted, fetchOpts.comment)
	case fetchOpts.search != "":
		runErr = searchTasks(cmd, svc, fetchOpts.search)
	case len(args) == 0:
		runErr = listTasks(cmd, svc)
	default:
		arg := strings.TrimSpace(strings.Join(args, " "))
		if arg == "all" {
			fetchOpts.allProjects = true
			runErr = listTasks(cmd, svc)
		} else if n, ok := tasks.ParseNumber(arg); ok {
			runErr = fetchTask(cmd, svc, n)
		} else {
			runErr = searchTasks(cmd, svc, arg)
		}
	}
	trackCommand("fetch", runErr)
	return runErr
}

func listTasks(cmd *cobra.Command, svc *tasks.Service) error {
	res, err := svc.ListActive(cmd.Context(), tasks.ListOptions{
		AllProjects:    fetchOpts.allProjects,
		IncludeBacklog: fetchOpts.includeBacklog || fetchOpts.backlogOnly,
		PinnedOnly:     fetchOpts.pinned,
		Refresh:        fetchOpts.refresh,
	})
	if err != nil {
		return err
	}
	if fetchOpts.backlogOnly {
		kept := res.Tasks[:0:0]
		for _, t := range res.Tasks {
			if t.IsBacklog {
				kept = append(kept, t)
			}
		}
		res.Tasks = kept
	}

	if isJSON() {
		if err := printJSON(res); err != nil {
			return err
		}
	} else if len(res.Tasks) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTaskList(res.Tasks, scopeLabel(res.Scope), res.Stale))
	}

	if len(res.Tasks) == 0 {
		return fmt.Errorf("%w: no active tasks for %s", api.ErrNotFound, scopeLabel(res.Scope))
	}
	return nil
}

func fetchTask(cmd *cobra.Command, svc *tasks.Service, n int) error {
	task, err := svc.FetchByNumber(cmd.Context(), n)
	if err != nil {
		if isKind(err, api.ErrNotFound) {
			return fmt.Errorf("%w: task #%d", api.ErrNotFound, n)
		}
		return err
	}
	if isJSON() {
		return printJSON(task)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTask(task))
	return nil
}

func searchTasks(cmd *cobra.Command, svc *tasks.Service, query string) error {
	found, err := svc.Search(cmd.Context(), query, fetchOpts.allProjects)
	if err != nil {
		return err
	}
	if isJSON() {
		if err := printJSON(struct {
			Query string        `json:"query"`
			Tasks []models.Task `json:"tasks"`
		}{query, found}); err != nil {
			return err
		}
	}
	if len(found) == 0 {
		return fmt.Errorf("%w: no tasks matching %q", api.ErrNotFound, query)
	}
	if isJSON() {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTaskList(found, fmt.Sprintf("search %q", query), false))
	return nil
}

func completeTask(cmd *cobra.Command, svc *tasks.Service, ref, comment string) error {
	task, err := svc.Complete(cmd.Context(), ref, comment)
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(task)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Task %s completed: %s\n",
		ui.StyleSuccess.Render("✓"), task.Ref(), task.Summary)
	return nil
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "all projects"
	}
	return scope
}
