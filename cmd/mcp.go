package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/masslessai/push-cli/internal/api"
	"github.com/masslessai/push-cli/internal/tasks"
	"github.com/masslessai/push-cli/internal/ui"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP stdio server",
	Long: `mcp exposes the task operations as MCP tools over stdio, for hosts
that prefer tool calls over shelling out to the CLI. stdout carries pure
JSON-RPC; diagnostics go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMCPServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// Tool parameter types. The SDK derives the input schema from these.

type listTasksParams struct {
	AllProjects    bool `json:"all_projects,omitempty"`
	IncludeBacklog bool `json:"include_backlog,omitempty"`
	Pinned         bool `json:"pinned,omitempty"`
	Refresh        bool `json:"refresh,omitempty"`
}

type fetchTaskParams struct {
	Number int `json:"number"`
}

type startTaskParams struct {
	Task string `json:"task"`
}

type completeTaskParams struct {
	Task    string `json:"task"`
	Comment string `json:"comment,omitempty"`
}

func runMCPServer(ctx context.Context) error {
	fmt.Fprintln(os.Stderr, "push MCP server starting...")

	svc, err := newService()
	if err != nil && !isKind(err, api.ErrMissingCredentials) {
		return err
	}
	if err != nil {
		// Let the server start so the host gets a readable error from the
		// first tool call instead of a dead transport.
		fmt.Fprintln(os.Stderr, "warning: no Push account linked; tool calls will fail until 'push connect' runs")
	}

	impl := &mcpsdk.Implementation{
		Name:    "push",
		Version: version,
	}
	serverOpts := &mcpsdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.InitializedParams) {
			fmt.Fprintln(os.Stderr, "MCP connection established")
		},
	}
	server := mcpsdk.NewServer(impl, serverOpts)

	listTool := &mcpsdk.Tool{
		Name:        "list_tasks",
		Description: "List active voice-captured tasks for the current project. Set all_projects to list across projects, include_backlog to include deferred tasks, pinned for focused tasks only, refresh to bypass the local cache.",
	}
	mcpsdk.AddTool(server, listTool, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[listTasksParams]) (*mcpsdk.CallToolResultFor[any], error) {
		if svc == nil {
			return mcpErrorResult(api.ErrMissingCredentials)
		}
		res, err := svc.ListActive(ctx, tasks.ListOptions{
			AllProjects:    params.Arguments.AllProjects,
			IncludeBacklog: params.Arguments.IncludeBacklog,
			PinnedOnly:     params.Arguments.Pinned,
			Refresh:        params.Arguments.Refresh,
		})
		if err != nil {
			return mcpErrorResult(err)
		}
		if len(res.Tasks) == 0 {
			return mcpTextResult("No active tasks for " + scopeLabel(res.Scope) + ".")
		}
		return mcpTextResult(ui.RenderTaskList(res.Tasks, scopeLabel(res.Scope), res.Stale))
	})

	fetchTool := &mcpsdk.Tool{
		Name:        "fetch_task",
		Description: "Fetch one task by its display number. Returns the full content and the original voice transcript.",
	}
	mcpsdk.AddTool(server, fetchTool, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[fetchTaskParams]) (*mcpsdk.CallToolResultFor[any], error) {
		if svc == nil {
			return mcpErrorResult(api.ErrMissingCredentials)
		}
		if params.Arguments.Number <= 0 {
			return mcpErrorResult(fmt.Errorf("%w: number must be positive", api.ErrValidation))
		}
		task, err := svc.FetchByNumber(ctx, params.Arguments.Number)
		if err != nil {
			return mcpErrorResult(err)
		}
		return mcpTextResult(ui.RenderTask(task))
	})

	startTool := &mcpsdk.Tool{
		Name:        "start_task",
		Description: "Mark a task started and claim it for this machine. task is a display number (\"427\") or a task id.",
	}
	mcpsdk.AddTool(server, startTool, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[startTaskParams]) (*mcpsdk.CallToolResultFor[any], error) {
		if svc == nil {
			return mcpErrorResult(api.ErrMissingCredentials)
		}
		task, err := svc.Start(ctx, params.Arguments.Task)
		if err != nil {
			return mcpErrorResult(err)
		}
		return mcpTextResult(fmt.Sprintf("Task %s started: %s", task.Ref(), task.Summary))
	})

	completeTool := &mcpsdk.Tool{
		Name:        "complete_task",
		Description: "Mark a task completed, with an optional comment (max 500 characters). task is a display number or a task id.",
	}
	mcpsdk.AddTool(server, completeTool, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[completeTaskParams]) (*mcpsdk.CallToolResultFor[any], error) {
		if svc == nil {
			return mcpErrorResult(api.ErrMissingCredentials)
		}
		task, err := svc.Complete(ctx, params.Arguments.Task, params.Arguments.Comment)
		if err != nil {
			return mcpErrorResult(err)
		}
		return mcpTextResult(fmt.Sprintf("Task %s completed: %s", task.Ref(), task.Summary))
	})

	if err := server.Run(ctx, mcpsdk.NewStdioTransport()); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func mcpTextResult(text string) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}, nil
}

// mcpErrorResult reports failure in-band so the host can read it; protocol
// errors are reserved for transport problems.
func mcpErrorResult(err error) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "Error: " + humanizeError(err)}},
		IsError: true,
	}, nil
}
