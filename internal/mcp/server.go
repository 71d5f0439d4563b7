package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ldi/taskgraph/internal/tracker"
	"github.com/ldi/taskgraph/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// NewServer creates a new MCP server.
func NewServer(t *tracker.Tracker) *server.MCPServer {
	s := server.NewMCPServer("taskgraph", Version)

	// Reading
	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List all tasks in their original order."),
		mcp.WithString("status", mcp.Description("Filter by status (e.g. done, todo)")),
		mcp.WithString("assignee", mcp.Description("Filter by assignee")),
	), listTasksHandler(t))

	s.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a single task by id."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), getTaskHandler(t))

	s.AddTool(mcp.NewTool("get_dependents",
		mcp.WithDescription("Get the tasks that list the given task as a dependency."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), getDependentsHandler(t))

	// Loading and editing
	s.AddTool(mcp.NewTool("import_csv",
		mcp.WithDescription("Replace all tasks with the contents of a CSV file (header row first)."),
		mcp.WithString("path", mcp.Description("Path to the CSV file"), mcp.Required()),
	), importCSVHandler(t))

	s.AddTool(mcp.NewTool("set_task_status",
		mcp.WithDescription("Set the status of a task. 'done' marks it complete; anything else is incomplete."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("status", mcp.Description("New status"), mcp.Required()),
	), setTaskStatusHandler(t))

	// Graph
	s.AddTool(mcp.NewTool("render_graph",
		mcp.WithDescription("Render the dependency graph to the configured image files."),
	), renderGraphHandler(t))

	s.AddTool(mcp.NewTool("get_graph_dot",
		mcp.WithDescription("Get the dependency graph as Graphviz DOT source."),
	), getGraphDOTHandler(t))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func listTasksHandler(t *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := mcp.ParseString(request, "status", "")
		assignee := mcp.ParseString(request, "assignee", "")

		list, err := t.Tasks(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		filtered := make([]models.Task, 0, len(list))
		for _, task := range list {
			if status != "" && string(task.Status) != status {
				continue
			}
			if assignee != "" && task.Assignee != assignee {
				continue
			}
			filtered = append(filtered, task)
		}

		return jsonResult(map[string]interface{}{"tasks": filtered})
	}
}

func getTaskHandler(t *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseInt(request, "id", -1)

		task, err := t.Task(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if task == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Task with id %d not found", id)), nil
		}

		return jsonResult(task)
	}
}

func getDependentsHandler(t *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseInt(request, "id", -1)

		dependents, err := t.Store().GetDependents(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(map[string]interface{}{"dependents": dependents})
	}
}

func importCSVHandler(t *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := mcp.ParseString(request, "path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}

		rev, err := t.ImportCSV(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		count, err := t.Store().CountTasks(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Imported %d tasks from %s (revision %d)", count, path, rev)), nil
	}
}

func setTaskStatusHandler(t *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseInt(request, "id", -1)
		status := strings.TrimSpace(mcp.ParseString(request, "status", ""))
		if status == "" {
			return mcp.NewToolResultError("status is required"), nil
		}

		list, err := t.Tasks(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		found := false
		for i := range list {
			if list[i].ID == id {
				list[i].Status = models.TaskStatus(status)
				found = true
				break
			}
		}
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("Task with id %d not found", id)), nil
		}

		if _, err := t.Replace(ctx, "mcp", list); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d status set to %s", id, status)), nil
	}
}

func renderGraphHandler(t *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := t.Render(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(map[string]interface{}{
			"files":    res.Files,
			"nodes":    res.Stats.Nodes,
			"edges":    res.Stats.Edges,
			"cycles":   res.Cycles,
			"dangling": res.Dangling,
		})
	}
}

func getGraphDOTHandler(t *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dot, err := t.DOT(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(dot), nil
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
