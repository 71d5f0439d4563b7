package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ldi/taskgraph/internal/config"
	"github.com/ldi/taskgraph/internal/db"
	"github.com/ldi/taskgraph/internal/graph"
	"github.com/ldi/taskgraph/internal/tracker"
	"github.com/ldi/taskgraph/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const sampleCSV = `id,title,assignee,priority,estimate,start,end,dependencies,status,description
1,Design,alice,1,3,2024-01-01,2024-01-05,,done,Design the thing
2,Build,bob,2,5,2024-01-06,2024-01-10,1,todo,Build it
3,Test,alice,2,2,2024-01-11,2024-01-12,1;2,todo,Test it
`

type fakeBackend struct{}

func (fakeBackend) Name() string { return "fake" }

func (fakeBackend) Layout(ctx context.Context, dot []byte, format string) ([]byte, error) {
	return []byte("image:" + format), nil
}

func newTestTracker(t *testing.T) (*tracker.Tracker, string) {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Init(context.Background()); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	dir := t.TempDir()
	cfg := config.Default()
	cfg.OutputDir = dir
	renderer := graph.NewRenderer(fakeBackend{}, tracker.RendererOptions(cfg), nil)
	return tracker.New(database, renderer, tracker.Outputs(cfg), nil), dir
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	if tool == nil {
		t.Fatalf("Tool %s not found", name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(context.Background(), req)
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("Empty tool result")
	}
	return result.Content[0].(mcp.TextContent).Text
}

func TestServerInitialization(t *testing.T) {
	tr, _ := newTestTracker(t)

	s := NewServer(tr)
	stdio := server.NewStdioServer(s)

	r, w := io.Pipe()
	stdout := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- stdio.Listen(ctx, r, stdout)
	}()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}

	rawReq := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  initReq.Params,
	}

	data, err := json.Marshal(rawReq)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	w.Write(data)
	w.Write([]byte("\n"))

	// Give it a moment to process
	time.Sleep(200 * time.Millisecond)

	if stdout.Len() == 0 {
		t.Fatal("Expected response from server, got none")
	}

	var resp struct {
		JSONRPC string `json:"jsonrpc"`
		ID      int    `json:"id"`
		Result  struct {
			ServerInfo struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
		} `json:"result"`
	}

	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v\nOutput: %s", err, stdout.String())
	}

	if resp.ID != 1 {
		t.Errorf("Expected id 1, got %v", resp.ID)
	}
	if resp.Result.ServerInfo.Name != "taskgraph" {
		t.Errorf("Expected server name taskgraph, got %v", resp.Result.ServerInfo.Name)
	}
}

func TestToolHandlers(t *testing.T) {
	tr, dir := newTestTracker(t)
	s := NewServer(tr)

	csvPath := filepath.Join(t.TempDir(), "tasks.csv")
	if err := os.WriteFile(csvPath, []byte(sampleCSV), 0644); err != nil {
		t.Fatalf("Failed to write CSV: %v", err)
	}

	t.Run("import_csv", func(t *testing.T) {
		result := callTool(t, s, "import_csv", map[string]interface{}{"path": csvPath})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}
		if text := resultText(t, result); !strings.Contains(text, "Imported 3 tasks") {
			t.Errorf("Unexpected result %q", text)
		}
	})

	t.Run("import_csv missing file", func(t *testing.T) {
		result := callTool(t, s, "import_csv", map[string]interface{}{"path": filepath.Join(dir, "nope.csv")})
		if !result.IsError {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("list_tasks", func(t *testing.T) {
		result := callTool(t, s, "list_tasks", map[string]interface{}{"assignee": "alice"})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		var resp struct {
			Tasks []models.Task `json:"tasks"`
		}
		if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(resp.Tasks) != 2 || resp.Tasks[0].ID != 1 || resp.Tasks[1].ID != 3 {
			t.Errorf("Expected tasks 1 and 3, got %+v", resp.Tasks)
		}
	})

	t.Run("get_task", func(t *testing.T) {
		result := callTool(t, s, "get_task", map[string]interface{}{"id": 3.0})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}
		var task models.Task
		if err := json.Unmarshal([]byte(resultText(t, result)), &task); err != nil {
			t.Fatalf("Failed to unmarshal task: %v", err)
		}
		if task.Title != "Test" || len(task.Dependencies) != 2 {
			t.Errorf("Unexpected task %+v", task)
		}

		missing := callTool(t, s, "get_task", map[string]interface{}{"id": 42.0})
		if !missing.IsError {
			t.Error("Expected error for missing task")
		}
	})

	t.Run("get_dependents", func(t *testing.T) {
		result := callTool(t, s, "get_dependents", map[string]interface{}{"id": 1.0})
		var resp struct {
			Dependents []models.Task `json:"dependents"`
		}
		if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(resp.Dependents) != 2 {
			t.Errorf("Expected 2 dependents of task 1, got %d", len(resp.Dependents))
		}
	})

	t.Run("set_task_status", func(t *testing.T) {
		result := callTool(t, s, "set_task_status", map[string]interface{}{"id": 2.0, "status": "done"})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}
		task, err := tr.Task(context.Background(), 2)
		if err != nil {
			t.Fatalf("Task failed: %v", err)
		}
		if task.Status != models.TaskStatusDone {
			t.Errorf("Expected status done, got %s", task.Status)
		}
	})

	t.Run("get_graph_dot", func(t *testing.T) {
		result := callTool(t, s, "get_graph_dot", nil)
		text := resultText(t, result)
		if !strings.Contains(text, "digraph") || !regexp.MustCompile(`\b2\s*->\s*3\b`).MatchString(text) {
			t.Errorf("Unexpected DOT:\n%s", text)
		}
	})

	t.Run("render_graph", func(t *testing.T) {
		result := callTool(t, s, "render_graph", nil)
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}
		if _, err := os.Stat(filepath.Join(dir, "output.png")); err != nil {
			t.Errorf("Expected output.png: %v", err)
		}
	})
}
