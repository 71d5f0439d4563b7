// Package tracker owns the application state: the stored task collection and
// the renderer that turns it into images. Front ends (CLI, web, MCP) share
// one Tracker instead of global variables.
package tracker

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/ldi/taskgraph/internal/config"
	"github.com/ldi/taskgraph/internal/db"
	"github.com/ldi/taskgraph/internal/graph"
	"github.com/ldi/taskgraph/internal/logging"
	"github.com/ldi/taskgraph/internal/tasks"
	"github.com/ldi/taskgraph/pkg/models"
)

type Tracker struct {
	store    *db.DB
	renderer *graph.Renderer
	outputs  []graph.Output
	logger   *log.Logger

	// renderMu serializes renders; the layout backend and the output files
	// are shared.
	renderMu sync.Mutex
}

// New returns a tracker over store. outputs are the files written by Render.
func New(store *db.DB, renderer *graph.Renderer, outputs []graph.Output, logger *log.Logger) *Tracker {
	return &Tracker{
		store:    store,
		renderer: renderer,
		outputs:  outputs,
		logger:   logging.OrDiscard(logger),
	}
}

// Outputs lists the image files a render writes for cfg.
func Outputs(cfg *config.Config) []graph.Output {
	outs := make([]graph.Output, 0, len(cfg.Formats))
	for _, f := range cfg.Formats {
		outs = append(outs, graph.Output{Format: f, Path: cfg.OutputPath(f)})
	}
	return outs
}

// RendererOptions maps the graph settings of cfg.
func RendererOptions(cfg *config.Config) graph.Options {
	return graph.Options{
		RankDir: cfg.RankDir,
		Palette: graph.Palette{Done: cfg.DoneColor, Todo: cfg.TodoColor},
	}
}

// Store returns the underlying database.
func (t *Tracker) Store() *db.DB {
	return t.store
}

// Renderer returns the graph renderer.
func (t *Tracker) Renderer() *graph.Renderer {
	return t.renderer
}

// Tasks returns the current collection in input order.
func (t *Tracker) Tasks(ctx context.Context) ([]models.Task, error) {
	return t.store.ListTasks(ctx)
}

// Task returns the task with id, or nil.
func (t *Tracker) Task(ctx context.Context, id int) (*models.Task, error) {
	return t.store.GetTask(ctx, id)
}

// Replace validates list and swaps it in as the current collection. An
// invalid list leaves the stored collection untouched.
func (t *Tracker) Replace(ctx context.Context, source string, list []models.Task) (int64, error) {
	if err := tasks.Validate(list); err != nil {
		return 0, err
	}
	rev, err := t.store.ReplaceTasks(ctx, source, list)
	if err != nil {
		return 0, err
	}
	t.logger.Info("tasks loaded", "source", source, "count", len(list), "revision", rev)
	if dangling := tasks.DanglingReferences(list); len(dangling) > 0 {
		t.logger.Warn("dependencies reference unknown tasks", "ids", dangling)
	}
	return rev, nil
}

// ImportCSV loads the CSV file at path and replaces the collection with it.
func (t *Tracker) ImportCSV(ctx context.Context, path string) (int64, error) {
	list, err := tasks.LoadCSV(path)
	if err != nil {
		return 0, err
	}
	return t.Replace(ctx, path, list)
}

// ImportCSVReader is ImportCSV for an already open stream; source names it in
// the revision history.
func (t *Tracker) ImportCSVReader(ctx context.Context, source string, r io.Reader) (int64, error) {
	list, err := tasks.ReadCSV(r)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", source, err)
	}
	return t.Replace(ctx, source, list)
}

// Render draws the current collection into every configured output file.
func (t *Tracker) Render(ctx context.Context) (*graph.Result, error) {
	list, err := t.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return t.RenderTasks(ctx, list)
}

// RenderTasks draws list into the configured outputs without storing it.
func (t *Tracker) RenderTasks(ctx context.Context, list []models.Task) (*graph.Result, error) {
	t.renderMu.Lock()
	defer t.renderMu.Unlock()

	logger := t.logger.With("render", uuid.NewString())
	logger.Debug("render started", "tasks", len(list), "backend", t.renderer.Backend().Name())

	res, err := t.renderer.Render(ctx, list, t.outputs)
	if err != nil {
		logger.Error("render failed", "err", err)
		return nil, err
	}
	logger.Info("graph rendered",
		"nodes", res.Stats.Nodes,
		"edges", res.Stats.Edges,
		"files", res.Files,
	)
	return res, nil
}

// DOT returns the DOT source of the current collection.
func (t *Tracker) DOT(ctx context.Context) (string, error) {
	list, err := t.store.ListTasks(ctx)
	if err != nil {
		return "", err
	}
	dot, _, err := t.renderer.DOT(list)
	return dot, err
}

// Layout renders prepared DOT source in memory, serialized with file renders.
func (t *Tracker) Layout(ctx context.Context, dot, format string) ([]byte, error) {
	t.renderMu.Lock()
	defer t.renderMu.Unlock()
	return t.renderer.Layout(ctx, dot, format)
}

// Convert is the batch path: it reads the CSV at csvPath, stores it, writes
// the structured dump to yamlPath and renders the configured images.
func (t *Tracker) Convert(ctx context.Context, csvPath, yamlPath string) (*graph.Result, error) {
	list, err := tasks.LoadCSV(csvPath)
	if err != nil {
		return nil, err
	}
	if _, err := t.Replace(ctx, csvPath, list); err != nil {
		return nil, err
	}
	if yamlPath != "" {
		if err := tasks.SaveYAML(yamlPath, list); err != nil {
			return nil, fmt.Errorf("failed to write dump: %w", err)
		}
		t.logger.Info("wrote dump", "path", yamlPath)
	}
	return t.RenderTasks(ctx, list)
}
