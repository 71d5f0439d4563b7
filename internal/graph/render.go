package graph

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/ldi/taskgraph/internal/fsutil"
	"github.com/ldi/taskgraph/internal/logging"
	"github.com/ldi/taskgraph/internal/tasks"
	"github.com/ldi/taskgraph/pkg/models"
)

// Output names one image file to produce.
type Output struct {
	Format string
	Path   string
}

// Result describes a finished render.
type Result struct {
	DOT      string
	Stats    Stats
	Files    []string
	Cycles   [][]string
	Dangling []string
}

// Renderer builds graphs and lays them out with a Backend.
type Renderer struct {
	backend Backend
	opts    Options
	logger  *log.Logger
}

// NewRenderer returns a renderer. A nil backend means the dot binary on PATH.
func NewRenderer(backend Backend, opts Options, logger *log.Logger) *Renderer {
	if backend == nil {
		backend = &DotBackend{}
	}
	return &Renderer{
		backend: backend,
		opts:    opts.withDefaults(),
		logger:  logging.OrDiscard(logger),
	}
}

// Backend returns the layout backend in use.
func (r *Renderer) Backend() Backend {
	return r.backend
}

// DOT builds the graph for list and returns it as DOT source.
func (r *Renderer) DOT(list []models.Task) (string, Stats, error) {
	g, err := Build(list, r.opts)
	if err != nil {
		return "", Stats{}, err
	}
	// g.String() reports serialization failures as text; WriteAst surfaces them.
	tree, err := g.WriteAst()
	if err != nil {
		return "", Stats{}, fmt.Errorf("failed to serialize graph: %w", err)
	}
	return tree.String(), StatsOf(g, list), nil
}

// Image builds the graph for list and lays it out in a single format,
// without touching the filesystem.
func (r *Renderer) Image(ctx context.Context, list []models.Task, format string) ([]byte, error) {
	dot, _, err := r.DOT(list)
	if err != nil {
		return nil, err
	}
	return r.Layout(ctx, dot, format)
}

// Layout runs the backend on prepared DOT source.
func (r *Renderer) Layout(ctx context.Context, dot, format string) ([]byte, error) {
	if format == "dot" {
		return []byte(dot), nil
	}
	return r.backend.Layout(ctx, []byte(dot), format)
}

// Render builds the graph and writes every output. All formats are laid out
// and staged as temporary files before any output is renamed into place, so
// a construction, backend or write failure leaves previous images untouched.
// The final renames run one after another; a rename failure can leave
// earlier outputs replaced and later ones at their previous content.
func (r *Renderer) Render(ctx context.Context, list []models.Task, outputs []Output) (*Result, error) {
	if len(outputs) == 0 {
		return nil, fmt.Errorf("no outputs requested")
	}

	dot, stats, err := r.DOT(list)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("graph built", "nodes", stats.Nodes, "placeholders", stats.Placeholders, "edges", stats.Edges)

	res := &Result{
		DOT:      dot,
		Stats:    stats,
		Cycles:   FindCycles(list),
		Dangling: tasks.DanglingReferences(list),
	}
	for _, c := range res.Cycles {
		r.logger.Warn("dependency cycle", "tasks", c)
	}
	if len(res.Dangling) > 0 {
		r.logger.Warn("dependencies reference unknown tasks", "ids", res.Dangling)
	}

	images := make([][]byte, len(outputs))
	for i, out := range outputs {
		data, err := r.Layout(ctx, dot, out.Format)
		if err != nil {
			return nil, err
		}
		images[i] = data
	}

	files := make([]fsutil.File, len(outputs))
	for i, out := range outputs {
		files[i] = fsutil.File{Path: out.Path, Data: images[i], Perm: 0644}
	}
	if err := fsutil.WriteFilesAtomic(files); err != nil {
		return nil, fmt.Errorf("failed to write outputs: %w", err)
	}
	for i, out := range outputs {
		res.Files = append(res.Files, out.Path)
		r.logger.Debug("wrote image", "path", out.Path, "bytes", len(images[i]))
	}

	return res, nil
}
