package graph

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/ldi/taskgraph/internal/tasks"
	"github.com/ldi/taskgraph/pkg/models"
)

// Options controls graph construction.
type Options struct {
	Name    string // graph name, "my_graph" when empty
	RankDir string // TB, LR, BT or RL; TB when empty
	Palette Palette
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "my_graph"
	}
	if o.RankDir == "" {
		o.RankDir = "TB"
	}
	if o.Palette.Done == "" || o.Palette.Todo == "" {
		def := DefaultPalette()
		if o.Palette.Done == "" {
			o.Palette.Done = def.Done
		}
		if o.Palette.Todo == "" {
			o.Palette.Todo = def.Todo
		}
	}
	return o
}

// Build creates the dependency digraph for list. Nodes are added in input
// order; edges follow each task's dependency list in order, including
// repeats and references to unknown ids. Each unknown id gets a plain
// placeholder node, added after the task nodes, so that every edge endpoint
// is a node of the graph.
func Build(list []models.Task, opts Options) (*gographviz.Graph, error) {
	opts = opts.withDefaults()

	g := gographviz.NewGraph()
	if err := g.SetName(opts.Name); err != nil {
		return nil, fmt.Errorf("failed to name graph: %w", err)
	}
	if err := g.SetDir(true); err != nil {
		return nil, fmt.Errorf("failed to make graph directed: %w", err)
	}
	if err := g.AddAttr(opts.Name, "bgcolor", "white"); err != nil {
		return nil, fmt.Errorf("failed to set background: %w", err)
	}
	if err := g.AddAttr(opts.Name, "rankdir", opts.RankDir); err != nil {
		return nil, fmt.Errorf("failed to set rankdir: %w", err)
	}

	seen := make(map[int]int, len(list))
	for i, t := range list {
		if err := checkNode(i, t, seen); err != nil {
			return nil, err
		}
		seen[t.ID] = i

		attrs := map[string]string{
			"label": Label(t, opts.Palette),
			"shape": "rectangle",
		}
		if err := g.AddNode(opts.Name, NodeID(strconv.Itoa(t.ID)), attrs); err != nil {
			return nil, &GraphConstructionError{Index: i, TaskID: t.ID, Err: err}
		}
	}

	for _, dep := range tasks.DanglingReferences(list) {
		if err := g.AddNode(opts.Name, NodeID(dep), nil); err != nil {
			return nil, fmt.Errorf("failed to add placeholder node %q: %w", dep, err)
		}
	}

	for i, t := range list {
		dst := NodeID(strconv.Itoa(t.ID))
		for _, dep := range t.Dependencies {
			if err := g.AddEdge(NodeID(dep), dst, true, map[string]string{"color": "black"}); err != nil {
				return nil, &GraphConstructionError{Index: i, TaskID: t.ID, Err: err}
			}
		}
	}

	return g, nil
}

func checkNode(i int, t models.Task, seen map[int]int) error {
	if t.ID < 0 {
		return &GraphConstructionError{Index: i, TaskID: t.ID, Err: tasks.ErrNegativeID}
	}
	if first, ok := seen[t.ID]; ok {
		return &GraphConstructionError{
			Index:  i,
			TaskID: t.ID,
			Err:    fmt.Errorf("%w (first at index %d)", tasks.ErrDuplicateID, first),
		}
	}
	if t.DependsOn(strconv.Itoa(t.ID)) {
		return &GraphConstructionError{Index: i, TaskID: t.ID, Err: tasks.ErrSelfDependency}
	}
	return nil
}

var plainID = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*|-?[0-9]+)$`)

// NodeID returns id as a DOT identifier, quoting it when it is not a plain
// name or integer.
func NodeID(id string) string {
	if plainID.MatchString(id) {
		return id
	}
	return `"` + strings.ReplaceAll(strings.ReplaceAll(id, `\`, `\\`), `"`, `\"`) + `"`
}

// Stats counts what Build produced. Nodes counts task nodes only;
// placeholder nodes for unknown dependency ids are counted separately.
type Stats struct {
	Nodes        int
	Placeholders int
	Edges        int
}

// StatsOf returns the counts of g, which Build produced from list.
func StatsOf(g *gographviz.Graph, list []models.Task) Stats {
	return Stats{
		Nodes:        len(list),
		Placeholders: len(g.Nodes.Nodes) - len(list),
		Edges:        len(g.Edges.Edges),
	}
}
