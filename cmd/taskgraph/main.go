package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ldi/taskgraph/internal/config"
	"github.com/ldi/taskgraph/internal/db"
	"github.com/ldi/taskgraph/internal/graph"
	"github.com/ldi/taskgraph/internal/logging"
	"github.com/ldi/taskgraph/internal/mcp"
	"github.com/ldi/taskgraph/internal/server"
	"github.com/ldi/taskgraph/internal/tasks"
	"github.com/ldi/taskgraph/internal/tracker"
	"github.com/ldi/taskgraph/internal/ui"
	"github.com/ldi/taskgraph/internal/ui/components"
)

const usage = `Usage: taskgraph <command> [flags]

Commands:
  init      Write a default taskgraph.toml
  convert   Read the CSV, write the YAML dump and render the graph
  render    Render the graph from the stored tasks
  import    Load the CSV into the task store
  list      Show the stored tasks
  web       Start the browser editor
  mcp       Serve the MCP tools on stdio

Run without a command to pick one from a menu.
Run 'taskgraph <command> -h' for the flags of a command.
`

func main() {
	args := os.Args[1:]

	if len(args) == 0 {
		selected, err := ui.RunMenu()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running menu: %v\n", err)
			os.Exit(1)
		}
		if selected == "" {
			os.Exit(0)
		}
		args = []string{selected}
	}

	if err := execute(args, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute(args []string, stdout, stderr io.Writer) error {
	command, rest := args[0], args[1:]

	switch command {
	case "init":
		return runInit(rest, stdout)
	case "convert":
		return runConvert(rest, stdout, stderr)
	case "render":
		return runRender(rest, stdout, stderr)
	case "import":
		return runImport(rest, stdout, stderr)
	case "list":
		return runList(rest, stdout, stderr)
	case "web":
		return runWeb(rest, stderr)
	case "mcp":
		return runMCP(rest, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// app is the state one command runs with.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	db      *db.DB
	tracker *tracker.Tracker
}

// newFlagSet returns a flag set carrying -config and every config override.
func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file (default taskgraph.toml if present)")
	config.RegisterFlags(fs)
	return fs, configPath
}

// openApp loads configuration and opens the store. The returned app must be
// closed.
func openApp(ctx context.Context, fs *flag.FlagSet, configPath string, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath, fs)
	if err != nil {
		return nil, err
	}

	logger := logging.NewFromConfig(stderr, cfg.LogLevel, cfg.LogFormat)
	if cfg.File != "" {
		logger.Debug("loaded config", "path", cfg.File)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	renderer := graph.NewRenderer(
		&graph.DotBackend{Binary: cfg.DotBinary},
		tracker.RendererOptions(cfg),
		logger,
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      database,
		tracker: tracker.New(database, renderer, tracker.Outputs(cfg), logger),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// autoSnapshot keeps the YAML dump in step with the store.
func (a *app) autoSnapshot() {
	a.db.EnableAutoSnapshot(a.cfg.YAMLPath, func(err error) {
		a.logger.Error("failed to export snapshot", "path", a.cfg.YAMLPath, "err", err)
	})
}

func runInit(args []string, stdout io.Writer) error {
	path := config.DefaultFile
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(config.Example), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "✓ Wrote %s\n", path)
	return nil
}

func runConvert(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("convert", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, fs, *configPath, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.tracker.Convert(ctx, a.cfg.CSVPath, a.cfg.YAMLPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "✓ Wrote %s\n", a.cfg.YAMLPath)
	printResult(stdout, res)
	return nil
}

func runRender(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("render", stderr)
	fromYAML := fs.Bool("from-yaml", false, "Load the YAML dump into the store before rendering")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, fs, *configPath, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	if *fromYAML {
		if _, err := a.db.ImportSnapshot(ctx, a.cfg.YAMLPath); err != nil {
			return err
		}
	}

	res, err := a.tracker.Render(ctx)
	if err != nil {
		return err
	}
	printResult(stdout, res)
	return nil
}

func runImport(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("import", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()

	a, err := openApp(ctx, fs, *configPath, stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	a.autoSnapshot()

	rev, err := a.tracker.ImportCSV(ctx, a.cfg.CSVPath)
	if err != nil {
		return err
	}
	count, err := a.db.CountTasks(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ Imported %d tasks from %s (revision %d)\n", count, a.cfg.CSVPath, rev)
	return nil
}

func runList(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("list", stderr)
	statusFilter := fs.String("status", "", "Filter by status")
	board := fs.Bool("board", false, "Show tasks grouped into open and done boxes")
	width := fs.Int("width", 80, "Board width")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()

	a, err := openApp(ctx, fs, *configPath, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.tracker.Tasks(ctx)
	if err != nil {
		return err
	}
	if *statusFilter != "" {
		filtered := list[:0]
		for _, t := range list {
			if string(t.Status) == *statusFilter {
				filtered = append(filtered, t)
			}
		}
		list = filtered
	}

	if *board {
		fmt.Fprintln(stdout, components.NewTaskBoard(list, *width).View())
		return nil
	}

	fmt.Fprintf(stdout, "%-5s %-30s %-12s %-8s %-10s %-10s %-10s %-12s\n",
		"ID", "TITLE", "ASSIGNEE", "PRIORITY", "START", "END", "STATUS", "DEPENDS ON")
	fmt.Fprintln(stdout, "------------------------------------------------------------------------------------------------------")
	for _, t := range list {
		fmt.Fprintf(stdout, "%-5d %-30s %-12s %-8d %-10s %-10s %-10s %-12s\n",
			t.ID, t.Title, t.Assignee, t.Priority, t.Start, t.End, t.Status, tasks.JoinDependencies(t.Dependencies))
	}

	dangling, err := a.db.GetDanglingDependencies(ctx)
	if err != nil {
		return err
	}
	for _, d := range dangling {
		fmt.Fprintf(stdout, "! task %d depends on unknown task %s\n", d.TaskID, d.DependsOn)
	}
	return nil
}

func runWeb(args []string, stderr io.Writer) error {
	fs, configPath := newFlagSet("web", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, fs, *configPath, stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	a.autoSnapshot()

	if err := seedFromCSV(ctx, a); err != nil {
		return err
	}

	srv, err := server.NewServer(a.tracker, a.cfg.CacheSize, a.logger)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("web UI", "url", fmt.Sprintf("http://localhost:%s", a.cfg.Port))
	if err := srv.Start(fmt.Sprintf(":%s", a.cfg.Port)); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runMCP(args []string, stderr io.Writer) error {
	fs, configPath := newFlagSet("mcp", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()

	a, err := openApp(ctx, fs, *configPath, stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	a.autoSnapshot()

	return mcp.Serve(mcp.NewServer(a.tracker))
}

// seedFromCSV loads the configured CSV when the store is empty, so the web
// editor opens on the user's tasks.
func seedFromCSV(ctx context.Context, a *app) error {
	count, err := a.db.CountTasks(ctx)
	if err != nil || count > 0 {
		return err
	}
	if _, err := os.Stat(a.cfg.CSVPath); err != nil {
		return nil
	}
	_, err = a.tracker.ImportCSV(ctx, a.cfg.CSVPath)
	return err
}

func printResult(w io.Writer, res *graph.Result) {
	fmt.Fprintf(w, "✓ Rendered %d tasks, %d dependencies\n", res.Stats.Nodes, res.Stats.Edges)
	for _, f := range res.Files {
		fmt.Fprintf(w, "✓ Wrote %s\n", f)
	}
	for _, c := range res.Cycles {
		fmt.Fprintf(w, "! cycle: %v\n", c)
	}
	for _, id := range res.Dangling {
		fmt.Fprintf(w, "! unknown task %s\n", id)
	}
}
