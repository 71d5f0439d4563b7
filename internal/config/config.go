// Package config handles configuration loading and defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default values.
const (
	DefaultFile       = "taskgraph.toml"
	DefaultCSVPath    = "tasks.csv"
	DefaultYAMLPath   = "tasks.yaml"
	DefaultDBPath     = ".taskgraph/taskgraph.db"
	DefaultOutputDir  = "."
	DefaultOutputName = "output"
	DefaultDotBinary  = "dot"
	DefaultRankDir    = "TB"
	DefaultDoneColor  = "darkgreen"
	DefaultTodoColor  = "red"
	DefaultPort       = "8000"
	DefaultCacheSize  = 32
)

// DefaultFormats are the image formats written by a render.
func DefaultFormats() []string {
	return []string{"png", "svg"}
}

// Config holds the full configuration for taskgraph.
type Config struct {
	// Inputs and outputs
	CSVPath    string   `toml:"csv_path"`
	YAMLPath   string   `toml:"yaml_path"`
	DBPath     string   `toml:"db_path"`
	OutputDir  string   `toml:"output_dir"`
	OutputName string   `toml:"output_name"`
	Formats    []string `toml:"formats"`

	// Graph
	DotBinary string `toml:"dot_binary"`
	RankDir   string `toml:"rankdir"`
	DoneColor string `toml:"done_color"`
	TodoColor string `toml:"todo_color"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// Web
	Port      string `toml:"port"`
	CacheSize int    `toml:"cache_size"`

	// File the values were read from, empty when none was found.
	File string `toml:"-"`
}

func setDefaults(cfg *Config) {
	cfg.CSVPath = DefaultCSVPath
	cfg.YAMLPath = DefaultYAMLPath
	cfg.DBPath = DefaultDBPath
	cfg.OutputDir = DefaultOutputDir
	cfg.OutputName = DefaultOutputName
	cfg.Formats = DefaultFormats()
	cfg.DotBinary = DefaultDotBinary
	cfg.RankDir = DefaultRankDir
	cfg.DoneColor = DefaultDoneColor
	cfg.TodoColor = DefaultTodoColor
	cfg.LogLevel = "info"
	cfg.LogFormat = "text"
	cfg.Port = DefaultPort
	cfg.CacheSize = DefaultCacheSize
}

// Default returns a config holding only default values.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. Config file (path, or taskgraph.toml in the working directory)
// 3. Environment variables (TASKGRAPH_*)
// 4. Flags already registered with RegisterFlags and parsed on fs
func Load(path string, fs *flag.FlagSet) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
		cfg.File = path
	} else if explicit {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if fs != nil {
		applyFlags(cfg, fs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) error {
	strs := map[string]*string{
		"TASKGRAPH_CSV":         &cfg.CSVPath,
		"TASKGRAPH_YAML":        &cfg.YAMLPath,
		"TASKGRAPH_DB":          &cfg.DBPath,
		"TASKGRAPH_OUTPUT_DIR":  &cfg.OutputDir,
		"TASKGRAPH_OUTPUT_NAME": &cfg.OutputName,
		"TASKGRAPH_DOT":         &cfg.DotBinary,
		"TASKGRAPH_RANKDIR":     &cfg.RankDir,
		"TASKGRAPH_LOG_LEVEL":   &cfg.LogLevel,
		"TASKGRAPH_LOG_FORMAT":  &cfg.LogFormat,
		"TASKGRAPH_PORT":        &cfg.Port,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("TASKGRAPH_FORMATS"); v != "" {
		cfg.Formats = splitList(v)
	}
	if v := os.Getenv("TASKGRAPH_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKGRAPH_CACHE_SIZE: %w", err)
		}
		cfg.CacheSize = n
	}
	return nil
}

// RegisterFlags adds the overridable settings to fs. Flags left unset do not
// override file or environment values.
func RegisterFlags(fs *flag.FlagSet) {
	fs.String("csv", "", "Path to the task CSV file")
	fs.String("yaml", "", "Path to the structured task dump")
	fs.String("db", "", "Path to the state database")
	fs.String("out-dir", "", "Directory for rendered images")
	fs.String("out-name", "", "Base file name for rendered images")
	fs.String("formats", "", "Comma-separated image formats (png,svg)")
	fs.String("dot", "", "Graphviz dot binary")
	fs.String("rankdir", "", "Graph direction (TB, LR, BT, RL)")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("log-format", "", "Log format (text, json, logfmt)")
	fs.String("port", "", "Port for the web UI")
}

func applyFlags(cfg *Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "csv":
			cfg.CSVPath = v
		case "yaml":
			cfg.YAMLPath = v
		case "db":
			cfg.DBPath = v
		case "out-dir":
			cfg.OutputDir = v
		case "out-name":
			cfg.OutputName = v
		case "formats":
			cfg.Formats = splitList(v)
		case "dot":
			cfg.DotBinary = v
		case "rankdir":
			cfg.RankDir = v
		case "log-level":
			cfg.LogLevel = v
		case "log-format":
			cfg.LogFormat = v
		case "port":
			cfg.Port = v
		}
	})
}

// Validate rejects settings no command can work with.
func (c *Config) Validate() error {
	if len(c.Formats) == 0 {
		return fmt.Errorf("config: at least one output format is required")
	}
	for _, f := range c.Formats {
		switch f {
		case "png", "svg", "pdf", "jpg", "dot":
		default:
			return fmt.Errorf("config: unsupported output format %q", f)
		}
	}
	switch c.RankDir {
	case "TB", "LR", "BT", "RL":
	default:
		return fmt.Errorf("config: invalid rankdir %q", c.RankDir)
	}
	if c.OutputName == "" {
		return fmt.Errorf("config: output_name must not be empty")
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("config: cache_size must be positive, got %d", c.CacheSize)
	}
	return nil
}

// OutputPath returns the image path for a format.
func (c *Config) OutputPath(format string) string {
	return filepath.Join(c.OutputDir, c.OutputName+"."+format)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Example is a commented config file with every key at its default.
const Example = `# taskgraph configuration
csv_path = "tasks.csv"
yaml_path = "tasks.yaml"
db_path = ".taskgraph/taskgraph.db"

output_dir = "."
output_name = "output"
formats = ["png", "svg"]

dot_binary = "dot"
rankdir = "TB"
done_color = "darkgreen"
todo_color = "red"

log_level = "info"
log_format = "text"

port = "8000"
cache_size = 32
`
