package tasks

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ldi/taskgraph/internal/fsutil"
	"github.com/ldi/taskgraph/pkg/models"
	"gopkg.in/yaml.v3"
)

// WriteYAML writes the structured dump: a single explicit YAML document
// holding the task list in field order.
func WriteYAML(w io.Writer, list []models.Task) error {
	if list == nil {
		list = []models.Task{}
	}
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return fmt.Errorf("failed to write yaml header: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	return enc.Close()
}

// ReadYAML reads a dump produced by WriteYAML. An empty input yields no tasks.
func ReadYAML(r io.Reader) ([]models.Task, error) {
	var list []models.Task
	if err := yaml.NewDecoder(r).Decode(&list); err != nil {
		if errors.Is(err, io.EOF) {
			return []models.Task{}, nil
		}
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	for i := range list {
		if list[i].Dependencies == nil {
			list[i].Dependencies = []string{}
		}
	}
	if list == nil {
		list = []models.Task{}
	}
	return list, nil
}

// SaveYAML replaces path with the dump of list atomically.
func SaveYAML(path string, list []models.Task) error {
	return fsutil.WriteAtomic(path, 0644, func(w io.Writer) error {
		return WriteYAML(w, list)
	})
}

// LoadYAML reads the dump at path.
func LoadYAML(path string) ([]models.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	return ReadYAML(f)
}
