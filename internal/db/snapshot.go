package db

import (
	"context"
	"fmt"

	"github.com/ldi/taskgraph/internal/tasks"
)

// EnableAutoSnapshot sets up a hook that automatically exports the structured
// dump to the given path after every successful write operation.
func (db *DB) EnableAutoSnapshot(path string, onError func(error)) {
	db.SetOnChange(func(ctx context.Context) {
		// Hooks are best-effort: the write already committed.
		if err := db.ExportSnapshot(ctx, path); err != nil && onError != nil {
			onError(err)
		}
	})
}

// ExportSnapshot writes the current collection as a YAML dump, replacing the
// file at path atomically.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	list, err := db.ListTasks(ctx)
	if err != nil {
		return err
	}
	if err := tasks.SaveYAML(path, list); err != nil {
		return fmt.Errorf("failed to export snapshot: %w", err)
	}
	return nil
}

// ImportSnapshot replaces the collection with the YAML dump at path. The dump
// is validated first; an invalid dump leaves the stored collection untouched.
func (db *DB) ImportSnapshot(ctx context.Context, path string) (int64, error) {
	list, err := tasks.LoadYAML(path)
	if err != nil {
		return 0, err
	}
	if err := tasks.Validate(list); err != nil {
		return 0, fmt.Errorf("invalid snapshot %s: %w", path, err)
	}
	return db.ReplaceTasks(ctx, path, list)
}
