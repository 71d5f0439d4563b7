package db

import (
	"context"
	"fmt"

	"github.com/ldi/taskgraph/pkg/models"
)

// GetDependents returns the tasks whose dependency list names id, in
// collection order.
func (db *DB) GetDependents(ctx context.Context, id int) ([]models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id IN (SELECT task_id FROM task_dependencies WHERE depends_on = ?)
		ORDER BY position
	`
	list, err := db.queryTasks(ctx, query, taskKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get dependents: %w", err)
	}
	if err := db.attachDependencies(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// DanglingDependency is a reference to a task id that is not in the collection.
type DanglingDependency struct {
	TaskID    int    `json:"task_id"`
	DependsOn string `json:"depends_on"`
}

// GetDanglingDependencies lists references that name no existing task.
func (db *DB) GetDanglingDependencies(ctx context.Context) ([]DanglingDependency, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT d.task_id, d.depends_on
		FROM v_dangling_dependencies d
		JOIN tasks t ON t.id = d.task_id
		ORDER BY t.position, d.position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dangling dependencies: %w", err)
	}
	defer rows.Close()

	var out []DanglingDependency
	for rows.Next() {
		var d DanglingDependency
		if err := rows.Scan(&d.TaskID, &d.DependsOn); err != nil {
			return nil, fmt.Errorf("failed to scan dangling dependency: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
