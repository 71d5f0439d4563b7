package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ldi/taskgraph/pkg/models"
)

// ReplaceTasks swaps the whole collection for list in one transaction and
// records a revision. The collection is never patched row by row; on error
// the previous collection stays in place.
func (db *DB) ReplaceTasks(ctx context.Context, source string, list []models.Task) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies`); err != nil {
		return 0, fmt.Errorf("failed to clear dependencies: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return 0, fmt.Errorf("failed to clear tasks: %w", err)
	}

	for i := range list {
		if err := insertTask(ctx, tx, i, &list[i]); err != nil {
			return 0, err
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (source, task_count) VALUES (?, ?)`, source, len(list))
	if err != nil {
		return 0, fmt.Errorf("failed to record revision: %w", err)
	}
	rev, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get revision id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tasks: %w", err)
	}

	db.triggerChange(ctx)
	return rev, nil
}

func insertTask(ctx context.Context, exec executor, position int, t *models.Task) error {
	query := `
		INSERT INTO tasks (id, position, title, assignee, priority, estimate,
		                   start_date, end_date, status, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec.ExecContext(ctx, query,
		t.ID, position, t.Title, t.Assignee, t.Priority, t.Estimate,
		t.Start, t.End, string(t.Status), t.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task %d: %w", t.ID, err)
	}

	for i, dep := range t.Dependencies {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO task_dependencies (task_id, position, depends_on) VALUES (?, ?, ?)`,
			t.ID, i, dep)
		if err != nil {
			return fmt.Errorf("failed to insert dependency %s of task %d: %w", dep, t.ID, err)
		}
	}
	return nil
}

const taskColumns = `id, title, assignee, priority, estimate, start_date, end_date, status, description`

// ListTasks returns the collection in its original order.
func (db *DB) ListTasks(ctx context.Context) ([]models.Task, error) {
	list, err := db.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY position`)
	if err != nil {
		return nil, err
	}
	if err := db.attachDependencies(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetTask retrieves a task by its ID. It returns nil when there is none.
func (db *DB) GetTask(ctx context.Context, id int) (*models.Task, error) {
	list, err := db.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	if err := db.attachDependencies(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// CountTasks returns the number of tasks in the collection.
func (db *DB) CountTasks(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// queryTasks is a helper to execute a query that returns a list of tasks.
func (db *DB) queryTasks(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Task{}
	for rows.Next() {
		var t models.Task
		var status string
		err := rows.Scan(
			&t.ID, &t.Title, &t.Assignee, &t.Priority, &t.Estimate,
			&t.Start, &t.End, &status, &t.Description,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Status = models.TaskStatus(status)
		t.Dependencies = []string{}
		list = append(list, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return list, nil
}

func (db *DB) attachDependencies(ctx context.Context, list []models.Task) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[int]int, len(list))
	for i, t := range list {
		index[t.ID] = i
	}

	rows, err := db.QueryContext(ctx,
		`SELECT task_id, depends_on FROM task_dependencies ORDER BY task_id, position`)
	if err != nil {
		return fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID int
		var dep string
		if err := rows.Scan(&taskID, &dep); err != nil {
			return fmt.Errorf("failed to scan dependency: %w", err)
		}
		if i, ok := index[taskID]; ok {
			list[i].Dependencies = append(list[i].Dependencies, dep)
		}
	}
	return rows.Err()
}

// Revision describes one wholesale replacement of the collection.
type Revision struct {
	ID        int64
	Source    string
	TaskCount int
	CreatedAt string
}

// CurrentRevision returns the latest revision, or nil before the first load.
func (db *DB) CurrentRevision(ctx context.Context) (*Revision, error) {
	r := &Revision{}
	err := db.QueryRowContext(ctx, `
		SELECT id, source, task_count, created_at
		FROM revisions
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&r.ID, &r.Source, &r.TaskCount, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get revision: %w", err)
	}
	return r, nil
}

// taskKey is the textual form dependency references use.
func taskKey(id int) string {
	return strconv.Itoa(id)
}
