package db

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/ldi/taskgraph/pkg/models"
)

func sampleTasks() []models.Task {
	return []models.Task{
		{
			ID: 3, Title: "Design", Assignee: "alice", Priority: 1, Estimate: 3,
			Start:        models.NewDate(2024, time.January, 1),
			End:          models.NewDate(2024, time.January, 5),
			Dependencies: []string{},
			Status:       models.TaskStatusDone,
			Description:  "Design the thing",
		},
		{
			ID: 1, Title: "Build", Assignee: "bob", Priority: 2, Estimate: 5,
			Start:        models.NewDate(2024, time.January, 6),
			End:          models.NewDate(2024, time.January, 10),
			Dependencies: []string{"3", "99", "3"},
			Status:       models.TaskStatusTodo,
			Description:  "Build it <fast> & well",
		},
	}
}

func TestReplaceAndListTasks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rev, err := db.ReplaceTasks(ctx, "tasks.csv", sampleTasks())
	if err != nil {
		t.Fatalf("ReplaceTasks failed: %v", err)
	}
	if rev != 1 {
		t.Errorf("Expected revision 1, got %d", rev)
	}

	list, err := db.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if !reflect.DeepEqual(list, sampleTasks()) {
		t.Errorf("Stored tasks differ:\n got %+v\nwant %+v", list, sampleTasks())
	}

	// A second load replaces everything.
	rev, err = db.ReplaceTasks(ctx, "edit", sampleTasks()[:1])
	if err != nil {
		t.Fatalf("ReplaceTasks failed: %v", err)
	}
	if rev != 2 {
		t.Errorf("Expected revision 2, got %d", rev)
	}
	count, err := db.CountTasks(ctx)
	if err != nil {
		t.Fatalf("CountTasks failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 task after replace, got %d", count)
	}

	current, err := db.CurrentRevision(ctx)
	if err != nil {
		t.Fatalf("CurrentRevision failed: %v", err)
	}
	if current == nil || current.Source != "edit" || current.TaskCount != 1 {
		t.Errorf("Unexpected revision %+v", current)
	}
}

func TestReplaceTasks_DuplicateIDKeepsPrevious(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ReplaceTasks(ctx, "first", sampleTasks()); err != nil {
		t.Fatalf("ReplaceTasks failed: %v", err)
	}

	dup := sampleTasks()
	dup[1].ID = dup[0].ID
	if _, err := db.ReplaceTasks(ctx, "second", dup); err == nil {
		t.Fatal("Expected duplicate id to fail")
	}

	list, err := db.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("Expected previous collection to survive, got %d tasks", len(list))
	}
}

func TestGetTask(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ReplaceTasks(ctx, "test", sampleTasks()); err != nil {
		t.Fatalf("ReplaceTasks failed: %v", err)
	}

	task, err := db.GetTask(ctx, 1)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task == nil || task.Title != "Build" {
		t.Fatalf("Unexpected task %+v", task)
	}
	if !reflect.DeepEqual(task.Dependencies, []string{"3", "99", "3"}) {
		t.Errorf("Unexpected dependencies %v", task.Dependencies)
	}

	missing, err := db.GetTask(ctx, 404)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing task, got %+v", missing)
	}
}

func TestDependents(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ReplaceTasks(ctx, "test", sampleTasks()); err != nil {
		t.Fatalf("ReplaceTasks failed: %v", err)
	}

	dependents, err := db.GetDependents(ctx, 3)
	if err != nil {
		t.Fatalf("GetDependents failed: %v", err)
	}
	if len(dependents) != 1 || dependents[0].ID != 1 {
		t.Errorf("Expected task 1 as the only dependent, got %+v", dependents)
	}

	dangling, err := db.GetDanglingDependencies(ctx)
	if err != nil {
		t.Fatalf("GetDanglingDependencies failed: %v", err)
	}
	want := []DanglingDependency{{TaskID: 1, DependsOn: "99"}}
	if !reflect.DeepEqual(dangling, want) {
		t.Errorf("Expected %v, got %v", want, dangling)
	}
}

func TestOnChange(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	calls := 0
	db.SetOnChange(func(ctx context.Context) { calls++ })

	if _, err := db.ReplaceTasks(ctx, "a", sampleTasks()); err != nil {
		t.Fatalf("ReplaceTasks failed: %v", err)
	}
	db.DisableOnChange()
	if _, err := db.ReplaceTasks(ctx, "b", sampleTasks()); err != nil {
		t.Fatalf("ReplaceTasks failed: %v", err)
	}
	db.EnableOnChange()

	if calls != 1 {
		t.Errorf("Expected 1 hook call, got %d", calls)
	}
}
