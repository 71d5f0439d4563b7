package tasks

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ldi/taskgraph/pkg/models"
)

func task(id int, deps ...string) models.Task {
	if deps == nil {
		deps = []string{}
	}
	return models.Task{
		ID:           id,
		Title:        "task",
		Start:        models.NewDate(2024, time.January, 1),
		End:          models.NewDate(2024, time.January, 2),
		Dependencies: deps,
		Status:       models.TaskStatusTodo,
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid with dangling reference", func(t *testing.T) {
		if err := Validate([]models.Task{task(1), task(2, "1", "99")}); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := Validate([]models.Task{task(1), task(1)})
		if !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("Expected ErrDuplicateID, got %v", err)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Path != "tasks[1].id" {
			t.Errorf("Expected path tasks[1].id, got %v", err)
		}
	})

	t.Run("self dependency", func(t *testing.T) {
		err := Validate([]models.Task{task(5, "5")})
		if !errors.Is(err, ErrSelfDependency) {
			t.Errorf("Expected ErrSelfDependency, got %v", err)
		}
	})

	t.Run("negative id", func(t *testing.T) {
		err := Validate([]models.Task{task(-1)})
		if !errors.Is(err, ErrNegativeID) {
			t.Errorf("Expected ErrNegativeID, got %v", err)
		}
	})

	t.Run("start after end", func(t *testing.T) {
		bad := task(1)
		bad.Start = models.NewDate(2024, time.February, 1)
		err := Validate([]models.Task{bad})
		if !errors.Is(err, ErrDateRange) {
			t.Errorf("Expected ErrDateRange, got %v", err)
		}
	})

	t.Run("reports every problem", func(t *testing.T) {
		err := Validate([]models.Task{task(1, "1"), task(1)})
		if err == nil {
			t.Fatal("Expected error")
		}
		if !errors.Is(err, ErrSelfDependency) || !errors.Is(err, ErrDuplicateID) {
			t.Errorf("Expected both problems reported, got %v", err)
		}
		if n := strings.Count(err.Error(), "\n") + 1; n != 2 {
			t.Errorf("Expected 2 lines, got %d: %v", n, err)
		}
	})
}

func TestDanglingReferences(t *testing.T) {
	got := DanglingReferences([]models.Task{task(1, "42"), task(2, "1", "42", "7")})
	if !reflect.DeepEqual(got, []string{"42", "7"}) {
		t.Errorf("Expected [42 7], got %v", got)
	}
}
