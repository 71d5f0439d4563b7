package tasks

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ldi/taskgraph/pkg/models"
)

// Validate checks the collection-level invariants that field parsing cannot:
// non-negative unique ids, no self-dependency and start not after end.
// Dangling dependency references are allowed. Every violation is reported;
// the result is nil or an errors.Join of *ValidationError values.
func Validate(list []models.Task) error {
	var errs []error
	seen := make(map[int]int, len(list))

	for i, t := range list {
		path := fmt.Sprintf("tasks[%d]", i)

		if t.ID < 0 {
			errs = append(errs, &ValidationError{
				Path: path + ".id",
				Err:  fmt.Errorf("%w: got %d", ErrNegativeID, t.ID),
			})
		}

		if first, ok := seen[t.ID]; ok {
			errs = append(errs, &ValidationError{
				Path: path + ".id",
				Err:  fmt.Errorf("%w %d (first at tasks[%d])", ErrDuplicateID, t.ID, first),
			})
		} else {
			seen[t.ID] = i
		}

		if t.DependsOn(strconv.Itoa(t.ID)) {
			errs = append(errs, &ValidationError{
				Path: path + ".dependencies",
				Err:  fmt.Errorf("%w: %d", ErrSelfDependency, t.ID),
			})
		}

		if !t.Start.IsZero() && !t.End.IsZero() && t.Start.After(t.End.Time) {
			errs = append(errs, &ValidationError{
				Path: path + ".start",
				Err:  fmt.Errorf("%w: %s > %s", ErrDateRange, t.Start, t.End),
			})
		}
	}

	return errors.Join(errs...)
}

// DanglingReferences returns, in encounter order, the dependency ids that
// name no task in the collection. Repeats are reported once.
func DanglingReferences(list []models.Task) []string {
	known := make(map[string]bool, len(list))
	for _, t := range list {
		known[strconv.Itoa(t.ID)] = true
	}

	var dangling []string
	reported := make(map[string]bool)
	for _, t := range list {
		for _, dep := range t.Dependencies {
			if known[dep] || reported[dep] {
				continue
			}
			reported[dep] = true
			dangling = append(dangling, dep)
		}
	}
	return dangling
}
