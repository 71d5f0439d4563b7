package graph

import (
	"fmt"
	"strings"
)

// GraphConstructionError reports a task that cannot become a graph node:
// a negative id, an id seen before, or a task listed among its own
// dependencies.
type GraphConstructionError struct {
	Index  int // position of the offending task in the input
	TaskID int
	Err    error
}

func (e *GraphConstructionError) Error() string {
	return fmt.Sprintf("graph construction: task %d (index %d): %v", e.TaskID, e.Index, e.Err)
}

func (e *GraphConstructionError) Unwrap() error {
	return e.Err
}

// RenderBackendUnavailableError reports that the layout backend could not be
// run or failed to produce an image.
type RenderBackendUnavailableError struct {
	Backend string
	Format  string
	Stderr  string
	Err     error
}

func (e *RenderBackendUnavailableError) Error() string {
	msg := fmt.Sprintf("render backend %s unavailable", e.Backend)
	if e.Format != "" {
		msg += fmt.Sprintf(" (format %s)", e.Format)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *RenderBackendUnavailableError) Unwrap() error {
	return e.Err
}
