package tasks

import (
	"errors"
	"fmt"
)

// Kind classifies a field-level parse failure.
type Kind int

const (
	KindInvalidInteger Kind = iota + 1
	KindInvalidDate
	KindFieldCount
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInteger:
		return "invalid integer field"
	case KindInvalidDate:
		return "invalid date field"
	case KindFieldCount:
		return "wrong number of fields"
	default:
		return "malformed record"
	}
}

// ErrMalformedRecord matches any *MalformedRecordError via errors.Is.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError reports a row that failed field-level parsing.
// Row is the 1-based line of the input, counting the header as line 1.
type MalformedRecordError struct {
	Row    int
	Column string
	Kind   Kind
	Value  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("row %d", e.Row)
	if e.Column != "" {
		msg += fmt.Sprintf(", column %q", e.Column)
	}
	msg += ": " + e.Kind.String()
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

var (
	ErrNegativeID     = errors.New("id must be non-negative")
	ErrDuplicateID    = errors.New("duplicate id")
	ErrSelfDependency = errors.New("task depends on itself")
	ErrDateRange      = errors.New("start is after end")
)

// ValidationError represents a collection-level invariant violation.
type ValidationError struct {
	Path string // e.g. tasks[2].dependencies
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
