// Package tasks turns raw task rows into typed task records and back.
package tasks

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ldi/taskgraph/pkg/models"
)

// Columns is the fixed column layout of a task row.
var Columns = [...]string{
	"id", "title", "assignee", "priority", "estimate",
	"start", "end", "dependencies", "status", "description",
}

const (
	colID = iota
	colTitle
	colAssignee
	colPriority
	colEstimate
	colStart
	colEnd
	colDependencies
	colStatus
	colDescription
)

// DependencySeparator splits the dependencies column.
const DependencySeparator = ";"

// ParseRows converts raw rows into tasks. The first row is a header and is
// discarded without being checked. The first malformed row aborts the parse.
func ParseRows(rows [][]string) ([]models.Task, error) {
	if len(rows) <= 1 {
		return []models.Task{}, nil
	}

	out := make([]models.Task, 0, len(rows)-1)
	for i, row := range rows[1:] {
		t, err := parseRow(i+2, row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func parseRow(line int, row []string) (models.Task, error) {
	if len(row) != len(Columns) {
		return models.Task{}, &MalformedRecordError{
			Row:  line,
			Kind: KindFieldCount,
			Err:  fmt.Errorf("expected %d fields, got %d", len(Columns), len(row)),
		}
	}

	var (
		t   models.Task
		err error
	)

	if t.ID, err = parseInt(line, colID, row); err != nil {
		return t, err
	}
	if t.Priority, err = parseInt(line, colPriority, row); err != nil {
		return t, err
	}
	if t.Estimate, err = parseInt(line, colEstimate, row); err != nil {
		return t, err
	}
	if t.Start, err = parseDate(line, colStart, row); err != nil {
		return t, err
	}
	if t.End, err = parseDate(line, colEnd, row); err != nil {
		return t, err
	}

	t.Title = row[colTitle]
	t.Assignee = row[colAssignee]
	t.Dependencies = SplitDependencies(row[colDependencies])
	t.Status = models.TaskStatus(row[colStatus])
	t.Description = row[colDescription]

	return t, nil
}

func parseInt(line, col int, row []string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(row[col]))
	if err != nil {
		return 0, &MalformedRecordError{
			Row:    line,
			Column: Columns[col],
			Kind:   KindInvalidInteger,
			Value:  row[col],
			Err:    errors.Unwrap(err),
		}
	}
	return v, nil
}

func parseDate(line, col int, row []string) (models.Date, error) {
	d, err := models.ParseDate(row[col])
	if err != nil {
		return models.Date{}, &MalformedRecordError{
			Row:    line,
			Column: Columns[col],
			Kind:   KindInvalidDate,
			Value:  row[col],
			Err:    err,
		}
	}
	return d, nil
}

// SplitDependencies splits a dependencies cell. An empty cell yields an empty
// slice rather than a slice holding one empty token.
func SplitDependencies(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, DependencySeparator)
}

// JoinDependencies is the inverse of SplitDependencies.
func JoinDependencies(deps []string) string {
	return strings.Join(deps, DependencySeparator)
}

// ReadCSV reads comma-delimited rows from r and parses them.
func ReadCSV(r io.Reader) ([]models.Task, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // checked per row so the error carries row context

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return ParseRows(rows)
}

// LoadCSV opens path and parses it with ReadCSV.
func LoadCSV(path string) ([]models.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task file: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// WriteCSV writes tasks in the same layout ReadCSV accepts, header first.
func WriteCSV(w io.Writer, list []models.Task) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns[:]); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range list {
		record := []string{
			strconv.Itoa(t.ID),
			t.Title,
			t.Assignee,
			strconv.Itoa(t.Priority),
			strconv.Itoa(t.Estimate),
			t.Start.String(),
			t.End.String(),
			JoinDependencies(t.Dependencies),
			string(t.Status),
			t.Description,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for task %d: %w", t.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
