package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

type TaskStatus string

const (
	TaskStatusTodo TaskStatus = "todo"
	TaskStatusDone TaskStatus = "done"
)

// IsDone reports whether the status is the single "complete" value.
// Every other value, including unknown ones, counts as incomplete.
func (s TaskStatus) IsDone() bool {
	return s == TaskStatusDone
}

// DateLayout is the calendar format used on every boundary (CSV, YAML, JSON, SQL).
const DateLayout = "2006-01-02"

// Date is a calendar day without a time of day.
type Date struct {
	time.Time
}

// NewDate returns the calendar day y-m-d in UTC.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.set(s)
}

func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.set(s)
}

// Value stores the date as TEXT.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.set(v)
	case []byte:
		return d.set(string(v))
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) set(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Task is one row of the task list. Field order matches the CSV column order.
type Task struct {
	ID           int        `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Assignee     string     `json:"assignee" yaml:"assignee"`
	Priority     int        `json:"priority" yaml:"priority"`
	Estimate     int        `json:"estimate" yaml:"estimate"`
	Start        Date       `json:"start" yaml:"start"`
	End          Date       `json:"end" yaml:"end"`
	Dependencies []string   `json:"dependencies" yaml:"dependencies"`
	Status       TaskStatus `json:"status" yaml:"status"`
	Description  string     `json:"description" yaml:"description"`
}

// DependsOn reports whether id appears in the task's dependency list.
func (t *Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}
