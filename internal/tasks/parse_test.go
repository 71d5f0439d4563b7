package tasks

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ldi/taskgraph/pkg/models"
)

const header = "id,title,assignee,priority,estimate,start,end,dependencies,status,description\n"

func TestReadCSV_Scenario(t *testing.T) {
	input := header +
		"1,Design,alice,1,3,2024-01-01,2024-01-05,,todo,Design the thing\n" +
		"2,Build,bob,2,5,2024-01-06,2024-01-10,1,todo,Build it\n"

	list, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(list))
	}

	first := list[0]
	if first.ID != 1 || first.Title != "Design" || first.Assignee != "alice" {
		t.Errorf("Unexpected first task: %+v", first)
	}
	if first.Priority != 1 || first.Estimate != 3 {
		t.Errorf("Expected priority 1 estimate 3, got %d %d", first.Priority, first.Estimate)
	}
	if !first.Start.Equal(models.NewDate(2024, time.January, 1).Time) {
		t.Errorf("Expected start 2024-01-01, got %s", first.Start)
	}
	if first.Dependencies == nil || len(first.Dependencies) != 0 {
		t.Errorf("Expected empty non-nil dependencies, got %#v", first.Dependencies)
	}
	if first.Status != models.TaskStatusTodo {
		t.Errorf("Expected status todo, got %s", first.Status)
	}

	if !reflect.DeepEqual(list[1].Dependencies, []string{"1"}) {
		t.Errorf("Expected dependencies [1], got %v", list[1].Dependencies)
	}
	if list[1].Description != "Build it" {
		t.Errorf("Expected description 'Build it', got %q", list[1].Description)
	}
}

func TestParseRows_PreservesOrderAndLength(t *testing.T) {
	rows := [][]string{
		strings.Split(strings.TrimSpace(header), ","),
		{"3", "c", "x", "1", "1", "2024-01-01", "2024-01-02", "", "todo", ""},
		{"1", "a", "x", "1", "1", "2024-01-01", "2024-01-02", "", "done", ""},
		{"1", "a again", "x", "1", "1", "2024-01-01", "2024-01-02", "", "todo", ""},
	}

	list, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("ParseRows failed: %v", err)
	}
	if len(list) != len(rows)-1 {
		t.Fatalf("Expected %d tasks, got %d", len(rows)-1, len(list))
	}
	gotIDs := []int{list[0].ID, list[1].ID, list[2].ID}
	if !reflect.DeepEqual(gotIDs, []int{3, 1, 1}) {
		t.Errorf("Expected ids in row order [3 1 1], got %v", gotIDs)
	}
}

func TestParseRows_HeaderOnlyOrEmpty(t *testing.T) {
	for _, rows := range [][][]string{nil, {{"anything", "goes"}}} {
		list, err := ParseRows(rows)
		if err != nil {
			t.Fatalf("ParseRows failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("Expected no tasks, got %d", len(list))
		}
	}
}

func TestParseRows_Malformed(t *testing.T) {
	valid := []string{"1", "t", "a", "1", "2", "2024-01-01", "2024-01-02", "", "todo", "d"}
	with := func(col int, v string) []string {
		row := append([]string(nil), valid...)
		row[col] = v
		return row
	}

	tests := []struct {
		name   string
		row    []string
		kind   Kind
		column string
	}{
		{"non-integer id", with(colID, "abc"), KindInvalidInteger, "id"},
		{"non-integer priority", with(colPriority, "high"), KindInvalidInteger, "priority"},
		{"non-integer estimate", with(colEstimate, "1.5"), KindInvalidInteger, "estimate"},
		{"invalid start", with(colStart, "2024-13-40"), KindInvalidDate, "start"},
		{"invalid end", with(colEnd, "01/02/2024"), KindInvalidDate, "end"},
		{"short row", valid[:9], KindFieldCount, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := [][]string{Columns[:], valid, tt.row}
			list, err := ParseRows(rows)
			if err == nil {
				t.Fatalf("Expected error, got %d tasks", len(list))
			}
			if !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("Expected ErrMalformedRecord, got %v", err)
			}

			var mre *MalformedRecordError
			if !errors.As(err, &mre) {
				t.Fatalf("Expected *MalformedRecordError, got %T", err)
			}
			if mre.Row != 3 {
				t.Errorf("Expected row 3, got %d", mre.Row)
			}
			if mre.Kind != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, mre.Kind)
			}
			if mre.Column != tt.column {
				t.Errorf("Expected column %q, got %q", tt.column, mre.Column)
			}
		})
	}
}

func TestSplitDependencies(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"2;3", []string{"2", "3"}},
		{"7", []string{"7"}},
		{"2;2", []string{"2", "2"}},
	}

	for _, tt := range tests {
		got := SplitDependencies(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitDependencies(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestStringColumnsAreLiteral(t *testing.T) {
	input := header + `4, spaced ,<b>eve</b>,1,1,2024-01-01,2024-01-01,,in review,"a & b, <c>"` + "\n"

	list, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	got := list[0]
	if got.Title != " spaced " {
		t.Errorf("Expected untrimmed title, got %q", got.Title)
	}
	if got.Assignee != "<b>eve</b>" {
		t.Errorf("Expected literal assignee, got %q", got.Assignee)
	}
	if got.Status != "in review" {
		t.Errorf("Expected literal status, got %q", got.Status)
	}
	if got.Description != "a & b, <c>" {
		t.Errorf("Expected literal description, got %q", got.Description)
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	input := header +
		"1,Design,alice,1,3,2024-01-01,2024-01-05,,todo,Design the thing\n" +
		"2,Build,bob,2,5,2024-01-06,2024-01-10,1;99,done,\"Build, then ship\"\n"

	list, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	var sb strings.Builder
	if err := WriteCSV(&sb, list); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	again, err := ReadCSV(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ReadCSV of written output failed: %v", err)
	}
	if !reflect.DeepEqual(list, again) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", again, list)
	}
}
