package graph

import (
	"html"
	"strings"
	"text/template"

	"github.com/ldi/taskgraph/pkg/models"
)

// Palette maps task status to the font colour of the status line.
type Palette struct {
	Done string
	Todo string
}

// DefaultPalette returns darkgreen for done and red for everything else.
func DefaultPalette() Palette {
	return Palette{Done: "darkgreen", Todo: "red"}
}

// StatusColor returns the colour for a status. Only "done" gets the Done
// colour; any other value, known or not, gets the Todo colour.
func (p Palette) StatusColor(s models.TaskStatus) string {
	if s.IsDone() {
		return p.Done
	}
	return p.Todo
}

var labelTemplate = template.Must(template.New("label").Funcs(template.FuncMap{
	"esc": escapeLabelText,
}).Parse(`<<table border="0" cellborder="0" cellspacing="1">` +
	`<tr><td align="left"><b>{{esc .Title}}</b></td></tr>` +
	`<tr><td align="left">{{esc .Description}}</td></tr>` +
	`<tr><td align="left"><font color="{{esc .Color}}">{{esc .Status}}</font></td></tr>` +
	`</table>>`))

type labelData struct {
	Title       string
	Description string
	Status      string
	Color       string
}

// Label builds the Graphviz HTML-like label for a task: the title in bold,
// the description, and the status in its palette colour. All user text is
// escaped.
func Label(t models.Task, p Palette) string {
	var sb strings.Builder
	// Execute only fails on writer errors, which strings.Builder never returns.
	_ = labelTemplate.Execute(&sb, labelData{
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Color:       p.StatusColor(t.Status),
	})
	return sb.String()
}

// escapeLabelText escapes markup characters and turns newlines into breaks.
func escapeLabelText(s string) string {
	s = html.EscapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", `<br align="left"/>`)
}
