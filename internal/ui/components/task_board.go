// Package components holds lipgloss views shared by terminal commands.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/taskgraph/pkg/models"
)

var (
	doneBoxStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("28")).
			Padding(0, 1)

	openBoxStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	boardHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	subTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)
)

// TaskBoard shows a task collection split into complete and incomplete boxes.
type TaskBoard struct {
	Tasks []models.Task
	Width int
	Title string
}

func NewTaskBoard(list []models.Task, width int) *TaskBoard {
	return &TaskBoard{
		Tasks: list,
		Width: width,
		Title: "Tasks",
	}
}

func (b *TaskBoard) View() string {
	var done, open []models.Task
	for _, t := range b.Tasks {
		if t.Status.IsDone() {
			done = append(done, t)
		} else {
			open = append(open, t)
		}
	}

	var boxes []string
	if len(open) > 0 {
		boxes = append(boxes, b.renderBox(fmt.Sprintf("Open (%d)", len(open)), open, openBoxStyle, "✗"))
	}
	if len(done) > 0 {
		boxes = append(boxes, b.renderBox(fmt.Sprintf("Done (%d)", len(done)), done, doneBoxStyle, "✓"))
	}

	var content string
	if len(boxes) == 0 {
		content = placeholderStyle.Render("No tasks loaded")
	} else {
		content = strings.Join(boxes, "\n")
	}

	if b.Title == "" {
		return content
	}
	return boardHeaderStyle.Render(b.Title) + "\n" + content
}

func (b *TaskBoard) renderBox(title string, list []models.Task, style lipgloss.Style, icon string) string {
	subTitle := subTitleStyle.Foreground(style.GetForeground()).Render(title)

	nameWidth := b.Width - 6
	if nameWidth < 0 {
		nameWidth = 0
	}

	var lines []string
	for _, t := range list {
		name := fmt.Sprintf("#%d %s", t.ID, t.Title)
		wrapped := lipgloss.NewStyle().Width(nameWidth).Render(name)
		for i, line := range strings.Split(wrapped, "\n") {
			if i == 0 {
				lines = append(lines, fmt.Sprintf("%s %s", icon, line))
			} else {
				lines = append(lines, fmt.Sprintf("  %s", line))
			}
		}
		lines = append(lines, "  "+detailStyle.Render(details(t)))
	}

	// Width excludes the border.
	boxWidth := b.Width - style.GetHorizontalBorderSize()
	return style.Width(boxWidth).Render(subTitle + "\n" + strings.Join(lines, "\n"))
}

func details(t models.Task) string {
	parts := []string{}
	if t.Assignee != "" {
		parts = append(parts, "@"+t.Assignee)
	}
	if !t.Start.IsZero() || !t.End.IsZero() {
		parts = append(parts, fmt.Sprintf("%s..%s", t.Start, t.End))
	}
	if len(t.Dependencies) > 0 {
		parts = append(parts, "after "+strings.Join(t.Dependencies, ","))
	}
	return strings.Join(parts, "  ")
}
