package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("28"))
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("28")).Bold(true)
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(4)
)

const logo = `
  _            _                              _
 | |_ __ _ ___| | ____ _ _ __ __ _ _ __ | |__
 | __/ _' / __| |/ / _' | '__/ _' | '_ \| '_ \
 | || (_| \__ \   < (_| | | | (_| | |_) | | | |
  \__\__,_|___/_|\_\__, |_|  \__,_| .__/|_| |_|
                   |___/          |_|
`

// MenuItem is one command offered by the menu.
type MenuItem struct {
	Command     string
	Description string
}

// Items are the commands reachable from the menu, in display order.
var Items = []MenuItem{
	{"convert", "Read the CSV, write the YAML dump and render the graph"},
	{"render", "Render the graph from the stored tasks"},
	{"import", "Load the CSV into the task store"},
	{"list", "Show the stored tasks"},
	{"web", "Start the browser editor"},
	{"mcp", "Serve the MCP tools on stdio"},
}

type MenuModel struct {
	items    []MenuItem
	cursor   int
	selected string
	quitting bool
}

func NewMenuModel() MenuModel {
	return MenuModel{items: Items}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}

		case "home", "g":
			m.cursor = 0

		case "end", "G":
			m.cursor = len(m.items) - 1

		case "enter":
			m.selected = m.items[m.cursor].Command
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n\n")

	for i, item := range m.items {
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render(fmt.Sprintf("> %s", item.Command)))
			s.WriteString("\n")
			s.WriteString(helpStyle.Render(item.Description))
		} else {
			s.WriteString(itemStyle.Render(fmt.Sprintf("  %s", item.Command)))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n(use arrow keys or j/k to navigate, enter to select, q to quit)\n")

	return s.String()
}

// Selected returns the chosen command, empty when the menu was dismissed.
func (m MenuModel) Selected() string {
	return m.selected
}

func RunMenu() (string, error) {
	m := NewMenuModel()
	p := tea.NewProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
