package tui

import (
	"github.com/charmbracelet/lipgloss"

	"mcpreg/internal/registration"
)

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)
	// SelectedStyle highlights the row under the cursor.
	SelectedStyle = lipgloss.NewStyle().Reverse(true)
	// FooterStyle styles key help and status messages.
	FooterStyle = lipgloss.NewStyle().Faint(true)

	statusStyles = map[string]lipgloss.Style{
		registration.Configured.String():    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		registration.MissingConfig.String(): lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		registration.IncorrectPath.String(): lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		registration.Error.String():         lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		registration.NotConfigured.String(): lipgloss.NewStyle().Faint(true),

		// Active states
		"checking":      lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"configuring":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"unregistering": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		"pending": lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for a state name or activity label.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// RenderState renders the state label in its color.
func RenderState(s registration.State) string {
	return StatusStyle(s.String()).Render(s.Label())
}
