package cmd

import (
	"github.com/JA3G3R/reviewcrew/types"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	severityStyles = map[types.Severity]lipgloss.Style{
		types.SevCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		types.SevHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		types.SevMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		types.SevLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

func severityLabel(s types.Severity) string {
	if st, ok := severityStyles[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}

// renderMarkdown formats markdown for the terminal, falling back to the
// raw text when the renderer fails.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
