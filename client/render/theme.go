package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/stage"
)

// Theme holds the styles used by the renderer.
type Theme struct {
	Panel      lipgloss.Style
	PanelTitle lipgloss.Style
	Muted      lipgloss.Style
	Status     map[stage.Status]lipgloss.Style
	Role       map[string]lipgloss.Style
	Section    lipgloss.Style
	Danger     lipgloss.Style
	Typing     lipgloss.Style
}

// DefaultTheme is tuned for dark terminals.
func DefaultTheme() *Theme {
	blue := lipgloss.Color("#2563eb")
	teal := lipgloss.Color("#0f766e")
	red := lipgloss.Color("#dc2626")
	green := lipgloss.Color("#16a34a")
	muted := lipgloss.Color("#94a3b8")
	text := lipgloss.Color("#f1f5f9")

	return &Theme{
		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		PanelTitle: lipgloss.NewStyle().Foreground(text).Bold(true),
		Muted:      lipgloss.NewStyle().Foreground(muted),
		Status: map[stage.Status]lipgloss.Style{
			stage.Pending:  lipgloss.NewStyle().Foreground(muted),
			stage.Active:   lipgloss.NewStyle().Foreground(blue).Bold(true),
			stage.Complete: lipgloss.NewStyle().Foreground(green),
		},
		Role: map[string]lipgloss.Style{
			"user":      lipgloss.NewStyle().Foreground(teal).Bold(true),
			"assistant": lipgloss.NewStyle().Foreground(blue).Bold(true),
			"error":     lipgloss.NewStyle().Foreground(red).Bold(true),
		},
		Section: lipgloss.NewStyle().Foreground(teal).Bold(true).Underline(true),
		Danger:  lipgloss.NewStyle().Foreground(red).Bold(true),
		Typing:  lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}
