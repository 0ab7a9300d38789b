package ui

import "github.com/charmbracelet/lipgloss"

// Category colors for visual differentiation.
var categoryColors = map[string]lipgloss.Color{
	"wire":     lipgloss.Color("#f85149"), // red - breaking
	"tech":     lipgloss.Color("#58a6ff"), // blue
	"ai":       lipgloss.Color("#d2a8ff"), // purple
	"science":  lipgloss.Color("#7ee787"), // green
	"finance":  lipgloss.Color("#ffa657"), // orange
	"security": lipgloss.Color("#f85149"), // red
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#c9d1d9"))

	statusOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3fb950"))

	statusBadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f85149"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c9d1d9"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#1f6feb"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e"))

	bookmarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d29922"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#484f58"))
)

func categoryStyle(category string) lipgloss.Style {
	color, ok := categoryColors[category]
	if !ok {
		color = lipgloss.Color("#8b949e")
	}
	return lipgloss.NewStyle().Foreground(color)
}
