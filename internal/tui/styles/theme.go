package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/denguemap/internal/engine/style"
	"github.com/rendis/denguemap/internal/model"
)

var (
	// Chrome
	Primary   = lipgloss.Color("#7C3AED") // violet
	Secondary = lipgloss.Color("#06B6D4") // cyan
	Warning   = lipgloss.Color("#F59E0B") // amber
	Text      = lipgloss.Color("#E5E7EB") // light gray

	// Shared with the map palette so status text and area fills agree.
	Success = hex(style.ColorFor(model.PatternDecline))
	Error   = hex(style.ColorFor(model.PatternSpike))
	Muted   = hex(style.ColorFor(model.PatternNone))

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Secondary)

	Label = lipgloss.NewStyle().
		Foreground(Muted).
		Width(14)

	ActiveItem = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	InactiveItem = lipgloss.NewStyle().
			Foreground(Muted)

	StatusBar = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1)

	Border = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(1, 2)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

func hex(c model.Color) lipgloss.Color {
	return lipgloss.Color(c.Hex)
}

// Swatch renders text in a palette color from the engine.
func Swatch(c model.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(hex(c)).Bold(true)
}

var riskColors = map[model.RiskLevel]model.Color{
	model.RiskHigh:   style.ColorFor(model.PatternSpike),
	model.RiskMedium: style.ColorFor(model.PatternGradualRise),
	model.RiskLow:    style.ColorFor(model.PatternDecline),
}

// RiskBadge renders a risk level as a reversed label, gray when unknown.
func RiskBadge(r model.RiskLevel) string {
	c, ok := riskColors[r]
	if !ok {
		c = style.ColorFor(model.PatternNone)
		r = model.RiskUnknown
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#111827")).
		Background(hex(c)).
		Bold(true).
		Padding(0, 1).
		Render(string(r))
}
