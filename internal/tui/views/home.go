package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/denguemap/internal/engine/style"
	"github.com/rendis/denguemap/internal/tui/styles"
)

type menuItem struct {
	key   string
	label string
	desc  string
	msg   tea.Msg // nil quits
}

type HomeModel struct {
	items  []menuItem
	cursor int
}

func NewHomeModel() HomeModel {
	return HomeModel{
		items: []menuItem{
			{key: "o", label: "Open Map", desc: "Choose feeds and proximity bounds, then open the map", msg: NavigateToSetup{}},
			{key: "l", label: "Open Data File", desc: "Reports .db or boundary .geojson", msg: NavigateToLoad{}},
			{key: "r", label: "Recent Files", desc: "Reopen a recently used data file", msg: NavigateToRecent{}},
			{key: "q", label: "Quit", desc: "Exit denguemap"},
		},
	}
}

func (m HomeModel) Init() tea.Cmd {
	return nil
}

func (m HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		return m, m.selected()
	default:
		for i, item := range m.items {
			if item.key == key.String() {
				m.cursor = i
				return m, m.selected()
			}
		}
	}
	return m, nil
}

func (m HomeModel) selected() tea.Cmd {
	msg := m.items[m.cursor].msg
	if msg == nil {
		return tea.Quit
	}
	return func() tea.Msg { return msg }
}

func (m HomeModel) View() string {
	var b strings.Builder

	logo := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Render("  denguemap")

	tagline := lipgloss.NewStyle().
		Foreground(styles.Secondary).
		Italic(true).
		Render("  Barangay dengue patterns, reports and interventions")

	b.WriteString(logo + "\n")
	b.WriteString(tagline + "\n")

	var legend []string
	for _, l := range style.Legend() {
		legend = append(legend, styles.Swatch(l.Color).Render("■")+" "+l.Label)
	}
	b.WriteString("  " + lipgloss.NewStyle().Foreground(styles.Muted).Render(strings.Join(legend, "  ")) + "\n\n")

	for i, item := range m.items {
		cursor := "  "
		itemStyle := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			itemStyle = styles.ActiveItem
		}

		key := lipgloss.NewStyle().
			Foreground(styles.Secondary).
			Bold(true).
			Render(fmt.Sprintf("[%s]", item.key))

		desc := lipgloss.NewStyle().
			Foreground(styles.Muted).
			Render(" - " + item.desc)

		fmt.Fprintf(&b, "%s%s %s%s\n", cursor, key, itemStyle.Render(item.label), desc)
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("↑↓ navigate • enter select • q quit"))

	return styles.Border.Render(b.String())
}

// Navigation messages
type NavigateToSetup struct{}
type NavigateToLoad struct{}
type NavigateToHome struct{}

// NavigateToMap opens the map screen. Empty paths fall back to the configured sources.
type NavigateToMap struct {
	DBPath       string
	BoundaryPath string
}
