package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/denguemap/internal/tui/styles"
)

// RecentKind says what a remembered file feeds into the map.
type RecentKind string

const (
	RecentReports    RecentKind = "reports"
	RecentBoundaries RecentKind = "boundaries"
)

// KindOf classifies a data file by extension.
func KindOf(path string) RecentKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return RecentBoundaries
	default:
		return RecentReports
	}
}

type RecentEntry struct {
	Path     string
	Kind     RecentKind
	OpenedAt time.Time
}

// open builds the navigation message that loads the entry on the map.
func (e RecentEntry) open() tea.Msg {
	if e.Kind == RecentBoundaries {
		return NavigateToMap{BoundaryPath: e.Path}
	}
	return NavigateToMap{DBPath: e.Path}
}

type RecentModel struct {
	entries []RecentEntry
	cursor  int
}

func NewRecentModel(entries []RecentEntry) RecentModel {
	return RecentModel{entries: entries}
}

func (m RecentModel) Init() tea.Cmd {
	return nil
}

func (m RecentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.entries) {
				e := m.entries[m.cursor]
				if _, err := os.Stat(e.Path); err != nil {
					return m, nil
				}
				return m, e.open
			}
		case "d", "delete":
			if m.cursor < len(m.entries) {
				path := m.entries[m.cursor].Path
				m.entries = append(m.entries[:m.cursor:m.cursor], m.entries[m.cursor+1:]...)
				if m.cursor >= len(m.entries) && m.cursor > 0 {
					m.cursor--
				}
				return m, func() tea.Msg { return ForgetRecentMsg{Path: path} }
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		}
	}
	return m, nil
}

func (m RecentModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Recent Data Files"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("No recent reports databases or boundary files"))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return styles.Border.Render(b.String())
	}

	kindStyle := lipgloss.NewStyle().Foreground(styles.Secondary).Width(11)
	for i, entry := range m.entries {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		name := filepath.Base(entry.Path)
		nameStr := style.Render(name)
		if _, err := os.Stat(entry.Path); os.IsNotExist(err) {
			nameStr = lipgloss.NewStyle().Foreground(styles.Error).Strikethrough(true).Render(name)
		}

		meta := lipgloss.NewStyle().Foreground(styles.Muted).Render(
			fmt.Sprintf("  %s  %s", filepath.Dir(entry.Path), timeAgo(entry.OpenedAt)))

		fmt.Fprintf(&b, "%s%s%s\n%s\n", cursor, kindStyle.Render(string(entry.Kind)), nameStr, meta)
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter open • d forget • esc back"))

	return styles.Border.Render(b.String())
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// NavigateToRecent signals navigation to the recent files view.
type NavigateToRecent struct{}

// ForgetRecentMsg removes a file from the recent list.
type ForgetRecentMsg struct {
	Path string
}
