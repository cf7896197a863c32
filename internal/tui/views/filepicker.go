package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rendis/denguemap/internal/engine/geo"
	"github.com/rendis/denguemap/internal/tui/styles"
)

// FilePickerModel browses for a reports database or a boundary GeoJSON file.
// Boundary files are parsed before they can be opened.
type FilePickerModel struct {
	dir     string
	files   []os.DirEntry
	cursor  int
	err     error
	checked map[string]boundaryCheck
}

type boundaryCheck struct {
	areas   int
	skipped int
	err     error
}

type boundaryCheckedMsg struct {
	path  string
	check boundaryCheck
}

func NewFilePickerModel() FilePickerModel {
	cwd, _ := os.Getwd()
	m := FilePickerModel{dir: cwd, checked: map[string]boundaryCheck{}}
	m.loadDir()
	return m
}

func isDataFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".db", ".geojson", ".json":
		return true
	}
	return false
}

func (m *FilePickerModel) loadDir() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.files = nil
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() || isDataFile(name) {
			m.files = append(m.files, e)
		}
	}
	m.cursor = 0
}

func (m FilePickerModel) current() (os.DirEntry, string, bool) {
	if m.cursor >= len(m.files) {
		return nil, "", false
	}
	e := m.files[m.cursor]
	return e, filepath.Join(m.dir, e.Name()), true
}

// checkBoundaries parses a candidate boundary file off the UI goroutine.
func checkBoundaries(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return boundaryCheckedMsg{path: path, check: boundaryCheck{err: err}}
		}
		idx, report, err := geo.Load(data, nil)
		if err != nil {
			return boundaryCheckedMsg{path: path, check: boundaryCheck{err: err}}
		}
		return boundaryCheckedMsg{path: path, check: boundaryCheck{areas: idx.Len(), skipped: len(report.Skipped)}}
	}
}

func (m FilePickerModel) Init() tea.Cmd {
	return nil
}

func (m FilePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case boundaryCheckedMsg:
		m.checked[msg.path] = msg.check
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.files)-1 {
				m.cursor++
			}
		case "enter":
			entry, fullPath, ok := m.current()
			if !ok {
				return m, nil
			}
			if entry.IsDir() {
				m.dir = fullPath
				m.loadDir()
				return m, nil
			}
			if KindOf(fullPath) == RecentReports {
				return m, func() tea.Msg { return NavigateToMap{DBPath: fullPath} }
			}
			check, done := m.checked[fullPath]
			switch {
			case !done:
				return m, checkBoundaries(fullPath)
			case check.err != nil || check.areas == 0:
				return m, nil
			}
			return m, func() tea.Msg { return NavigateToMap{BoundaryPath: fullPath} }
		case "backspace":
			parent := filepath.Dir(m.dir)
			if parent != m.dir {
				m.dir = parent
				m.loadDir()
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		}

		// Validate boundary files as soon as the cursor lands on them.
		if entry, path, ok := m.current(); ok && !entry.IsDir() && KindOf(path) == RecentBoundaries {
			if _, done := m.checked[path]; !done {
				return m, checkBoundaries(path)
			}
		}
	}
	return m, nil
}

func (m FilePickerModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Open Data File"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(m.dir))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		return styles.Border.Render(b.String())
	}

	if len(m.files) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("No .db, .geojson or .json files here"))
	}

	// Show max 15 items
	start := 0
	if m.cursor > 12 {
		start = m.cursor - 12
	}
	end := min(start+15, len(m.files))

	for i := start; i < end; i++ {
		entry := m.files[i]
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		icon := "📁 "
		if !entry.IsDir() {
			if KindOf(entry.Name()) == RecentBoundaries {
				icon = "🗺  "
			} else {
				icon = "💾 "
			}
		}
		fmt.Fprintf(&b, "%s%s%s\n", cursor, icon, style.Render(entry.Name()))
	}

	b.WriteString("\n")
	b.WriteString(m.viewDetail())
	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter open • backspace parent dir • esc back"))

	return styles.Border.Render(b.String())
}

func (m FilePickerModel) viewDetail() string {
	entry, path, ok := m.current()
	if !ok || entry.IsDir() {
		return ""
	}
	muted := lipgloss.NewStyle().Foreground(styles.Muted)
	var line string
	if info, err := entry.Info(); err == nil {
		line = fmt.Sprintf("%s • modified %s", humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
	}
	if KindOf(path) == RecentReports {
		return muted.Render("reports database • " + line)
	}

	check, done := m.checked[path]
	switch {
	case !done:
		return muted.Render("boundary file • checking...")
	case check.err != nil:
		return styles.ErrorText.Render(fmt.Sprintf("not a boundary file: %v", check.err))
	case check.areas == 0:
		return styles.ErrorText.Render("no usable areas in file")
	}
	summary := fmt.Sprintf("boundary file • %d areas", check.areas)
	if check.skipped > 0 {
		summary += fmt.Sprintf(" (%d skipped)", check.skipped)
	}
	return lipgloss.NewStyle().Foreground(styles.Success).Render(summary) + muted.Render(" • "+line)
}
