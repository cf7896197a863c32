package views

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/denguemap/internal/config"
	"github.com/rendis/denguemap/internal/engine/feed"
	"github.com/rendis/denguemap/internal/tui/styles"
)

const (
	fieldClassificationURL = iota
	fieldReportsURL
	fieldReportsDB
	fieldBoundaryPath
	fieldRadius
	fieldLimit
	fieldCount
)

// MapSettings are the data sources and proximity bounds a map screen opens with.
type MapSettings struct {
	ClassificationURL string
	ReportsURL        string
	ReportsDB         string
	BoundaryPath      string
	BoundaryURL       string
	RadiusMeters      float64
	Limit             int
}

// SettingsFromConfig seeds MapSettings from the loaded configuration. A
// configured boundary URL takes precedence over a configured path, as on the
// command line.
func SettingsFromConfig(cfg config.Config) MapSettings {
	s := MapSettings{
		ClassificationURL: cfg.ClassificationURL,
		ReportsURL:        cfg.ReportsURL,
		ReportsDB:         cfg.ReportsDB,
		BoundaryURL:       cfg.BoundaryURL,
		RadiusMeters:      cfg.NearestRadiusM,
		Limit:             cfg.NearestLimit,
	}
	if s.BoundaryURL == "" {
		s.BoundaryPath = cfg.BoundaryPath
	}
	return s
}

// Boundaries picks the boundary dataset. A file the user chose wins over the
// configured URL.
func (s MapSettings) Boundaries() feed.BoundarySource {
	if s.BoundaryPath != "" {
		return feed.BoundarySource{Path: s.BoundaryPath}
	}
	return feed.BoundarySource{URL: s.BoundaryURL}
}

type SetupModel struct {
	inputs      []textinput.Model
	focused     int
	err         string
	boundaryURL string
}

func NewSetupModel(defaults MapSettings) SetupModel {
	inputs := make([]textinput.Model, fieldCount)
	inputs[fieldClassificationURL] = newInput("https://api.example/classifications", defaults.ClassificationURL, 60)
	inputs[fieldReportsURL] = newInput("https://api.example/reports", defaults.ReportsURL, 60)
	inputs[fieldReportsDB] = newInput("optional: reports.db", defaults.ReportsDB, 50)
	boundaryHint := "empty = bundled Quezon City barangays"
	if defaults.BoundaryURL != "" {
		boundaryHint = "empty = " + defaults.BoundaryURL
	}
	inputs[fieldBoundaryPath] = newInput(boundaryHint, defaults.BoundaryPath, 50)
	inputs[fieldRadius] = newInput("1000", formatFloat(defaults.RadiusMeters), 10)
	inputs[fieldLimit] = newInput("5", strconv.Itoa(defaults.Limit), 5)
	inputs[fieldClassificationURL].Focus()

	return SetupModel{inputs: inputs, boundaryURL: defaults.BoundaryURL}
}

func newInput(placeholder, value string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	if width > 0 {
		ti.Width = width
	}
	if value != "" {
		ti.SetValue(value)
	}
	return ti
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		case "up", "shift+tab":
			m.err = ""
			return m, m.focusAt(m.focused - 1)
		case "down", "tab":
			m.err = ""
			return m, m.focusAt(m.focused + 1)
		case "enter":
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m *SetupModel) focusAt(idx int) tea.Cmd {
	m.inputs[m.focused].Blur()
	m.focused = (idx + fieldCount) % fieldCount
	m.inputs[m.focused].Focus()
	return textinput.Blink
}

func (m *SetupModel) value(idx int) string {
	return strings.TrimSpace(m.inputs[idx].Value())
}

func (m *SetupModel) submit() tea.Cmd {
	s := MapSettings{
		ClassificationURL: m.value(fieldClassificationURL),
		ReportsURL:        m.value(fieldReportsURL),
		ReportsDB:         m.value(fieldReportsDB),
		BoundaryPath:      m.value(fieldBoundaryPath),
		BoundaryURL:       m.boundaryURL,
	}

	for _, u := range []string{s.ClassificationURL, s.ReportsURL} {
		if u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			m.err = fmt.Sprintf("%q is not an http(s) URL", u)
			return nil
		}
	}
	if s.BoundaryPath != "" {
		if _, err := os.Stat(s.BoundaryPath); err != nil {
			m.err = fmt.Sprintf("Boundary file: %v", err)
			return nil
		}
	}

	if v := m.value(fieldRadius); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r < 0 {
			m.err = "Radius must be a non-negative number of meters"
			return nil
		}
		s.RadiusMeters = r
	}
	if v := m.value(fieldLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			m.err = "Limit must be a non-negative integer"
			return nil
		}
		s.Limit = n
	}

	return func() tea.Msg { return StartMapMsg{Settings: s} }
}

func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Open Map") + "\n\n")

	b.WriteString(styles.Subtitle.Render("Feeds") + "\n")
	b.WriteString(m.renderField("Classific.:", fieldClassificationURL))
	b.WriteString(m.renderField("Reports:", fieldReportsURL))
	b.WriteString(m.renderField("Reports DB:", fieldReportsDB))
	b.WriteString(m.renderField("Boundaries:", fieldBoundaryPath))
	b.WriteString("\n")

	b.WriteString(styles.Subtitle.Render("Nearest reports") + "\n")
	b.WriteString(m.renderField("Radius (m):", fieldRadius))
	b.WriteString(m.renderField("Limit:", fieldLimit))
	if m.focused == fieldRadius || m.focused == fieldLimit {
		hint := lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("  0 = unbounded")
		b.WriteString(hint + "\n")
	}

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render("  " + m.err))
	}

	b.WriteString("\n\n")
	b.WriteString(styles.StatusBar.Render("enter open • tab next • esc back"))

	return styles.Border.Render(b.String())
}

func (m SetupModel) renderField(label string, idx int) string {
	l := styles.Label.Render(label)
	v := m.inputs[idx].View()
	return fmt.Sprintf("%s %s\n", l, v)
}

// StartMapMsg opens the map screen with explicit settings.
type StartMapMsg struct {
	Settings MapSettings
}
