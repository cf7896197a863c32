package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/denguemap/internal/config"
	"github.com/rendis/denguemap/internal/engine"
	"github.com/rendis/denguemap/internal/engine/feed"
	"github.com/rendis/denguemap/internal/engine/geo"
	"github.com/rendis/denguemap/internal/engine/overlay"
	"github.com/rendis/denguemap/internal/engine/selection"
	"github.com/rendis/denguemap/internal/engine/storage"
	"github.com/rendis/denguemap/internal/engine/style"
	"github.com/rendis/denguemap/internal/export"
	"github.com/rendis/denguemap/internal/model"
	"github.com/rendis/denguemap/internal/tui/components"
	"github.com/rendis/denguemap/internal/tui/styles"
)

type mapFocus int

const (
	focusMap mapFocus = iota
	focusSearch
	focusNearest
)

// sharedState collects session callbacks, which fire on network goroutines,
// until the next tick hands them to the UI. Lives behind a pointer so it
// survives bubbletea's value copies.
type sharedState struct {
	mu       sync.Mutex
	diffs    []overlay.Diff
	camera   *model.FocusCommand
	dataErrs map[string]error
}

func (s *sharedState) drain() ([]overlay.Diff, *model.FocusCommand, map[string]error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	diffs, cam := s.diffs, s.camera
	s.diffs, s.camera = nil, nil
	errs := make(map[string]error, len(s.dataErrs))
	for k, v := range s.dataErrs {
		errs[k] = v
	}
	return diffs, cam, errs
}

func (s *sharedState) clearErrors() {
	s.mu.Lock()
	s.dataErrs = map[string]error{}
	s.mu.Unlock()
}

// MapModel is the interactive map: search box, area dropdown, pin placement,
// info panel and nearest-report table around one engine Session.
type MapModel struct {
	settings  MapSettings
	session   *engine.Session
	store     *storage.Store
	shared    *sharedState
	debouncer *selection.Debouncer

	mapView components.MapView
	search  textinput.Model
	nearest table.Model
	focus   mapFocus

	results   []*model.BoundaryFeature
	resultIdx int
	names     []string
	areaIdx   int
	kinds     map[model.ReportKind]bool
	nearby    []geo.ProximityResult[model.Report]

	status  string
	dataErr map[string]error
	err     error
	width   int
	height  int
}

type mapTickMsg time.Time

type searchSettleMsg struct {
	ticket selection.Ticket
}

type refreshDoneMsg struct {
	Err error
}

func NewMapModel(cfg config.Config, s MapSettings, logger *slog.Logger) MapModel {
	shared := &sharedState{dataErrs: map[string]error{}}

	search := textinput.New()
	search.Placeholder = "Search barangay..."
	search.CharLimit = 60

	m := MapModel{
		settings:  s,
		shared:    shared,
		debouncer: selection.NewDebouncer(cfg.SearchDebounce),
		mapView:   components.NewMapView(60, 20),
		search:    search,
		areaIdx:   -1,
		kinds: map[model.ReportKind]bool{
			model.KindReport:       true,
			model.KindBreedingSite: true,
			model.KindIntervention: true,
		},
	}

	client := feed.NewClient(feed.ClientOptions{
		Timeout: cfg.FeedTimeout,
		Retries: cfg.FeedRetries,
		Logger:  logger,
	})

	opts := engine.Options{
		Boundaries: feed.SharedBoundaries(client, s.Boundaries(), logger),
		AreaZoom:   cfg.DefaultAreaZoom,
		PinZoom:    cfg.DefaultPinZoom,
		Nearest:    geo.NearestOptions{RadiusMeters: s.RadiusMeters, Limit: s.Limit},
		Overlay: overlay.Options{
			ClusterThreshold: cfg.ClusterThreshold,
			ClusterPrecision: cfg.ClusterPrecision,
		},
		RefreshInterval: cfg.RefreshInterval,
		Logger:          logger,
		Callbacks: engine.Callbacks{
			OnOverlayDiff: func(d overlay.Diff) {
				shared.mu.Lock()
				shared.diffs = append(shared.diffs, d)
				shared.mu.Unlock()
			},
			OnFocusCommand: func(c model.FocusCommand) {
				shared.mu.Lock()
				shared.camera = &c
				shared.mu.Unlock()
			},
			OnDataError: func(source string, err error) {
				shared.mu.Lock()
				shared.dataErrs[source] = err
				shared.mu.Unlock()
			},
		},
	}

	if s.ClassificationURL != "" {
		opts.Classifications = &feed.ClassificationFeed{Client: client, URL: s.ClassificationURL}
	}
	switch {
	case s.ReportsDB != "":
		store, err := storage.NewStore(s.ReportsDB)
		if err != nil {
			m.err = fmt.Errorf("opening reports db: %w", err)
		} else {
			m.store = store
			opts.Reports = store
		}
	case s.ReportsURL != "":
		opts.Reports = &feed.ReportsFeed{Client: client, URL: s.ReportsURL}
	}

	m.session = engine.NewSession(opts)
	m.buildTable()
	return m
}

func (m MapModel) Init() tea.Cmd {
	session := m.session
	return tea.Batch(
		func() tea.Msg {
			session.Start(context.Background())
			return nil
		},
		mapTickCmd(),
	)
}

func mapTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return mapTickMsg(t)
	})
}

func (m *MapModel) close() {
	m.session.Close()
	m.debouncer.Stop()
	if m.store != nil {
		m.store.Close()
	}
}

func (m MapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case mapTickMsg:
		m.syncFromSession()
		return m, mapTickCmd()

	case searchSettleMsg:
		if q, ok := m.debouncer.Settle(msg.ticket); ok {
			m.results = m.session.Search(q, 5)
			m.resultIdx = 0
		}
		return m, nil

	case refreshDoneMsg:
		if msg.Err != nil {
			m.status = "Refresh incomplete: " + msg.Err.Error()
		} else {
			m.shared.clearErrors()
			m.status = "Data refreshed"
		}
		return m, nil

	case tea.KeyMsg:
		switch m.focus {
		case focusSearch:
			return m.updateSearch(msg)
		case focusNearest:
			return m.updateNearest(msg)
		default:
			return m.updateMap(msg)
		}
	}
	return m, nil
}

func (m MapModel) updateMap(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.close()
		return m, func() tea.Msg { return NavigateToHome{} }
	case "/":
		m.focus = focusSearch
		m.search.Focus()
		return m, textinput.Blink
	case "tab":
		m.focus = focusNearest
		m.nearest.Focus()
		m.nearest.SetStyles(focusedTableStyles())
		return m, nil
	case "up", "k":
		m.mapView.MoveCursor(-1, 0)
	case "down", "j":
		m.mapView.MoveCursor(1, 0)
	case "left", "h":
		m.mapView.MoveCursor(0, -1)
	case "right", "l":
		m.mapView.MoveCursor(0, 1)
	case "K":
		m.mapView.Pan(1, 0)
	case "J":
		m.mapView.Pan(-1, 0)
	case "H":
		m.mapView.Pan(0, -1)
	case "L":
		m.mapView.Pan(0, 1)
	case "+", "=":
		m.mapView.ZoomIn()
	case "-":
		m.mapView.ZoomOut()
	case "0":
		m.mapView.ZoomReset()
	case "enter", "p":
		v, err := m.session.PlacePin(m.mapView.Cursor())
		m.status = m.describe("Pin", v, err)
	case "a":
		v, err := m.session.ExternalFocus(model.FocusCommand{Kind: model.FocusArea, Target: m.mapView.Cursor()})
		m.status = m.describe("Area", v, err)
	case "]", "[":
		if len(m.names) == 0 {
			m.status = "Boundaries still loading"
			return m, nil
		}
		if msg.String() == "]" {
			m.areaIdx = (m.areaIdx + 1) % len(m.names)
		} else {
			m.areaIdx = (m.areaIdx - 1 + len(m.names)) % len(m.names)
		}
		v, err := m.session.ExternalFocus(model.FocusCommand{Kind: model.FocusArea, Area: m.names[m.areaIdx]})
		m.status = m.describe(m.names[m.areaIdx], v, err)
	case "x":
		m.session.ClearPin()
		m.status = "Pin removed"
	case "c":
		m.session.Clear()
		m.status = "Selection cleared"
	case "1", "2", "3":
		kind := map[string]model.ReportKind{
			"1": model.KindReport, "2": model.KindBreedingSite, "3": model.KindIntervention,
		}[msg.String()]
		m.kinds[kind] = !m.kinds[kind]
		m.session.SetVisibility(overlay.Visibility{Kinds: copyKinds(m.kinds)})
	case "e":
		m.status = m.exportAreas()
	case "r":
		session := m.session
		m.status = "Refreshing..."
		return m, func() tea.Msg {
			return refreshDoneMsg{Err: session.Refresh(context.Background())}
		}
	}
	return m, nil
}

func (m MapModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focus = focusMap
		m.search.Blur()
		m.results = nil
		return m, nil
	case "up":
		if m.resultIdx > 0 {
			m.resultIdx--
		}
		return m, nil
	case "down":
		if m.resultIdx < len(m.results)-1 {
			m.resultIdx++
		}
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.search.Value())
		if m.resultIdx < len(m.results) {
			name = m.results[m.resultIdx].Name
		}
		if name == "" {
			return m, nil
		}
		v, err := m.session.SelectArea(name)
		m.status = m.describe(name, v, err)
		m.focus = focusMap
		m.search.Blur()
		m.search.SetValue("")
		m.results = nil
		m.debouncer.Stop()
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if after := m.search.Value(); after != before {
		t := m.debouncer.Submit(after)
		settle := tea.Tick(m.debouncer.Delay(), func(time.Time) tea.Msg {
			return searchSettleMsg{ticket: t}
		})
		cmd = tea.Batch(cmd, settle)
	}
	return m, cmd
}

func (m MapModel) updateNearest(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "tab":
		m.focus = focusMap
		m.nearest.Blur()
		m.nearest.SetStyles(unfocusedTableStyles())
		return m, nil
	case "enter":
		idx := m.nearest.Cursor()
		if idx >= 0 && idx < len(m.nearby) {
			r := m.nearby[idx].Item
			p, _ := r.Location()
			v, err := m.session.ExternalFocus(model.FocusCommand{Kind: model.FocusPin, Target: p})
			m.status = m.describe("Report "+r.ID, v, err)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.nearest, cmd = m.nearest.Update(msg)
	return m, cmd
}

func (m MapModel) describe(subject string, v selection.Validation, err error) string {
	switch {
	case errors.Is(err, model.ErrAreaNotFound):
		return fmt.Sprintf("%s: no such barangay", subject)
	case err != nil:
		return fmt.Sprintf("%s: %v", subject, err)
	case v == selection.Pending:
		return fmt.Sprintf("%s: queued until boundaries load", subject)
	case v == selection.OutsideCoverage:
		return fmt.Sprintf("%s: outside coverage", subject)
	}
	return fmt.Sprintf("%s: ok", subject)
}

func (m MapModel) exportAreas() string {
	path := "denguemap-areas.csv"
	if m.settings.ReportsDB != "" {
		dir := filepath.Dir(m.settings.ReportsDB)
		base := strings.TrimSuffix(filepath.Base(m.settings.ReportsDB), ".db")
		path = filepath.Join(dir, base+"-areas.csv")
	}
	n, err := export.AreasCSVFile(path, m.session.Index(), m.session.Areas(), m.session.Reports())
	if err != nil {
		return fmt.Sprintf("Export error: %v", err)
	}
	return fmt.Sprintf("Exported %d areas to %s", n, path)
}

func copyKinds(in map[model.ReportKind]bool) map[model.ReportKind]bool {
	out := make(map[model.ReportKind]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// syncFromSession applies what the session produced since the last tick.
func (m *MapModel) syncFromSession() {
	if !m.mapView.HasBounds() {
		if idx := m.session.Index(); idx != nil {
			m.mapView.SetBounds(idx.Bound())
			m.names = idx.Names()
		}
	}

	diffs, camera, dataErrs := m.shared.drain()
	for _, d := range diffs {
		m.mapView.Apply(d)
	}
	if camera != nil {
		m.mapView.Focus(*camera)
	}
	m.dataErr = dataErrs

	m.nearby = m.session.NearestToFocus()
	m.nearest.SetRows(nearestRows(m.nearby))
}

func nearestRows(results []geo.ProximityResult[model.Report]) []table.Row {
	rows := make([]table.Row, len(results))
	for i, r := range results {
		rows[i] = table.Row{
			truncate(r.Item.ID, 10),
			string(r.Item.Kind),
			truncate(r.Item.Status, 10),
			formatDistance(r.DistanceMeters),
		}
	}
	return rows
}

func formatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.2f km", meters/1000)
	}
	return fmt.Sprintf("%.0f m", meters)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func (m *MapModel) buildTable() {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Type", Width: 13},
		{Title: "Status", Width: 10},
		{Title: "Distance", Width: 9},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(6),
	)
	t.SetStyles(unfocusedTableStyles())
	m.nearest = t
}

func focusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	return s
}

func unfocusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Muted)
	s.Selected = s.Selected.
		Foreground(styles.Text).
		Background(lipgloss.Color("#333333")).
		Bold(false)
	return s
}

func (m MapModel) sideWidth() int {
	return 46
}

func (m *MapModel) updateLayout() {
	if m.width <= 0 {
		return
	}
	mapW := m.width - m.sideWidth() - 6
	if mapW < 20 {
		mapW = 20
	}
	mapH := m.height - 8
	if mapH < 8 {
		mapH = 8
	}
	m.mapView.SetSize(mapW, mapH)

	tableH := mapH/2 - 4
	if tableH < 3 {
		tableH = 3
	}
	m.nearest.SetHeight(tableH)
}

func (m MapModel) View() string {
	if m.err != nil {
		return styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" +
			styles.StatusBar.Render("esc back")
	}

	var b strings.Builder

	title := "Quezon City dengue map"
	if !m.session.Ready() {
		title += lipgloss.NewStyle().Foreground(styles.Warning).Render("  loading boundaries...")
	}
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n")

	// Search
	searchStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusSearch {
		searchStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(searchStyle.Render("Search: "))
	b.WriteString(m.search.View())
	b.WriteString("\n")
	if m.focus == focusSearch && len(m.results) > 0 {
		active := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
		inactive := lipgloss.NewStyle().Foreground(styles.Muted)
		for i, r := range m.results {
			if i == m.resultIdx {
				b.WriteString(active.Render("  > " + r.DisplayName))
			} else {
				b.WriteString(inactive.Render("    " + r.DisplayName))
			}
			b.WriteString("\n")
		}
	}

	mapBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Render(m.mapView.View())

	side := lipgloss.JoinVertical(lipgloss.Left,
		m.viewInfoPanel(),
		m.viewNearestPanel(),
		m.viewLegend(),
	)

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, mapBox, " ", side))
	b.WriteString("\n")

	if len(m.dataErr) > 0 {
		var srcs []string
		for src := range m.dataErr {
			srcs = append(srcs, src)
		}
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).
			Render("No data available from: " + strings.Join(srcs, ", ")))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(m.status))
		b.WriteString("\n")
	}

	var statusText string
	switch m.focus {
	case focusMap:
		statusText = "←↑↓→ cursor • enter pin • a area • [ ] cycle • / search • tab nearest • +/- zoom • 1-3 layers • e export • x unpin • c clear • r refresh • esc back"
	case focusSearch:
		statusText = "type to search • ↑↓ choose • enter select • esc back"
	case focusNearest:
		statusText = "↑↓ navigate • enter focus report • esc back to map"
	}
	b.WriteString(styles.StatusBar.Render(statusText))

	return b.String()
}

func (m MapModel) viewInfoPanel() string {
	var sb strings.Builder
	label := lipgloss.NewStyle().Foreground(styles.Muted).Width(10)
	val := lipgloss.NewStyle().Foreground(styles.Text)
	row := func(l, v string) {
		sb.WriteString(label.Render(l))
		sb.WriteString(val.Render(v))
		sb.WriteString("\n")
	}

	f := m.session.Focus()
	row("Focus:", f.State.String())

	if f.Area != nil && f.Area.Boundary != nil {
		a := f.Area
		row("Area:", a.Boundary.DisplayName)
		if a.Boundary.Properties.District != "" {
			row("District:", a.Boundary.Properties.District)
		}
		sb.WriteString(label.Render("Pattern:"))
		sb.WriteString(styles.Swatch(a.Style.Color).Render(a.Style.Label))
		sb.WriteString("\n")
		sb.WriteString(label.Render("Risk:"))
		sb.WriteString(styles.RiskBadge(a.Style.RiskLevel))
		sb.WriteString("\n")
		if c := a.Classification; c != nil {
			if c.AlertText != "" {
				row("Alert:", truncate(c.AlertText, m.sideWidth()-14))
			}
			if c.LastAnalysisTime != nil {
				row("Analyzed:", c.LastAnalysisTime.Format("2006-01-02 15:04"))
			}
		}
		if in, err := m.session.ReportsIn(a.Boundary.Name); err == nil {
			row("Reports:", fmt.Sprintf("%d", len(in)))
		}
	}

	if p := f.Pin; p != nil {
		row("Pin:", fmt.Sprintf("%.5f, %.5f", p.Lat(), p.Lng()))
		switch {
		case !p.Valid:
			sb.WriteString(label.Render(""))
			sb.WriteString(styles.ErrorText.Render("outside coverage"))
			sb.WriteString("\n")
		case p.ContainingArea != nil && p.ContainingArea.Boundary != nil:
			row("In:", p.ContainingArea.Boundary.DisplayName)
		}
	}

	c := m.mapView.Cursor()
	row("Cursor:", fmt.Sprintf("%.5f, %.5f", c.Lat(), c.Lon()))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(m.sideWidth()).
		Render(lipgloss.NewStyle().Bold(true).Foreground(styles.Secondary).Render("Details") + "\n" + sb.String())
}

func (m MapModel) viewNearestPanel() string {
	border := styles.Muted
	if m.focus == focusNearest {
		border = styles.Primary
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(styles.Secondary).Render("Nearest reports")
	body := m.nearest.View()
	if len(m.nearby) == 0 {
		body = lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("Place a pin or select an area\nto list nearby reports")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(m.sideWidth()).
		Render(header + "\n" + body)
}

func (m MapModel) viewLegend() string {
	var parts []string
	for _, l := range style.Legend() {
		parts = append(parts, styles.Swatch(l.Color).Render("■ "+l.Label))
	}
	layers := []string{}
	for i, k := range []model.ReportKind{model.KindReport, model.KindBreedingSite, model.KindIntervention} {
		mark := "○"
		if m.kinds[k] {
			mark = "●"
		}
		layers = append(layers, fmt.Sprintf("%d %s %s", i+1, mark, k))
	}
	return lipgloss.NewStyle().Padding(0, 1).Width(m.sideWidth()).Render(
		strings.Join(parts, "  ") + "\n" +
			lipgloss.NewStyle().Foreground(styles.Muted).Render(strings.Join(layers, "  ")))
}
