package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/denguemap/internal/config"
	"github.com/rendis/denguemap/internal/logger"
	"github.com/rendis/denguemap/internal/tui/views"
)

type viewID int

const (
	viewHome viewID = iota
	viewSetup
	viewMap
	viewFilePicker
	viewRecent
)

// App is the root bubbletea model.
type App struct {
	cfg         config.Config
	currentView viewID
	width       int
	height      int
	home        views.HomeModel
	setup       views.SetupModel
	mapScreen   views.MapModel
	filePicker  views.FilePickerModel
	recent      views.RecentModel
}

func NewApp(cfg config.Config) App {
	return App{
		cfg:         cfg,
		currentView: viewHome,
		home:        views.NewHomeModel(),
	}
}

func (a App) Init() tea.Cmd {
	return a.home.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case views.NavigateToSetup:
		a.currentView = viewSetup
		a.setup = views.NewSetupModel(views.SettingsFromConfig(a.cfg))
		return a, a.setup.Init()
	case views.NavigateToHome:
		a.currentView = viewHome
		return a, nil
	case views.NavigateToLoad:
		a.currentView = viewFilePicker
		a.filePicker = views.NewFilePickerModel()
		return a, a.filePicker.Init()
	case views.StartMapMsg:
		return a.openMap(msg.Settings)
	case views.NavigateToMap:
		s := views.SettingsFromConfig(a.cfg)
		if msg.DBPath != "" {
			s.ReportsDB = msg.DBPath
			SaveRecent(msg.DBPath)
		}
		if msg.BoundaryPath != "" {
			s.BoundaryPath = msg.BoundaryPath
			SaveRecent(msg.BoundaryPath)
		}
		return a.openMap(s)
	case views.NavigateToRecent:
		a.currentView = viewRecent
		a.recent = views.NewRecentModel(LoadRecent())
		return a, a.recent.Init()
	case views.ForgetRecentMsg:
		ForgetRecent(msg.Path)
		return a, nil
	}

	var cmd tea.Cmd
	switch a.currentView {
	case viewHome:
		var m tea.Model
		m, cmd = a.home.Update(msg)
		a.home = m.(views.HomeModel)
	case viewSetup:
		var m tea.Model
		m, cmd = a.setup.Update(msg)
		a.setup = m.(views.SetupModel)
	case viewMap:
		var m tea.Model
		m, cmd = a.mapScreen.Update(msg)
		a.mapScreen = m.(views.MapModel)
	case viewFilePicker:
		var m tea.Model
		m, cmd = a.filePicker.Update(msg)
		a.filePicker = m.(views.FilePickerModel)
	case viewRecent:
		var m tea.Model
		m, cmd = a.recent.Update(msg)
		a.recent = m.(views.RecentModel)
	}

	return a, cmd
}

func (a App) openMap(s views.MapSettings) (tea.Model, tea.Cmd) {
	a.currentView = viewMap
	a.mapScreen = views.NewMapModel(a.cfg, s, logger.L())
	return a, tea.Batch(a.mapScreen.Init(), a.sizeCmd())
}

func (a App) View() string {
	var content string
	switch a.currentView {
	case viewHome:
		content = a.home.View()
	case viewSetup:
		content = a.setup.View()
	case viewMap:
		content = a.mapScreen.View()
	case viewFilePicker:
		content = a.filePicker.View()
	case viewRecent:
		content = a.recent.View()
	}

	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// sizeCmd sends a WindowSizeMsg so newly created views get the current terminal size.
func (a App) sizeCmd() tea.Cmd {
	w, h := a.width, a.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

// Run starts the TUI.
func Run(cfg config.Config) error {
	p := tea.NewProgram(NewApp(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
