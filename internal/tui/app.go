// Package tui provides the interactive browser of Orbit's cache records.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(lipgloss.Color("#F9FAFB")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)
)

type mode int

const (
	modeList mode = iota
	modeDetail
)

// App is the main TUI application model.
type App struct {
	list    *RecordListModel
	detail  *RecordDetailModel
	mode    mode
	width   int
	height  int
	message string
}

// New creates a new TUI application.
func New(source Source) *App {
	return &App{
		list:   NewRecordListModel(source),
		detail: NewRecordDetailModel(source),
		mode:   modeList,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return a.list.Init()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// leave room for the status bar
		a.list.SetSize(msg.Width, msg.Height-2)
		a.detail.SetSize(msg.Width, msg.Height-2)
		return a, nil

	case errMsg:
		a.message = msg.Error()
		a.list.loading = false
		a.detail.loading = false
		return a, nil

	case recordsLoadedMsg:
		a.message = ""
		a.list, cmd = a.list.Update(msg)
		return a, cmd

	case recordDetailLoadedMsg:
		a.detail, cmd = a.detail.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.mode == modeList && !a.list.Filtering() {
				return a, tea.Quit
			}
		case "esc":
			if a.mode == modeDetail {
				a.mode = modeList
				return a, nil
			}
		case "enter":
			if a.mode == modeList && !a.list.Filtering() {
				if st := a.list.Selected(); st != nil {
					a.mode = modeDetail
					a.detail.SetRecord(*st)
					return a, a.detail.Refresh()
				}
			}
		}
	}

	if a.mode == modeDetail {
		a.detail, cmd = a.detail.Update(msg)
	} else {
		a.list, cmd = a.list.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	var body, help string
	if a.mode == modeDetail {
		body = a.detail.View()
		help = "↑/↓ scroll • r refresh • esc back • ctrl+c quit"
	} else {
		body = a.list.View()
		help = "enter details • / filter • r refresh • q quit"
	}

	status := helpStyle.Render(help)
	if a.message != "" {
		status = errorStyle.Render(a.message)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, statusBarStyle.Render(status))
}
