package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/fentz26/orbit/internal/hasher"
	"github.com/fentz26/orbit/internal/models"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusCached = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	statusRerun  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	statusFailed = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
)

// RecordItem implements list.Item for a target cache record.
type RecordItem struct {
	State models.TargetState
}

func (i RecordItem) FilterValue() string { return i.State.Target }
func (i RecordItem) Title() string       { return i.State.Target }
func (i RecordItem) Description() string {
	return fmt.Sprintf("%s • %s", formatStatus(i.State), lastRun(i.State.LastRunTime))
}

// formatStatus summarizes whether the next run of a target can be replayed.
func formatStatus(st models.TargetState) string {
	switch {
	case st.ExitCode != 0:
		return statusFailed.Render(fmt.Sprintf("● failed (exit %d)", st.ExitCode))
	case st.Hash == "":
		return statusRerun.Render("● not cached")
	default:
		return statusCached.Render("● cached " + hasher.ShortHash(st.Hash))
	}
}

func lastRun(millis int64) string {
	if millis == 0 {
		return "never run"
	}
	return humanize.Time(time.UnixMilli(millis))
}

// RecordListModel manages the record list screen.
type RecordListModel struct {
	source  Source
	list    list.Model
	records []models.TargetState
	width   int
	height  int
	loading bool
}

// NewRecordListModel creates a new record list model.
func NewRecordListModel(source Source) *RecordListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Cached targets"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = listTitleStyle

	return &RecordListModel{
		source: source,
		list:   l,
	}
}

// Init loads the records.
func (m *RecordListModel) Init() tea.Cmd {
	return m.Refresh()
}

// SetSize sets the list dimensions.
func (m *RecordListModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(w, h)
}

// Selected returns the highlighted record.
func (m *RecordListModel) Selected() *models.TargetState {
	if item, ok := m.list.SelectedItem().(RecordItem); ok {
		st := item.State
		return &st
	}
	return nil
}

// Filtering reports whether the list is capturing keys for its filter.
func (m *RecordListModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Refresh reloads records from the store.
func (m *RecordListModel) Refresh() tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		records, err := m.source.ListTargetStates()
		if err != nil {
			return errMsg{err}
		}
		return recordsLoadedMsg{records}
	}
}

// Update handles messages.
func (m *RecordListModel) Update(msg tea.Msg) (*RecordListModel, tea.Cmd) {
	switch msg := msg.(type) {
	case recordsLoadedMsg:
		m.loading = false
		m.records = msg.records
		items := make([]list.Item, len(m.records))
		for i, r := range m.records {
			items[i] = RecordItem{State: r}
		}
		m.list.SetItems(items)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "r" && !m.Filtering() {
			return m, m.Refresh()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the record list.
func (m *RecordListModel) View() string {
	if m.loading {
		return "Loading cache records..."
	}
	return m.list.View()
}

type recordsLoadedMsg struct {
	records []models.TargetState
}
