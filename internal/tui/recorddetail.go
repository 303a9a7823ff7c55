package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/fentz26/orbit/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)
)

// maxRuns bounds the attempt history shown for a target.
const maxRuns = 5

// RecordDetailModel shows one target's record, attempts and decisions.
type RecordDetailModel struct {
	source    Source
	state     *models.TargetState
	runs      []models.Run
	decisions []models.PDREntry
	viewport  viewport.Model
	loading   bool
}

// NewRecordDetailModel creates a new record detail model.
func NewRecordDetailModel(source Source) *RecordDetailModel {
	return &RecordDetailModel{
		source:   source,
		viewport: viewport.New(80, 20),
	}
}

// SetRecord selects the record to display.
func (m *RecordDetailModel) SetRecord(st models.TargetState) {
	m.state = &st
	m.runs = nil
	m.decisions = nil
	m.viewport.GotoTop()
}

// SetSize sets the dimensions.
func (m *RecordDetailModel) SetSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h
}

// Refresh loads the attempt history of the selected record.
func (m *RecordDetailModel) Refresh() tea.Cmd {
	if m.state == nil {
		return nil
	}
	m.loading = true
	target := m.state.Target
	return func() tea.Msg {
		runs, err := m.source.GetRunsForTarget(target)
		if err != nil {
			return errMsg{err}
		}
		decisions, err := m.source.ListPDR(target)
		if err != nil {
			return errMsg{err}
		}
		return recordDetailLoadedMsg{target: target, runs: runs, decisions: decisions}
	}
}

// Update handles messages.
func (m *RecordDetailModel) Update(msg tea.Msg) (*RecordDetailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case recordDetailLoadedMsg:
		if m.state == nil || msg.target != m.state.Target {
			return m, nil
		}
		m.loading = false
		m.runs = msg.runs
		m.decisions = msg.decisions
		m.viewport.SetContent(m.render())
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, m.Refresh()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the record detail.
func (m *RecordDetailModel) View() string {
	if m.loading || m.state == nil {
		return "Loading record..."
	}
	return m.viewport.View()
}

func (m *RecordDetailModel) render() string {
	st := m.state
	var b strings.Builder

	b.WriteString(headerStyle.Render(st.Target))
	b.WriteString("\n\n")

	hash := st.Hash
	if hash == "" {
		hash = "(none)"
	}
	b.WriteString(renderField("Status", formatStatus(*st)))
	b.WriteString(renderField("Hash", hash))
	b.WriteString(renderField("Exit code", fmt.Sprintf("%d", st.ExitCode)))
	b.WriteString(renderField("Last run", lastRun(st.LastRunTime)))
	b.WriteString(renderField("Output", fmt.Sprintf("%s stdout, %s stderr",
		humanize.Bytes(uint64(len(st.Stdout))), humanize.Bytes(uint64(len(st.Stderr))))))

	if len(m.runs) > 0 {
		b.WriteString(sectionStyle.Render("Attempts"))
		b.WriteString("\n")
		for i, run := range m.runs {
			if i >= maxRuns {
				b.WriteString(fmt.Sprintf("  ... and %d more attempts\n", len(m.runs)-maxRuns))
				break
			}
			exitStr := statusCached.Render("0")
			if run.ExitCode != 0 {
				exitStr = statusFailed.Render(fmt.Sprintf("%d", run.ExitCode))
			}
			b.WriteString(fmt.Sprintf("  #%d %s (exit: %s, %s)\n", run.Attempt, truncate(run.Command, 60), exitStr, humanize.Time(run.StartedAt)))
		}
	}

	if len(m.decisions) > 0 {
		b.WriteString(sectionStyle.Render("Decisions"))
		b.WriteString("\n")
		for _, d := range m.decisions {
			b.WriteString(fmt.Sprintf("  %s %s: %s\n", d.Action, d.Outcome, truncate(d.Details, 60)))
		}
	}

	if s := strings.TrimSpace(st.Stderr); s != "" {
		b.WriteString(sectionStyle.Render("Stderr"))
		b.WriteString("\n")
		b.WriteString(s)
		b.WriteString("\n")
	}
	if s := strings.TrimSpace(st.Stdout); s != "" {
		b.WriteString(sectionStyle.Render("Stdout"))
		b.WriteString("\n")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return b.String()
}

func renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

type recordDetailLoadedMsg struct {
	target    string
	runs      []models.Run
	decisions []models.PDREntry
}
