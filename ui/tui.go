// Package ui renders the download run dashboard: overall progress,
// per-run counters, the most recent per-job status line, and a scrolling
// log of terminal results.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/franksops/gopull/engine"
)

const maxLogLines = 200

// ProgressMsg carries an advisory per-job update into the model.
type ProgressMsg engine.ProgressEvent

// ResultMsg carries one terminal result and the aggregate after it.
type ResultMsg engine.JobDone

// StoppedMsg reports that a stop request took effect.
type StoppedMsg engine.RunStopped

// CompletedMsg reports the end of the run.
type CompletedMsg engine.RunCompleted

// Model implements tea.Model for the dashboard.
type Model struct {
	spinner  spinner.Model
	progress progress.Model
	viewport viewport.Model

	agg        engine.Aggregate
	statusLine string
	statusPct  int
	logLines   []string

	stopping  bool
	completed bool
	final     engine.RunCompleted

	width  int
	height int

	// stop is invoked when the user asks to cancel the run.
	stop func()

	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	okStyle      lipgloss.Style
	failStyle    lipgloss.Style
	helpStyle    lipgloss.Style
	successStyle lipgloss.Style
}

// NewModel creates a dashboard for a run of total jobs. stop is called
// when the user requests cancellation; it may be nil.
func NewModel(total int, stop func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	prog := progress.New(progress.WithDefaultGradient())

	return Model{
		spinner:      s,
		progress:     prog,
		agg:          engine.Aggregate{Total: total},
		statusLine:   "waiting for downloads to start...",
		stop:         stop,
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		okStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		failStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		helpStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.completed && m.stop != nil {
				m.stop()
			}
			return m, tea.Quit
		case "s":
			if !m.completed && !m.stopping && m.stop != nil {
				m.stopping = true
				m.stop()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 14

		headerHeight := 6
		footerHeight := 2
		vh := msg.Height - headerHeight - footerHeight
		if vh < 1 {
			vh = 1
		}
		m.viewport = viewport.New(msg.Width, vh)
		m.refreshLog()

	case ProgressMsg:
		m.statusLine = msg.Message
		m.statusPct = msg.Percent

	case ResultMsg:
		m.agg = msg.Agg
		m.appendLog(m.resultLine(msg.Result))

	case StoppedMsg:
		m.stopping = true
		m.appendLog(m.infoStyle.Render(
			fmt.Sprintf("stop requested: %d queued jobs dropped, %d still in flight", msg.Dropped, msg.InFlight)))

	case CompletedMsg:
		m.completed = true
		m.final = engine.RunCompleted(msg)
		m.statusLine = "no active downloads"
		m.statusPct = 0

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder

	header := fmt.Sprintf("%s %s", m.spinner.View(), m.titleStyle.Render("gopull Batch Downloader"))
	sb.WriteString(header + "\n")

	settled := m.agg.Finished + m.agg.Failed + m.agg.Cancelled
	var percent float64
	if m.agg.Total > 0 {
		percent = float64(settled) / float64(m.agg.Total)
	}

	counts := fmt.Sprintf("Progress: %d/%d | %d completed, %d failed, %d cancelled | %d active",
		settled, m.agg.Total, m.agg.Finished, m.agg.Failed, m.agg.Cancelled, m.agg.Active)
	sb.WriteString(m.infoStyle.Render(counts) + "\n")
	sb.WriteString(m.progress.ViewAs(percent) + "\n")

	sb.WriteString(fmt.Sprintf("%3d%% %s\n\n", m.statusPct, truncatePath(m.statusLine, m.width-6)))

	sb.WriteString(m.viewport.View())

	help := m.helpStyle.Render("s: stop downloads • q/ctrl+c: quit")
	if m.completed {
		help = m.successStyle.Render(fmt.Sprintf("Run complete: %d ok, %d failed, %d cancelled of %d.",
			m.final.Finished, m.final.Failed, m.final.Cancelled, m.final.Total)) + " Press 'q' to exit."
	} else if m.stopping {
		help = m.helpStyle.Render("stopping... waiting for in-flight downloads to settle • q: quit")
	}
	sb.WriteString("\n" + help)

	return sb.String()
}

func (m *Model) resultLine(res engine.ResultEvent) string {
	path := truncatePath(res.Destination, 60)
	switch res.Status {
	case engine.StatusCompleted:
		return m.okStyle.Render("done   ") + path
	case engine.StatusCancelled:
		return m.infoStyle.Render("cancel ") + path
	default:
		return m.failStyle.Render("failed ") + path + " " + m.infoStyle.Render(res.Err)
	}
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	m.refreshLog()
}

func (m *Model) refreshLog() {
	m.viewport.SetContent(strings.Join(m.logLines, "\n"))
	m.viewport.GotoBottom()
}

// truncatePath shortens a path from the left so the file name stays
// visible.
func truncatePath(path string, max int) string {
	if max < 4 || len(path) <= max {
		return path
	}
	return "..." + path[len(path)-(max-3):]
}
