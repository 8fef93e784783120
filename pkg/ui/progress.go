package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// IngestModel shows how many documents an ingest run has stored.
type IngestModel struct {
	total    int
	done     int
	chunks   int
	label    string
	lastPage string
	spinner  spinner.Model
	progress progress.Model
	finished bool
}

// FileIngestedMsg reports one stored document.
type FileIngestedMsg struct {
	Page   string
	Chunks int
}

// NewIngestProgram creates a progress display for total documents.
func NewIngestProgram(total int, label string, out io.Writer) *tea.Program {
	return tea.NewProgram(NewIngestModel(total, label), tea.WithOutput(out), tea.WithInput(nil))
}

func NewIngestModel(total int, label string) IngestModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(24),
		progress.WithoutPercentage(),
	)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	return IngestModel{
		total:    total,
		label:    label,
		spinner:  s,
		progress: p,
		finished: total == 0,
	}
}

func (m IngestModel) Init() tea.Cmd {
	if m.finished {
		return tea.Quit
	}
	return m.spinner.Tick
}

func (m IngestModel) View() string {
	if m.finished {
		check := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).SetString("✓")
		text := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		return fmt.Sprintf("%s %s\n", check, text.Render(fmt.Sprintf("%s (%d documents, %d chunks)", m.label, m.done, m.chunks)))
	}

	countStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	count := countStyle.Render(fmt.Sprintf("( %d/%d )", m.done, m.total))
	view := fmt.Sprintf("%s Ingesting %s %s %s", m.spinner.View(), m.label, m.progress.View(), count)

	if m.lastPage != "" {
		pageStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
		page := m.lastPage
		if len(page) > 80 {
			page = page[:77] + "..."
		}
		view += "\n  " + pageStyle.Render(page)
	}
	return view
}

func (m IngestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case FileIngestedMsg:
		m.done++
		m.chunks += msg.Chunks
		m.lastPage = msg.Page
		if m.done >= m.total {
			m.finished = true
			return m, tea.Quit
		}
		return m, m.progress.SetPercent(float64(m.done) / float64(m.total))

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}
