package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var elapsedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// stopMsg clears the spinner line before the program exits.
type stopMsg struct{}

// SpinnerModel shows a label and the time spent waiting for a reply.
type SpinnerModel struct {
	spinner spinner.Model
	label   string
	started time.Time
	now     func() time.Time
	done    bool
}

func NewSpinner(label string) SpinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return SpinnerModel{spinner: s, label: label, started: time.Now(), now: time.Now}
}

func (m SpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(stopMsg); ok {
		m.done = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m SpinnerModel) View() string {
	if m.done {
		return ""
	}
	view := fmt.Sprintf("%s %s", m.spinner.View(), m.label)
	if elapsed := m.now().Sub(m.started); elapsed >= time.Second {
		view += elapsedStyle.Render(fmt.Sprintf(" (%ds)", int(elapsed.Seconds())))
	}
	return view
}

// StartSpinner shows a spinner with label on out until the returned stop
// function is called. stop clears the line and may be called more than once.
func StartSpinner(out io.Writer, label string) (stop func()) {
	p := tea.NewProgram(NewSpinner(label), tea.WithOutput(out), tea.WithInput(nil))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run()
	}()
	return sync.OnceFunc(func() {
		p.Send(stopMsg{})
		<-done
	})
}
