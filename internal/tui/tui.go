// Package tui is a terminal K selector over the segmentation pipeline.
package tui

import (
	"fmt"
	"strings"
	"time"

	"rfmseg/internal/core"
	"rfmseg/internal/render"
	"rfmseg/internal/segment"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RunFunc clusters the loaded cohort into k segments
type RunFunc func(k int) (*core.SegmentResult, error)

// resultMsg carries a finished run back into Update
type resultMsg struct {
	k      int
	result *core.SegmentResult
	err    error
}

// model represents the state of the TUI application.
type model struct {
	run        RunFunc
	kOptions   []int
	selected   int // index into kOptions
	cohortSize int

	result  *core.SegmentResult // last good result, kept when a run fails
	err     error
	running bool

	width    int
	height   int
	quitting bool
}

var (
	docStyle     = lipgloss.NewStyle().Margin(1, 2)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	activeKStyle = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	kStyle       = lipgloss.NewStyle().Padding(0, 1)
	scoreStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).Padding(0, 1)
)

// newModel returns the initial state, selecting defaultK when it is one of kOptions
func newModel(run RunFunc, kOptions []int, defaultK, cohortSize int) model {
	m := model{
		run:        run,
		kOptions:   kOptions,
		cohortSize: cohortSize,
		running:    len(kOptions) > 0,
	}
	for i, k := range kOptions {
		if k == defaultK {
			m.selected = i
		}
	}
	return m
}

// Init runs the default K
func (m model) Init() tea.Cmd {
	return m.runSelected()
}

func (m *model) runSelected() tea.Cmd {
	if len(m.kOptions) == 0 {
		return nil
	}
	m.running = true
	k := m.kOptions[m.selected]
	run := m.run
	return func() tea.Msg {
		result, err := run(k)
		return resultMsg{k: k, result: result, err: err}
	}
}

// Update handles messages and updates the model accordingly.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case resultMsg:
		// A slower run for an option the user has already moved past
		if len(m.kOptions) == 0 || msg.k != m.kOptions[m.selected] {
			return m, nil
		}
		m.running = false
		if msg.err != nil {
			m.err = fmt.Errorf("k=%d: %w", msg.k, msg.err)
			return m, nil
		}
		m.err = nil
		m.result = msg.result

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "left", "h":
			if m.selected > 0 {
				m.selected--
				cmd := m.runSelected()
				return m, cmd
			}
		case "right", "l":
			if m.selected < len(m.kOptions)-1 {
				m.selected++
				cmd := m.runSelected()
				return m, cmd
			}
		case "enter", "r":
			cmd := m.runSelected()
			return m, cmd
		}
	}

	return m, nil
}

// View renders the TUI.
func (m model) View() string {
	if m.quitting {
		return "Quitting...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Customer segmentation"))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  %d customers", m.cohortSize)))
	b.WriteString("\n\n")

	b.WriteString("Number of clusters: ")
	for i, k := range m.kOptions {
		if i == m.selected {
			b.WriteString(activeKStyle.Render(fmt.Sprint(k)))
		} else {
			b.WriteString(kStyle.Render(fmt.Sprint(k)))
		}
	}
	if m.running {
		b.WriteString(helpStyle.Render("  running..."))
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n\n")
	}

	if m.result != nil {
		panel := scoreStyle.Render(m.result.ScoreText) + "\n"
		if m.result.Quality.Interpretation != "" {
			panel += helpStyle.Render(" "+m.result.Quality.Interpretation) + "\n"
		}
		panel += render.SummaryTable(m.result.Summary)
		panel += helpStyle.Render(fmt.Sprintf("\nk=%d, %d iterations, %s", m.result.K, m.result.Iterations, m.result.Duration.Round(time.Millisecond)))
		b.WriteString(panelStyle.Render(panel))
	}

	b.WriteString(helpStyle.Render("\n\n[←/h] Fewer | [→/l] More | [enter/r] Rerun | [q] Quit"))

	return docStyle.Render(b.String())
}

// StartTUI initializes and starts the Bubble Tea application over a built dataset.
func StartTUI(ds *segment.Dataset, kOptions []int, defaultK int) error {
	run := func(k int) (*core.SegmentResult, error) {
		return segment.Run(ds, k)
	}

	p := tea.NewProgram(newModel(run, kOptions, defaultK, ds.Size()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
