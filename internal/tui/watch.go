// Package tui renders live training progress in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// EpochMsg reports one completed training epoch.
type EpochMsg struct {
	Index    int
	Loss     float64
	GradNorm float64
	Elapsed  time.Duration
}

// DoneMsg reports the end of training.
type DoneMsg struct {
	Err error
}

// Model is the bubbletea model for the training monitor. Messages
// arrive over a channel fed by the trainer's epoch callback.
type Model struct {
	updates <-chan tea.Msg

	totalEpochs int
	losses      []float64
	last        EpochMsg
	done        bool
	err         error

	width  int
	height int
}

func New(totalEpochs int, updates <-chan tea.Msg) Model {
	return Model{
		updates:     updates,
		totalEpochs: totalEpochs,
		losses:      make([]float64, 0, totalEpochs),
		width:       80,
		height:      24,
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case EpochMsg:
		m.last = msg
		m.losses = append(m.losses, msg.Loss)
		return m, m.waitForUpdate()
	case DoneMsg:
		m.done = true
		m.err = msg.Err
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(cyan.Render("ringsim") + dim.Render("  path-integration training") + "\n\n")

	if len(m.losses) > 0 {
		b.WriteString(m.lossGraph())
		b.WriteString("\n\n")
	}

	b.WriteString(fmt.Sprintf("%s %s\n",
		dim.Render("epoch:"),
		fmt.Sprintf("%d / %d", m.last.Index+1, m.totalEpochs)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		dim.Render("loss:"),
		yellow.Render(fmt.Sprintf("%.6f", m.last.Loss))))
	b.WriteString(fmt.Sprintf("%s %.4f\n", dim.Render("grad norm:"), m.last.GradNorm))
	b.WriteString(fmt.Sprintf("%s %s\n", dim.Render("elapsed:"), m.last.Elapsed.Round(time.Millisecond)))

	switch {
	case m.err != nil:
		b.WriteString("\n" + red.Render("failed: "+m.err.Error()) + "\n")
		b.WriteString(dim.Render("press q to exit"))
	case m.done:
		b.WriteString("\n" + green.Render("training complete") + "\n")
		b.WriteString(dim.Render("press q to exit"))
	default:
		b.WriteString("\n" + dim.Render("press q to stop watching"))
	}

	return b.String()
}

func (m Model) lossGraph() string {
	width := m.width - 12
	if width < 20 {
		width = 20
	}

	data := m.losses
	if len(data) > width {
		data = data[len(data)-width:]
	}

	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(width),
		asciigraph.Caption("loss"),
	)
}
