package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/dimreduce/internal/schedule"
)

const (
	width           = 40
	height          = 16
	historyCapacity = 300
)

// Model shows the progress of one run.
type Model struct {
	source   string
	msgs     <-chan tea.Msg
	cancel   context.CancelFunc
	canvas   *Canvas
	last     ProgressMsg
	forces   []float64
	frozen   bool
	showHelp bool
	done     bool
	result   *schedule.Result
	err      error
}

func NewModel(source string, msgs <-chan tea.Msg, cancel context.CancelFunc) Model {
	return Model{
		source: source,
		msgs:   msgs,
		cancel: cancel,
		canvas: NewCanvas(width, height),
		forces: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return wait(m.msgs)
}

func wait(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return DoneMsg{}
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case " ":
			m.frozen = !m.frozen
		case "?":
			m.showHelp = !m.showHelp
		}
	case ProgressMsg:
		if !m.frozen {
			m.last = msg
			if msg.Points != nil {
				m.canvas.Scatter(msg.Points)
			}
		}
		m.forces = append(m.forces, msg.MaxForce)
		if len(m.forces) > historyCapacity {
			m.forces = m.forces[len(m.forces)-historyCapacity:]
		}
		return m, wait(m.msgs)
	case DoneMsg:
		m.done = true
		m.result, m.err = msg.Result, msg.Err
	}
	return m, nil
}

// Done reports whether the run finished, and its outcome.
func (m Model) Done() (bool, *schedule.Result, error) {
	return m.done, m.result, m.err
}

func (m Model) status() string {
	switch {
	case m.done && m.err != nil:
		return statusFailed.Render("FAILED: " + m.err.Error())
	case m.done:
		return statusRunning.Render("DONE")
	case m.frozen:
		return statusFrozen.Render("FROZEN")
	}
	return statusRunning.Render("RUNNING")
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.source)) + "\n")
	s.WriteString(m.status() + "\n\n")

	fraction := 0.0
	if m.last.Total > 0 {
		fraction = float64(m.last.Iter+1) / float64(m.last.Total)
	}
	s.WriteString(ProgressBar(fraction, 30) + "\n\n")

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Iteration", fmt.Sprintf("%d / %d", m.last.Iter+1, m.last.Total))
	row("Phase", m.last.Phase)
	row("Rate", fmt.Sprintf("%.6f", m.last.Rate))
	row("Max force", fmt.Sprintf("%.4g", m.last.MaxForce))
	row("Scaler", fmt.Sprintf("%.4g", m.last.Scaler))
	row("Trend", Sparkline(m.forces, 24))

	if len(m.forces) > 1 {
		chart := asciigraph.Plot(m.forces, asciigraph.Height(5), asciigraph.Width(36), asciigraph.Caption("Max force"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(helpStyle.Render("Q:Quit  SP:Freeze  ?:Help"))

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.canvas.String()),
		statsStyle.Render(s.String()),
	)
	if m.showHelp {
		return `
  Q / Ctrl+C  cancel the run and quit
  Space       freeze the scatter
  ?           toggle this help
` + "\n" + body
	}
	return body
}
