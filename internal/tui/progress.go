// Package tui renders the progress of a review run: an interactive Bubble
// Tea view on terminals and plain or JSON lines elsewhere.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/events"
)

// maxSummaries bounds the finished-iteration lines kept on screen.
const maxSummaries = 8

// EventMsg carries one bus event into the model.
type EventMsg struct {
	Event events.Event
}

// closedMsg reports that the event channel was closed.
type closedMsg struct{}

// agentView is one agent of the current phase.
type agentView struct {
	name     string
	done     bool
	outcome  string
	duration time.Duration
}

// Model is the Bubble Tea model of a running review.
type Model struct {
	events      <-chan events.Event
	onInterrupt func()
	styles      Styles

	target        string
	resumed       bool
	maxIterations int
	iteration     int
	phase         core.Phase
	agents        []agentView
	circuit       string
	transition    string
	summaries     []string
	finished      *events.RunFinishedEvent
	interrupted   bool

	spinner spinner.Model
	bar     progress.Model
	width   int
}

// NewModel creates a model fed by ch. onInterrupt runs when the user
// presses ctrl+c; the view keeps running until ch is closed.
func NewModel(ch <-chan events.Event, onInterrupt func(), useColor bool) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	styles := NewStyles(useColor)
	sp.Style = styles.Run

	barOpts := []progress.Option{progress.WithWidth(40), progress.WithoutPercentage()}
	if useColor {
		barOpts = append(barOpts, progress.WithDefaultGradient())
	}

	return Model{
		events:      ch,
		onInterrupt: onInterrupt,
		styles:      styles,
		circuit:     "CLOSED",
		spinner:     sp,
		bar:         progress.New(barOpts...),
	}
}

// Init starts the spinner and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.interrupted {
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 20; w > 10 && w < 60 {
			m.bar.Width = w
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m = m.apply(msg.Event)
		return m, waitForEvent(m.events)

	case closedMsg:
		return m, tea.Quit
	}
	return m, nil
}

// apply folds one event into the model.
func (m Model) apply(ev events.Event) Model {
	switch e := ev.(type) {
	case events.RunStartedEvent:
		m.target = e.Target
		m.maxIterations = e.MaxIterations
		m.resumed = e.Resumed
	case events.IterationStartedEvent:
		m.iteration = e.Iteration
		m.phase = 0
		m.agents = nil
	case events.PhaseStartedEvent:
		if p, err := core.ParsePhase(e.Phase); err == nil {
			m.phase = p
		}
		m.agents = make([]agentView, len(e.Agents))
		for i, name := range e.Agents {
			m.agents[i] = agentView{name: name}
		}
	case events.AgentFinishedEvent:
		for i := range m.agents {
			if m.agents[i].name == e.Agent && !m.agents[i].done {
				m.agents[i] = agentView{name: e.Agent, done: true, outcome: e.Outcome, duration: e.Duration}
				break
			}
		}
	case events.IterationFinishedEvent:
		m.circuit = e.BreakerState
		m.summaries = append(m.summaries, IterationSummary(e))
		if len(m.summaries) > maxSummaries {
			m.summaries = m.summaries[len(m.summaries)-maxSummaries:]
		}
	case events.BreakerTransitionEvent:
		m.circuit = e.To
		m.transition = fmt.Sprintf("%s -> %s: %s", e.From, e.To, e.Reason)
	case events.RunFinishedEvent:
		m.finished = &e
	}
	return m
}

// Percent is the share of the iteration budget already spent.
func (m Model) Percent() float64 {
	if m.maxIterations <= 0 || m.iteration == 0 {
		return 0
	}
	if m.finished != nil {
		return 1
	}
	done := float64(m.iteration-1) + float64(m.phase)/float64(len(core.AllPhases()))
	p := done / float64(m.maxIterations)
	if p > 1 {
		return 1
	}
	return p
}

// View renders the model.
func (m Model) View() string {
	s := m.styles
	var b strings.Builder

	verb := "Reviewing"
	if m.resumed {
		verb = "Resuming"
	}
	fmt.Fprintf(&b, "%s %s\n\n", s.Title.Render(verb), m.target)

	if m.iteration > 0 {
		fmt.Fprintf(&b, "Iteration %d/%d  %s\n", m.iteration, m.maxIterations, m.bar.ViewAs(m.Percent()))
	}
	if m.phase.Valid() {
		fmt.Fprintf(&b, "  %s\n", s.Run.Render(m.phase.String()))
		for _, a := range m.agents {
			if a.done {
				fmt.Fprintf(&b, "    %s %s %s %s\n", s.Outcome(a.outcome), a.name, a.outcome,
					s.Dim.Render(a.duration.Round(time.Second).String()))
			} else {
				fmt.Fprintf(&b, "    %s %s\n", m.spinner.View(), a.name)
			}
		}
	}

	if len(m.summaries) > 0 {
		b.WriteString("\n")
		for _, line := range m.summaries {
			fmt.Fprintf(&b, "  %s\n", s.Dim.Render(line))
		}
	}

	fmt.Fprintf(&b, "\nCircuit %s", m.circuit)
	if m.transition != "" {
		fmt.Fprintf(&b, "  %s", s.Dim.Render(m.transition))
	}
	b.WriteString("\n")

	switch {
	case m.finished != nil:
		fmt.Fprintf(&b, "\nFinished: %s after %d iteration(s)\n", m.finished.Status, m.finished.Iterations)
	case m.interrupted:
		b.WriteString(s.Warn.Render("\nInterrupting, waiting for agents to stop...") + "\n")
	default:
		b.WriteString(s.Dim.Render("\nctrl+c to interrupt") + "\n")
	}
	return b.String()
}
