package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/crossreview/internal/events"
)

// FallbackOutput prints run progress as plain lines or JSON documents for
// non-interactive terminals.
type FallbackOutput struct {
	writer io.Writer
	styles Styles
	json   bool
	mu     sync.Mutex
}

// NewFallbackOutput creates a line printer. With asJSON every event is
// written as one JSON document per line.
func NewFallbackOutput(w io.Writer, useColor, asJSON bool) *FallbackOutput {
	return &FallbackOutput{
		writer: w,
		styles: NewStyles(useColor && !asJSON),
		json:   asJSON,
	}
}

// Consume prints every event received on ch until it is closed.
func (f *FallbackOutput) Consume(ch <-chan events.Event) {
	for ev := range ch {
		f.Handle(ev)
	}
}

// Handle prints one event.
func (f *FallbackOutput) Handle(ev events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.json {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(f.writer, "%s\n", data)
		return
	}

	s := f.styles
	switch e := ev.(type) {
	case events.RunStartedEvent:
		verb := "Reviewing"
		if e.Resumed {
			verb = "Resuming"
		}
		fmt.Fprintf(f.writer, "%s %s (max %d iterations)\n", s.Title.Render(verb), e.Target, e.MaxIterations)
	case events.IterationStartedEvent:
		fmt.Fprintln(f.writer, s.Title.Render(fmt.Sprintf("Iteration %d", e.Iteration)))
	case events.PhaseStartedEvent:
		fmt.Fprintf(f.writer, "  %s %v\n", s.Run.Render(e.Phase), e.Agents)
	case events.AgentFinishedEvent:
		fmt.Fprintf(f.writer, "    %s %s %s %s\n", s.Outcome(e.Outcome), e.Agent, e.Outcome,
			s.Dim.Render(e.Duration.Round(time.Second).String()))
	case events.IterationFinishedEvent:
		fmt.Fprintf(f.writer, "  %s\n", s.Dim.Render(IterationSummary(e)))
	case events.BreakerTransitionEvent:
		fmt.Fprintf(f.writer, "  %s %s -> %s: %s\n", s.Warn.Render("circuit"), e.From, e.To, e.Reason)
	}
}

// IterationSummary describes a finished iteration in one line.
func IterationSummary(e events.IterationFinishedEvent) string {
	if e.Aborted {
		return fmt.Sprintf("#%d aborted, circuit %s", e.Iteration, e.BreakerState)
	}
	agree := "disagree"
	if e.AgentsAgree {
		agree = "agree"
	}
	return fmt.Sprintf("#%d %d files fixed, agents %s, circuit %s",
		e.Iteration, e.FixesMade, agree, e.BreakerState)
}
