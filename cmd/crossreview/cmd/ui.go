package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/crossreview/internal/breaker"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tracking"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tui"
)

func newStyles(w io.Writer) tui.Styles {
	return tui.NewStyles(tui.NewDetector(w).NoColor(noColor).ShouldUseColor())
}

// renderRun prints the tracking state with its last historyLimit entries.
// A non-positive limit prints the whole history.
func renderRun(w io.Writer, s tui.Styles, st *tracking.State, historyLimit int) {
	fmt.Fprintln(w, s.Title.Render("Run"))
	if st.RunID != "" {
		s.Row(w, "ID", st.RunID)
	}
	s.Row(w, "Status", s.RunStatus(st.Status))
	s.Row(w, "Iteration", fmt.Sprintf("%d", st.Iteration))
	if st.TargetDirectory != "" {
		s.Row(w, "Target", st.TargetDirectory)
	}
	if !st.StartedAt.IsZero() {
		s.Row(w, "Started", st.StartedAt.Local().Format(time.DateTime))
		s.Row(w, "Updated", st.UpdatedAt.Local().Format(time.DateTime))
	}

	history := st.History
	if historyLimit > 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	if len(history) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, s.Title.Render("History"))
	for _, e := range history {
		who := e.Phase
		if e.Agent != "" {
			who += "/" + e.Agent
		}
		fmt.Fprintf(w, "  %s %-28s %s\n",
			s.Dim.Render(fmt.Sprintf("#%d", e.Iteration)), who, firstLine(e.Result))
	}
}

// renderCircuit prints the breaker snapshot.
func renderCircuit(w io.Writer, s tui.Styles, snap breaker.Snapshot) {
	fmt.Fprintln(w, s.Title.Render("Circuit breaker"))
	s.Row(w, "State", s.CircuitState(snap.State))
	if snap.Reason != "" {
		s.Row(w, "Reason", snap.Reason)
	}
	s.Row(w, "Counters", fmt.Sprintf("no progress %d, disagreement %d, same issues %d",
		snap.ConsecutiveNoProgress, snap.ConsecutiveDisagreement, snap.ConsecutiveSameIssues))
	s.Row(w, "Opens", fmt.Sprintf("%d", snap.TotalOpens))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
