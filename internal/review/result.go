package review

import (
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/crossreview/internal/breaker"
	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/status"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tracking"
)

// PhaseResult is what one agent produced in one phase of one iteration.
type PhaseResult struct {
	Iteration    int
	Phase        core.Phase
	Agent        string
	Output       string
	ArtifactPath string
	Record       status.Record
	// ParseErr is set when a successful output carried no readable status
	// block; Record then holds status.Default().
	ParseErr error
	Outcome  core.Outcome
	Err      error
	Duration time.Duration
}

// ExitSignal reports whether the agent claimed nothing is left to do.
func (r PhaseResult) ExitSignal() bool {
	return r.Outcome == core.OutcomeSuccess && r.Record.ExitSignal()
}

// Summary renders the result as a single history line.
func (r PhaseResult) Summary() string {
	parts := []string{string(r.Outcome)}
	if s := r.Record.Summary(); s != "" {
		parts = append(parts, s)
	}
	if r.ParseErr != nil {
		parts = append(parts, "(no status block)")
	}
	return strings.Join(parts, " ")
}

// Outcome is the result of a whole run.
type Outcome struct {
	RunID  string          `json:"run_id"`
	Status tracking.Status `json:"status"`
	// Iterations is the number of iterations that ran to completion or to an
	// early halt.
	Iterations int              `json:"iterations"`
	Reason     string           `json:"reason,omitempty"`
	Resumed    bool             `json:"resumed"`
	Breaker    breaker.Snapshot `json:"circuit_breaker"`
}

// ExitCode is the process exit code for the run.
func (o *Outcome) ExitCode() int {
	if o == nil {
		return 1
	}
	return o.Status.ExitCode()
}
