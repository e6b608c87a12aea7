package breaker

import (
	"fmt"
	"time"
)

// State is the breaker position.
type State string

const (
	// StateClosed allows iterations normally.
	StateClosed State = "CLOSED"
	// StateHalfOpen still allows iterations but signals possible stagnation.
	StateHalfOpen State = "HALF_OPEN"
	// StateOpen halts the review loop until an explicit reset.
	StateOpen State = "OPEN"
)

// Valid reports whether s is one of the three breaker positions.
func (s State) Valid() bool {
	switch s {
	case StateClosed, StateHalfOpen, StateOpen:
		return true
	}
	return false
}

// ReasonManualReset is the fixed reason carried while the breaker is open.
const ReasonManualReset = "manual reset required"

// stagnationLevel is the counter value at which a closed breaker half-opens.
const stagnationLevel = 2

// Default thresholds.
const (
	DefaultNoProgressThreshold   = 3
	DefaultDisagreementThreshold = 5
	DefaultSameIssuesThreshold   = 3
)

// Thresholds configure when the breaker opens. Non-positive values fall back
// to the defaults.
type Thresholds struct {
	NoProgress   int `json:"no_progress" mapstructure:"no_progress_threshold"`
	Disagreement int `json:"disagreement" mapstructure:"disagreement_threshold"`
	SameIssues   int `json:"same_issues" mapstructure:"same_issues_threshold"`
}

// DefaultThresholds returns 3/5/3.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NoProgress:   DefaultNoProgressThreshold,
		Disagreement: DefaultDisagreementThreshold,
		SameIssues:   DefaultSameIssuesThreshold,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.NoProgress <= 0 {
		t.NoProgress = d.NoProgress
	}
	if t.Disagreement <= 0 {
		t.Disagreement = d.Disagreement
	}
	if t.SameIssues <= 0 {
		t.SameIssues = d.SameIssues
	}
	return t
}

// Snapshot is the persisted breaker record.
type Snapshot struct {
	State                   State     `json:"state"`
	ConsecutiveNoProgress   int       `json:"consecutive_no_progress"`
	ConsecutiveDisagreement int       `json:"consecutive_disagreement"`
	ConsecutiveSameIssues   int       `json:"consecutive_same_issues"`
	LastProgressIteration   int       `json:"last_progress_iteration"`
	TotalOpens              int       `json:"total_opens"`
	LastIssuesHash          string    `json:"last_issues_hash"`
	Reason                  string    `json:"reason"`
	CurrentIteration        int       `json:"current_iteration"`
	LastChange              time.Time `json:"last_change,omitempty"`
}

// valid rejects snapshots that decode but cannot have been written by Step.
func (s Snapshot) valid() error {
	if !s.State.Valid() {
		return fmt.Errorf("unknown state %q", s.State)
	}
	if s.ConsecutiveNoProgress < 0 || s.ConsecutiveDisagreement < 0 || s.ConsecutiveSameIssues < 0 ||
		s.TotalOpens < 0 || s.LastProgressIteration < 0 || s.CurrentIteration < 0 {
		return fmt.Errorf("negative counter in %+v", s)
	}
	return nil
}

// InitialSnapshot is the state of a breaker that has never run.
func InitialSnapshot() Snapshot {
	return Snapshot{State: StateClosed}
}

// Transition is one entry of the audit log.
type Transition struct {
	Timestamp time.Time `json:"timestamp"`
	Iteration int       `json:"iteration"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	Reason    string    `json:"reason"`
}

// Result is the per-iteration input to the transition function.
type Result struct {
	Iteration   int
	FixesMade   int
	AgentsAgree bool
	Fingerprint string
}

// Step applies one iteration result to s and returns the new snapshot. The
// returned bool reports whether the state changed. Step is pure: it does not
// stamp times or touch storage.
func Step(s Snapshot, t Thresholds, r Result) (Snapshot, bool) {
	t = t.withDefaults()
	next := s
	if !next.State.Valid() {
		next.State = StateClosed
	}
	from := next.State
	next.CurrentIteration = r.Iteration

	if r.FixesMade > 0 {
		next.ConsecutiveNoProgress = 0
		next.LastProgressIteration = r.Iteration
	} else {
		next.ConsecutiveNoProgress++
	}

	if r.AgentsAgree {
		next.ConsecutiveDisagreement = 0
	} else {
		next.ConsecutiveDisagreement++
	}

	// Run length of identical non-empty fingerprints, current iteration included.
	switch {
	case r.Fingerprint == "":
		next.ConsecutiveSameIssues = 0
	case r.Fingerprint == s.LastIssuesHash:
		next.ConsecutiveSameIssues++
	default:
		next.ConsecutiveSameIssues = 1
	}
	next.LastIssuesHash = r.Fingerprint

	switch from {
	case StateClosed:
		if reason, trip := openReason(next, t); trip {
			next.State = StateOpen
			next.Reason = reason
		} else if next.ConsecutiveNoProgress >= stagnationLevel || next.ConsecutiveDisagreement >= stagnationLevel {
			next.State = StateHalfOpen
			next.Reason = fmt.Sprintf("possible stagnation: %d iterations without progress, %d with disagreement",
				next.ConsecutiveNoProgress, next.ConsecutiveDisagreement)
		} else {
			next.Reason = ""
		}

	case StateHalfOpen:
		switch {
		case r.FixesMade > 0 && r.AgentsAgree:
			next.State = StateClosed
			next.Reason = "recovered: fixes applied with agent agreement"
		case next.ConsecutiveNoProgress >= t.NoProgress:
			next.State = StateOpen
			next.Reason = noProgressReason(next)
		}

	case StateOpen:
		next.Reason = ReasonManualReset
	}

	if from != StateOpen && next.State == StateOpen {
		next.TotalOpens++
	}
	return next, next.State != from
}

// openReason checks the thresholds in priority order: no progress, then
// disagreement, then repeated issues.
func openReason(s Snapshot, t Thresholds) (string, bool) {
	switch {
	case s.ConsecutiveNoProgress >= t.NoProgress:
		return noProgressReason(s), true
	case s.ConsecutiveDisagreement >= t.Disagreement:
		return fmt.Sprintf("agent disagreement: agents disagreed for %d consecutive iterations", s.ConsecutiveDisagreement), true
	case s.ConsecutiveSameIssues >= t.SameIssues:
		return fmt.Sprintf("same issues: identical issues reported for %d consecutive iterations", s.ConsecutiveSameIssues), true
	default:
		return "", false
	}
}

func noProgressReason(s Snapshot) string {
	return fmt.Sprintf("no progress: no fixes for %d consecutive iterations", s.ConsecutiveNoProgress)
}
