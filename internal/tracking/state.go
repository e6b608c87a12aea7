// Package tracking persists the progress of a review run so that it can be
// inspected while running and resumed after an interruption.
package tracking

import (
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/crossreview/internal/fsutil"
)

// Status is the lifecycle state of a review run.
type Status string

const (
	StatusPending       Status = "pending"
	StatusInProgress    Status = "in_progress"
	StatusClean         Status = "clean"
	StatusCircuitOpen   Status = "circuit_open"
	StatusMaxIterations Status = "max_iterations"
)

// IsTerminal reports whether a run with this status has finished.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusClean, StatusCircuitOpen, StatusMaxIterations:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusInProgress || s.IsTerminal()
}

// ExitCode is the process exit code for a run that ended with s.
func (s Status) ExitCode() int {
	if s == StatusClean {
		return 0
	}
	return 1
}

// Entry is one line of the run history.
type Entry struct {
	Iteration int       `json:"iteration"`
	Phase     string    `json:"phase"`
	Agent     string    `json:"agent,omitempty"`
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the persisted tracking document.
type State struct {
	RunID           string    `json:"run_id,omitempty"`
	Iteration       int       `json:"iteration"`
	Status          Status    `json:"status"`
	TargetDirectory string    `json:"target_directory"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	History         []Entry   `json:"history"`
}

// NewState returns the state of a directory that has never been reviewed.
func NewState() *State {
	return &State{Status: StatusPending, History: []Entry{}}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.History = append([]Entry(nil), s.History...)
	return &out
}

// Resumable reports whether a run was interrupted mid-way.
func (s *State) Resumable() bool {
	return s != nil && s.Status == StatusInProgress
}

// LastEntry returns the most recent history entry.
func (s *State) LastEntry() (Entry, bool) {
	if s == nil || len(s.History) == 0 {
		return Entry{}, false
	}
	return s.History[len(s.History)-1], true
}

// check rejects documents that decode but were not written by a Store.
func (s *State) check() error {
	if s.Status != "" && !s.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", fsutil.ErrCorrupt, s.Status)
	}
	if s.Iteration < 0 {
		return fmt.Errorf("%w: negative iteration %d", fsutil.ErrCorrupt, s.Iteration)
	}
	return nil
}
