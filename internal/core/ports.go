// Package core holds the domain types shared by the review packages: phases,
// agent invocation ports and categorized errors.
package core

import (
	"context"
	"time"
)

// =============================================================================
// Agent Port
// =============================================================================

// InvokeRequest describes a single agent invocation.
type InvokeRequest struct {
	Agent     string
	Phase     Phase
	Iteration int
	Prompt    string
	WorkDir   string
	Timeout   time.Duration
	// Elevated allows the agent to modify files under WorkDir.
	Elevated bool
}

// InvokeResult holds whatever an agent produced, even when it failed.
type InvokeResult struct {
	Output   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// AgentBackend runs an opaque reasoning backend on a prompt.
// Implementations return ErrAgentTimeout when the deadline expires and
// ErrAgentFailure for any other unsuccessful exit.
type AgentBackend interface {
	Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error)
}

// =============================================================================
// Prompt Port
// =============================================================================

// PromptParams carries the inputs substituted into a phase template.
type PromptParams struct {
	Iteration int
	Agent     string
	PeerAgent string
	TargetDir string
	Sources   string
	// Inputs holds prior artifacts keyed by a label such as "peer_review".
	Inputs map[string]string
}

// PromptStore supplies the prompt text for each phase.
type PromptStore interface {
	Template(phase Phase) (string, error)
	Render(phase Phase, params PromptParams) (string, error)
}

// =============================================================================
// Source Port
// =============================================================================

// SourceCollector gathers the reviewable sources of a target directory as text.
type SourceCollector interface {
	Collect(ctx context.Context, targetDir string) (string, error)
}

// =============================================================================
// Invocation outcome
// =============================================================================

// Outcome classifies how an agent invocation ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeTimeout Outcome = "timeout"
	OutcomeFailure Outcome = "failure"
)

// ClassifyOutcome maps an invocation error onto an Outcome.
func ClassifyOutcome(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case IsCategory(err, ErrCatTimeout):
		return OutcomeTimeout
	default:
		return OutcomeFailure
	}
}
