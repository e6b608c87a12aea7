package events

import "time"

// Event types published during a review run.
const (
	TypeRunStarted        = "run_started"
	TypeIterationStarted  = "iteration_started"
	TypePhaseStarted      = "phase_started"
	TypeAgentFinished     = "agent_finished"
	TypeIterationFinished = "iteration_finished"
	TypeBreakerTransition = "breaker_transition"
	TypeRunFinished       = "run_finished"
)

// RunStartedEvent is emitted once per run, after tracking is initialised.
type RunStartedEvent struct {
	BaseEvent
	Target        string `json:"target"`
	MaxIterations int    `json:"max_iterations"`
	Resumed       bool   `json:"resumed"`
}

// NewRunStartedEvent creates a RunStartedEvent.
func NewRunStartedEvent(runID, target string, maxIterations int, resumed bool) RunStartedEvent {
	return RunStartedEvent{
		BaseEvent:     NewBaseEvent(TypeRunStarted, runID),
		Target:        target,
		MaxIterations: maxIterations,
		Resumed:       resumed,
	}
}

// IterationStartedEvent is emitted before phase 1 of an iteration.
type IterationStartedEvent struct {
	BaseEvent
	Iteration int `json:"iteration"`
}

// NewIterationStartedEvent creates an IterationStartedEvent.
func NewIterationStartedEvent(runID string, iteration int) IterationStartedEvent {
	return IterationStartedEvent{
		BaseEvent: NewBaseEvent(TypeIterationStarted, runID),
		Iteration: iteration,
	}
}

// PhaseStartedEvent is emitted when a phase begins.
type PhaseStartedEvent struct {
	BaseEvent
	Iteration int      `json:"iteration"`
	Phase     string   `json:"phase"`
	Agents    []string `json:"agents"`
}

// NewPhaseStartedEvent creates a PhaseStartedEvent.
func NewPhaseStartedEvent(runID string, iteration int, phase string, agents []string) PhaseStartedEvent {
	return PhaseStartedEvent{
		BaseEvent: NewBaseEvent(TypePhaseStarted, runID),
		Iteration: iteration,
		Phase:     phase,
		Agents:    agents,
	}
}

// AgentFinishedEvent reports one agent invocation.
type AgentFinishedEvent struct {
	BaseEvent
	Iteration  int           `json:"iteration"`
	Phase      string        `json:"phase"`
	Agent      string        `json:"agent"`
	Outcome    string        `json:"outcome"`
	ExitSignal bool          `json:"exit_signal"`
	Artifact   string        `json:"artifact"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// NewAgentFinishedEvent creates an AgentFinishedEvent.
func NewAgentFinishedEvent(runID string, iteration int, phase, agent, outcome string) AgentFinishedEvent {
	return AgentFinishedEvent{
		BaseEvent: NewBaseEvent(TypeAgentFinished, runID),
		Iteration: iteration,
		Phase:     phase,
		Agent:     agent,
		Outcome:   outcome,
	}
}

// IterationFinishedEvent summarises an iteration as seen by the breaker.
type IterationFinishedEvent struct {
	BaseEvent
	Iteration    int    `json:"iteration"`
	FixesMade    int    `json:"fixes_made"`
	AgentsAgree  bool   `json:"agents_agree"`
	Fingerprint  string `json:"fingerprint"`
	BreakerState string `json:"breaker_state"`
	Aborted      bool   `json:"aborted"`
}

// NewIterationFinishedEvent creates an IterationFinishedEvent.
func NewIterationFinishedEvent(runID string, iteration, fixesMade int, agentsAgree bool, fingerprint, breakerState string) IterationFinishedEvent {
	return IterationFinishedEvent{
		BaseEvent:    NewBaseEvent(TypeIterationFinished, runID),
		Iteration:    iteration,
		FixesMade:    fixesMade,
		AgentsAgree:  agentsAgree,
		Fingerprint:  fingerprint,
		BreakerState: breakerState,
	}
}

// BreakerTransitionEvent is emitted when the circuit breaker changes state.
type BreakerTransitionEvent struct {
	BaseEvent
	Iteration int    `json:"iteration"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason"`
}

// NewBreakerTransitionEvent creates a BreakerTransitionEvent.
func NewBreakerTransitionEvent(runID string, iteration int, from, to, reason string) BreakerTransitionEvent {
	return BreakerTransitionEvent{
		BaseEvent: NewBaseEvent(TypeBreakerTransition, runID),
		Iteration: iteration,
		From:      from,
		To:        to,
		Reason:    reason,
	}
}

// RunFinishedEvent is emitted with the terminal status of a run.
type RunFinishedEvent struct {
	BaseEvent
	Status     string `json:"status"`
	Iterations int    `json:"iterations"`
	Reason     string `json:"reason,omitempty"`
}

// NewRunFinishedEvent creates a RunFinishedEvent.
func NewRunFinishedEvent(runID, status string, iterations int, reason string) RunFinishedEvent {
	return RunFinishedEvent{
		BaseEvent:  NewBaseEvent(TypeRunFinished, runID),
		Status:     status,
		Iterations: iterations,
		Reason:     reason,
	}
}
