package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugo-lorenzo-mato/crossreview/internal/analysis"
	"github.com/hugo-lorenzo-mato/crossreview/internal/breaker"
	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/events"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tracking"
)

// History phase labels that are not review phases.
const (
	entryIteration = "iteration"
	entryBreaker   = "circuit_breaker"
	entryRun       = "run"

	resultStarted   = "started"
	resultCompleted = "completed"
)

// Options wires the orchestrator's collaborators.
type Options struct {
	Config    Config
	Backend   core.AgentBackend
	Prompts   core.PromptStore
	Collector core.SourceCollector
	// Analyzer defaults to the heuristic analyzer.
	Analyzer  analysis.Analyzer
	Breaker   *breaker.CircuitBreaker
	Tracking  *tracking.Store
	Artifacts *ArtifactStore
	Logger    *logging.Logger
	// Events is optional.
	Events *events.Bus
}

// Orchestrator drives the four review phases iteration by iteration.
type Orchestrator struct {
	cfg       Config
	backend   core.AgentBackend
	prompts   core.PromptStore
	collector core.SourceCollector
	analyzer  analysis.Analyzer
	breaker   *breaker.CircuitBreaker
	tracking  *tracking.Store
	artifacts *ArtifactStore
	logger    *logging.Logger
	events    *events.Bus

	runID string
}

// New validates opts and builds an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	switch {
	case opts.Backend == nil:
		return nil, errors.New("review: backend is required")
	case opts.Prompts == nil:
		return nil, errors.New("review: prompt store is required")
	case opts.Collector == nil:
		return nil, errors.New("review: source collector is required")
	case opts.Breaker == nil:
		return nil, errors.New("review: circuit breaker is required")
	case opts.Tracking == nil:
		return nil, errors.New("review: tracking store is required")
	case opts.Artifacts == nil:
		return nil, errors.New("review: artifact store is required")
	}

	o := &Orchestrator{
		cfg:       opts.Config,
		backend:   opts.Backend,
		prompts:   opts.Prompts,
		collector: opts.Collector,
		analyzer:  opts.Analyzer,
		breaker:   opts.Breaker,
		tracking:  opts.Tracking,
		artifacts: opts.Artifacts,
		logger:    opts.Logger,
		events:    opts.Events,
	}
	if o.analyzer == nil {
		o.analyzer = analysis.NewHeuristic()
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	return o, nil
}

// Run executes iterations until a terminal status is reached. A cancelled
// ctx returns the context error and leaves the run resumable.
//
// Halting order within an iteration: an open breaker stops the run before
// the iteration starts; both reviewers exiting in phase 1 ends it clean; a
// synthesis exit signal ends it clean; reaching MaxIterations ends it with
// max_iterations.
func (o *Orchestrator) Run(ctx context.Context) (*Outcome, error) {
	st, start, resumed, err := o.prepare()
	if err != nil {
		return nil, err
	}
	o.runID = st.RunID
	log := o.logger.WithRun(o.runID)
	log.Info("review run started",
		"target", o.cfg.TargetDir,
		"max_iterations", o.cfg.MaxIterations,
		"start_iteration", start,
		"resumed", resumed,
	)
	o.publish(events.NewRunStartedEvent(o.runID, o.cfg.TargetDir, o.cfg.MaxIterations, resumed))

	for iter := start; iter <= o.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !o.breaker.CanExecute() {
			snap := o.breaker.Snapshot()
			log.Warn("circuit breaker open, halting", "reason", snap.Reason)
			return o.finish(tracking.StatusCircuitOpen, iter-1, snap.Reason, resumed)
		}

		if _, err := o.tracking.SetIteration(iter); err != nil {
			return nil, err
		}
		if err := o.appendEntry(iter, entryIteration, "", resultStarted); err != nil {
			return nil, err
		}
		o.publish(events.NewIterationStartedEvent(o.runID, iter))

		clean, err := o.runIteration(ctx, iter)
		if err != nil {
			return nil, err
		}
		if err := o.appendEntry(iter, entryIteration, "", resultCompleted); err != nil {
			return nil, err
		}
		if clean != "" {
			return o.finish(tracking.StatusClean, iter, clean, resumed)
		}
		if iter == o.cfg.MaxIterations {
			return o.finish(tracking.StatusMaxIterations, iter,
				fmt.Sprintf("reached %d iterations", o.cfg.MaxIterations), resumed)
		}
	}

	// Only reachable when a resumed run had already completed its last
	// iteration before being interrupted.
	return o.finish(tracking.StatusMaxIterations, o.cfg.MaxIterations,
		fmt.Sprintf("reached %d iterations", o.cfg.MaxIterations), resumed)
}

// prepare loads tracking and decides between resuming and a fresh run.
func (o *Orchestrator) prepare() (*tracking.State, int, bool, error) {
	st, err := o.tracking.Load()
	if err != nil {
		return nil, 0, false, err
	}

	if o.cfg.Resume && st.Resumable() {
		start := st.Iteration
		if start < 1 {
			start = 1
		} else if iterationCompleted(st, start) {
			start++
		}
		return st, start, true, nil
	}
	if o.cfg.Resume {
		o.logger.Info("nothing to resume, starting a new run", "status", st.Status)
	}

	if err := o.artifacts.Clear(); err != nil {
		return nil, 0, false, err
	}
	st, err = o.tracking.Begin(o.cfg.TargetDir)
	if err != nil {
		return nil, 0, false, err
	}
	return st, 1, false, nil
}

func iterationCompleted(st *tracking.State, iter int) bool {
	for _, e := range st.History {
		if e.Iteration == iter && e.Phase == entryIteration && e.Result == resultCompleted {
			return true
		}
	}
	return false
}

func (o *Orchestrator) finish(s tracking.Status, iterations int, reason string, resumed bool) (*Outcome, error) {
	if err := o.appendEntry(iterations, entryRun, "", fmt.Sprintf("%s: %s", s, reason)); err != nil {
		return nil, err
	}
	if _, err := o.tracking.Finish(s); err != nil {
		return nil, err
	}

	o.logger.WithRun(o.runID).Info("review run finished",
		"status", s,
		"iterations", iterations,
		"reason", reason,
	)
	o.publish(events.NewRunFinishedEvent(o.runID, string(s), iterations, reason))

	return &Outcome{
		RunID:      o.runID,
		Status:     s,
		Iterations: iterations,
		Reason:     reason,
		Resumed:    resumed,
		Breaker:    o.breaker.Snapshot(),
	}, nil
}

func (o *Orchestrator) appendEntry(iter int, phase, agent, result string) error {
	_, err := o.tracking.Append(tracking.Entry{
		Iteration: iter,
		Phase:     phase,
		Agent:     agent,
		Result:    result,
	})
	return err
}

func (o *Orchestrator) publish(e events.Event) {
	if o.events != nil {
		o.events.Publish(e)
	}
}
