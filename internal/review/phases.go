package review

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/events"
	"github.com/hugo-lorenzo-mato/crossreview/internal/status"
)

// runIteration runs the four phases of iter. It returns a non-empty reason
// when the target is clean.
func (o *Orchestrator) runIteration(ctx context.Context, iter int) (string, error) {
	log := o.logger.WithRun(o.runID).WithIteration(iter)

	sources, err := o.collector.Collect(ctx, o.cfg.TargetDir)
	if err != nil {
		return "", fmt.Errorf("collecting sources: %w", err)
	}

	reviews, err := o.runPair(ctx, iter, core.PhaseReview, func(agent, peer string) (core.PromptParams, error) {
		return o.params(iter, agent, peer, sources, nil), nil
	})
	if err != nil {
		return "", err
	}
	if reviews[0].ExitSignal() && reviews[1].ExitSignal() {
		log.Info("both reviewers report no issues")
		return "both reviewers reported no issues", nil
	}
	fingerprint := o.analyzer.Fingerprint(reviews[0].Output + "\n" + reviews[1].Output)
	o.logAgreement(iter, reviews)

	_, err = o.runPair(ctx, iter, core.PhaseCrossReview, func(agent, peer string) (core.PromptParams, error) {
		peerReview, err := o.artifacts.Read(iter, core.PhaseReview, peer)
		if err != nil {
			return core.PromptParams{}, err
		}
		return o.params(iter, agent, peer, sources, map[string]string{"peer_review": peerReview}), nil
	})
	if err != nil {
		return o.abortIteration(iter, fingerprint, err)
	}

	metas, err := o.runPair(ctx, iter, core.PhaseMetaReview, func(agent, peer string) (core.PromptParams, error) {
		own, err := o.artifacts.Read(iter, core.PhaseReview, agent)
		if err != nil {
			return core.PromptParams{}, err
		}
		critique, err := o.artifacts.Read(iter, core.PhaseCrossReview, peer)
		if err != nil {
			return core.PromptParams{}, err
		}
		return o.params(iter, agent, peer, sources, map[string]string{
			"own_review":    own,
			"peer_critique": critique,
		}), nil
	})
	if err != nil {
		return o.abortIteration(iter, fingerprint, err)
	}

	synthesis, err := o.runSynthesis(ctx, iter, sources)
	if err != nil {
		return o.abortIteration(iter, fingerprint, err)
	}

	agree := o.agentsAgree(metas)
	fixes := filesModified(synthesis)
	if err := o.recordIteration(iter, fixes, agree, fingerprint, false); err != nil {
		return "", err
	}

	if synthesis.ExitSignal() {
		log.Info("synthesizer reports no remaining issues", "files_modified", fixes)
		return "synthesizer reported no remaining issues", nil
	}
	return "", nil
}

// abortIteration handles a phase error. A missing artifact ends the
// iteration and counts as an unproductive, disagreeing iteration; anything
// else is returned to the caller.
func (o *Orchestrator) abortIteration(iter int, fingerprint string, err error) (string, error) {
	if !core.HasCode(err, core.CodeMissingArtifact) {
		return "", err
	}
	o.logger.WithRun(o.runID).WithIteration(iter).Warn("iteration aborted", "error", err)
	if err := o.appendEntry(iter, entryIteration, "", "aborted: "+err.Error()); err != nil {
		return "", err
	}
	return "", o.recordIteration(iter, 0, false, fingerprint, true)
}

// recordIteration feeds the breaker and reports the transition, if any.
func (o *Orchestrator) recordIteration(iter, fixes int, agree bool, fingerprint string, aborted bool) error {
	snap, tr, err := o.breaker.RecordIterationResult(iter, fixes, agree, fingerprint)
	if err != nil {
		return err
	}

	if tr != nil {
		if err := o.appendEntry(iter, entryBreaker, "",
			fmt.Sprintf("%s -> %s: %s", tr.From, tr.To, tr.Reason)); err != nil {
			return err
		}
		o.publish(events.NewBreakerTransitionEvent(o.runID, iter, string(tr.From), string(tr.To), tr.Reason))
	}

	ev := events.NewIterationFinishedEvent(o.runID, iter, fixes, agree, fingerprint, string(snap.State))
	ev.Aborted = aborted
	o.publish(ev)

	o.logger.WithRun(o.runID).WithIteration(iter).Info("iteration finished",
		"files_modified", fixes,
		"agents_agree", agree,
		"circuit_state", snap.State,
		"aborted", aborted,
	)
	return nil
}

type paramsFunc func(agent, peer string) (core.PromptParams, error)

// runPair runs a phase on both reviewers at once. Prompts are built first,
// so a missing input artifact stops the phase before any agent starts. One
// agent failing does not cancel the other.
func (o *Orchestrator) runPair(ctx context.Context, iter int, phase core.Phase, build paramsFunc) ([2]PhaseResult, error) {
	var results [2]PhaseResult
	reviewers := o.cfg.Reviewers

	var prompts [2]string
	for i, agent := range reviewers {
		params, err := build(agent, reviewers[1-i])
		if err != nil {
			return results, err
		}
		prompt, err := o.prompts.Render(phase, params)
		if err != nil {
			return results, err
		}
		prompts[i] = prompt
	}

	if err := o.phaseStarted(iter, phase, reviewers); err != nil {
		return results, err
	}

	var g errgroup.Group
	for i, agent := range reviewers {
		g.Go(func() error {
			r, err := o.invoke(ctx, iter, phase, agent, prompts[i])
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	for _, r := range results {
		if err := o.agentFinished(r); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (o *Orchestrator) runSynthesis(ctx context.Context, iter int, sources string) (PhaseResult, error) {
	inputs := make(map[string]string, 6)
	for _, phase := range []core.Phase{core.PhaseReview, core.PhaseCrossReview, core.PhaseMetaReview} {
		for _, agent := range o.cfg.Reviewers {
			text, err := o.artifacts.Read(iter, phase, agent)
			if err != nil {
				return PhaseResult{}, err
			}
			inputs[fmt.Sprintf("%d. %s by %s", int(phase), phase, agent)] = text
		}
	}

	agent := o.cfg.Synthesizer
	prompt, err := o.prompts.Render(core.PhaseSynthesis, o.params(iter, agent, "", sources, inputs))
	if err != nil {
		return PhaseResult{}, err
	}
	if err := o.phaseStarted(iter, core.PhaseSynthesis, []string{agent}); err != nil {
		return PhaseResult{}, err
	}

	r, err := o.invoke(ctx, iter, core.PhaseSynthesis, agent, prompt)
	if err != nil {
		return r, err
	}
	if err := ctx.Err(); err != nil {
		return r, err
	}
	return r, o.agentFinished(r)
}

// invoke runs one agent and always stores an artifact. A failed or timed-out
// agent counts as having produced nothing. The returned error is reserved
// for artifact persistence failures.
func (o *Orchestrator) invoke(ctx context.Context, iter int, phase core.Phase, agent, prompt string) (PhaseResult, error) {
	log := o.logger.WithRun(o.runID).WithIteration(iter).WithPhase(phase.String()).WithAgent(agent)
	log.Debug("invoking agent", "elevated", phase.Elevated())

	res, err := o.backend.Invoke(ctx, core.InvokeRequest{
		Agent:     agent,
		Phase:     phase,
		Iteration: iter,
		Prompt:    prompt,
		WorkDir:   o.cfg.TargetDir,
		Timeout:   o.cfg.AgentTimeout,
		Elevated:  phase.Elevated(),
	})

	r := PhaseResult{
		Iteration: iter,
		Phase:     phase,
		Agent:     agent,
		Outcome:   core.ClassifyOutcome(err),
		Err:       err,
		Record:    status.Default(),
	}
	if res != nil {
		r.Duration = res.Duration
	}

	if err != nil {
		partial := ""
		if res != nil {
			partial = res.Output
		}
		log.Warn("agent did not complete",
			"outcome", r.Outcome,
			"error", err,
			"partial_output_bytes", len(partial),
		)
	} else {
		if res != nil {
			r.Output = res.Output
		}
		r.Record, r.ParseErr = status.ParseOrDefault(r.Output, phase.StatusBlock())
		if r.ParseErr != nil {
			log.Warn("status block unreadable, assuming work remains", "error", r.ParseErr)
		}
	}

	path, werr := o.artifacts.Write(iter, phase, agent, r.Output)
	if werr != nil {
		return r, werr
	}
	r.ArtifactPath = path

	log.Info("agent finished",
		"outcome", r.Outcome,
		"exit_signal", r.ExitSignal(),
		"duration", r.Duration,
	)
	return r, nil
}

func (o *Orchestrator) phaseStarted(iter int, phase core.Phase, agents []string) error {
	o.logger.WithRun(o.runID).WithIteration(iter).WithPhase(phase.String()).Info("phase started")
	if err := o.appendEntry(iter, phase.String(), "", resultStarted); err != nil {
		return err
	}
	o.publish(events.NewPhaseStartedEvent(o.runID, iter, phase.String(), append([]string(nil), agents...)))
	return nil
}

func (o *Orchestrator) agentFinished(r PhaseResult) error {
	if err := o.appendEntry(r.Iteration, r.Phase.String(), r.Agent, r.Summary()); err != nil {
		return err
	}
	ev := events.NewAgentFinishedEvent(o.runID, r.Iteration, r.Phase.String(), r.Agent, string(r.Outcome))
	ev.ExitSignal = r.ExitSignal()
	ev.Artifact = r.ArtifactPath
	ev.Duration = r.Duration
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	o.publish(ev)
	return nil
}

func (o *Orchestrator) params(iter int, agent, peer, sources string, inputs map[string]string) core.PromptParams {
	return core.PromptParams{
		Iteration: iter,
		Agent:     agent,
		PeerAgent: peer,
		TargetDir: o.cfg.TargetDir,
		Sources:   sources,
		Inputs:    inputs,
	}
}

// agentsAgree reads consensus_reached from the consensus agent's
// meta-review. A failed meta-review never agrees.
func (o *Orchestrator) agentsAgree(metas [2]PhaseResult) bool {
	want := o.cfg.consensusAgent()
	for _, r := range metas {
		if r.Agent != want || r.Outcome != core.OutcomeSuccess {
			continue
		}
		agree, ok := r.Record.Bool(status.FieldConsensusReached)
		return ok && agree
	}
	return false
}

func filesModified(r PhaseResult) int {
	if r.Outcome != core.OutcomeSuccess {
		return 0
	}
	n, ok := r.Record.Int(status.FieldFilesModified)
	if !ok || n < 0 {
		return 0
	}
	return n
}

// logAgreement records how far the two independent reviews overlap.
func (o *Orchestrator) logAgreement(iter int, reviews [2]PhaseResult) {
	a := o.analyzer.Analyze(reviews[0].Output)
	b := o.analyzer.Analyze(reviews[1].Output)
	o.logger.WithRun(o.runID).WithIteration(iter).Debug("independent reviews compared",
		"agreement", o.analyzer.Compare(a, b),
		reviews[0].Agent+"_complete", a.IsComplete,
		reviews[1].Agent+"_complete", b.IsComplete,
	)
}
