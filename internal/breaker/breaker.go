// Package breaker implements the cross-iteration circuit breaker that stops a
// review loop which is no longer making progress.
//
// The breaker has three states:
//   - CLOSED: iterations run normally.
//   - HALF_OPEN: stagnation suspected; iterations still run and a productive,
//     agreed iteration closes the breaker again.
//   - OPEN: the loop halts. Only an explicit Reset leaves this state.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
)

// CircuitBreaker owns the breaker snapshot of one run directory. It is
// written once per iteration by the orchestrator; the lock only guards
// concurrent readers such as the HTTP API.
type CircuitBreaker struct {
	mu         sync.RWMutex
	thresholds Thresholds
	snap       Snapshot
	history    []Transition
	store      *Store
	logger     *logging.Logger
	now        func() time.Time
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock overrides the time source used for transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(cb *CircuitBreaker) {
		if logger != nil {
			cb.logger = logger
		}
	}
}

// New loads the persisted breaker from store. A nil store keeps the breaker
// in memory only.
func New(store *Store, thresholds Thresholds, opts ...Option) (*CircuitBreaker, error) {
	cb := &CircuitBreaker{
		thresholds: thresholds.withDefaults(),
		snap:       InitialSnapshot(),
		store:      store,
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}

	if store != nil {
		snap, history, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("loading circuit breaker: %w", err)
		}
		cb.snap = snap
		cb.history = history
	}
	return cb, nil
}

// Thresholds returns the effective thresholds.
func (cb *CircuitBreaker) Thresholds() Thresholds {
	return cb.thresholds
}

// CanExecute reports whether another iteration may start.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.snap.State != StateOpen
}

// Snapshot returns a copy of the current state.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.snap
}

// History returns a copy of the transition log.
func (cb *CircuitBreaker) History() []Transition {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	out := make([]Transition, len(cb.history))
	copy(out, cb.history)
	return out
}

// RecordIterationResult feeds one completed iteration into the state machine
// and persists the outcome. The returned transition is nil when the state
// did not change.
func (cb *CircuitBreaker) RecordIterationResult(iteration, fixesMade int, agentsAgree bool, fingerprint string) (Snapshot, *Transition, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	prev := cb.snap
	next, changed := Step(prev, cb.thresholds, Result{
		Iteration:   iteration,
		FixesMade:   fixesMade,
		AgentsAgree: agentsAgree,
		Fingerprint: fingerprint,
	})

	var tr *Transition
	if changed {
		next.LastChange = cb.now()
		tr = &Transition{
			Timestamp: next.LastChange,
			Iteration: iteration,
			From:      prev.State,
			To:        next.State,
			Reason:    next.Reason,
		}
		cb.logTransition(*tr)
	}

	if err := cb.commit(next, tr); err != nil {
		return prev, nil, err
	}

	cb.logger.Debug("circuit breaker: iteration recorded",
		"iteration", iteration,
		"state", next.State,
		"no_progress", next.ConsecutiveNoProgress,
		"disagreement", next.ConsecutiveDisagreement,
		"same_issues", next.ConsecutiveSameIssues,
	)
	return next, tr, nil
}

// Reset returns the breaker to CLOSED with zeroed counters. The transition
// log is kept and gains an entry when the state actually changes.
// TotalOpens survives a reset; use Purge to forget it.
func (cb *CircuitBreaker) Reset(reason string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if reason == "" {
		reason = "manual reset"
	}
	prev := cb.snap
	next := Snapshot{
		State:      StateClosed,
		TotalOpens: prev.TotalOpens,
		Reason:     reason,
		LastChange: cb.now(),
	}

	var tr *Transition
	if prev.State != StateClosed {
		tr = &Transition{
			Timestamp: next.LastChange,
			Iteration: prev.CurrentIteration,
			From:      prev.State,
			To:        StateClosed,
			Reason:    reason,
		}
		cb.logTransition(*tr)
	}
	return cb.commit(next, tr)
}

// Purge resets the breaker and discards the transition log and open count.
func (cb *CircuitBreaker) Purge() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.snap = InitialSnapshot()
	cb.history = nil
	if cb.store == nil {
		return nil
	}
	if err := cb.store.SaveState(cb.snap); err != nil {
		return err
	}
	return cb.store.SaveHistory(nil)
}

// commit persists next (and tr, if any) before making it current, so a
// failed write leaves memory and disk in agreement.
func (cb *CircuitBreaker) commit(next Snapshot, tr *Transition) error {
	history := cb.history
	if tr != nil {
		history = append(append([]Transition(nil), cb.history...), *tr)
	}

	if cb.store != nil {
		if tr != nil {
			if err := cb.store.SaveHistory(history); err != nil {
				return fmt.Errorf("saving circuit history: %w", err)
			}
		}
		if err := cb.store.SaveState(next); err != nil {
			return fmt.Errorf("saving circuit state: %w", err)
		}
	}

	cb.snap = next
	cb.history = history
	return nil
}

func (cb *CircuitBreaker) logTransition(tr Transition) {
	log := cb.logger.Info
	if tr.To == StateOpen {
		log = cb.logger.Warn
	}
	log("circuit breaker: state change",
		"iteration", tr.Iteration,
		"from", tr.From,
		"to", tr.To,
		"reason", tr.Reason,
	)
}
