package breaker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func newTestBreaker(t *testing.T, th Thresholds) (*CircuitBreaker, *Store) {
	t.Helper()
	store := NewStore(t.TempDir(), nil)
	cb, err := New(store, th, WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return cb, store
}

func record(t *testing.T, cb *CircuitBreaker, iter, fixes int, agree bool, fp string) Snapshot {
	t.Helper()
	snap, _, err := cb.RecordIterationResult(iter, fixes, agree, fp)
	if err != nil {
		t.Fatalf("RecordIterationResult(%d) error = %v", iter, err)
	}
	return snap
}

func TestBreaker_StartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultThresholds())
	if !cb.CanExecute() {
		t.Fatal("fresh breaker must allow execution")
	}
	if s := cb.Snapshot(); s.State != StateClosed || s.TotalOpens != 0 {
		t.Errorf("initial snapshot = %+v", s)
	}
}

func TestBreaker_NoProgressOpensAfterThreshold(t *testing.T) {
	for _, agree := range []bool{true, false} {
		cb, _ := newTestBreaker(t, DefaultThresholds())

		record(t, cb, 1, 0, agree, "fp-a")
		record(t, cb, 2, 0, agree, "fp-b")
		snap := record(t, cb, 3, 0, agree, "")

		if snap.State != StateOpen {
			t.Fatalf("agree=%v: state = %s, want OPEN", agree, snap.State)
		}
		if snap.ConsecutiveNoProgress != 3 {
			t.Errorf("ConsecutiveNoProgress = %d, want 3", snap.ConsecutiveNoProgress)
		}
		if !strings.Contains(snap.Reason, "no progress") {
			t.Errorf("Reason = %q", snap.Reason)
		}
		if cb.CanExecute() {
			t.Error("open breaker must refuse execution")
		}
	}
}

func TestBreaker_ProgressResetsNoProgress(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultThresholds())

	record(t, cb, 1, 0, true, "")
	record(t, cb, 2, 0, true, "")
	snap := record(t, cb, 3, 2, true, "")
	if snap.ConsecutiveNoProgress != 0 {
		t.Fatalf("ConsecutiveNoProgress = %d, want 0", snap.ConsecutiveNoProgress)
	}
	if snap.LastProgressIteration != 3 {
		t.Errorf("LastProgressIteration = %d, want 3", snap.LastProgressIteration)
	}

	snap = record(t, cb, 4, 0, true, "")
	if snap.State == StateOpen {
		t.Fatal("interceding fix should have prevented the open")
	}
}

func TestBreaker_SameIssuesOpens(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultThresholds())

	record(t, cb, 1, 1, true, "deadbeef")
	record(t, cb, 2, 1, true, "deadbeef")
	snap := record(t, cb, 3, 1, true, "deadbeef")

	if snap.State != StateOpen {
		t.Fatalf("state = %s, want OPEN", snap.State)
	}
	if snap.ConsecutiveSameIssues != 3 {
		t.Errorf("ConsecutiveSameIssues = %d, want 3", snap.ConsecutiveSameIssues)
	}
	if !strings.Contains(snap.Reason, "same issues") || strings.Contains(snap.Reason, "no progress") {
		t.Errorf("Reason = %q, want the same-issues path", snap.Reason)
	}
}

func TestBreaker_EmptyFingerprintNeverRepeats(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultThresholds())
	for i := 1; i <= 5; i++ {
		snap := record(t, cb, i, 1, true, "")
		if snap.ConsecutiveSameIssues != 0 {
			t.Fatalf("iteration %d: ConsecutiveSameIssues = %d", i, snap.ConsecutiveSameIssues)
		}
	}
	if !cb.CanExecute() {
		t.Error("breaker should stay closed")
	}
}

func TestBreaker_FingerprintChangeResetsRun(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultThresholds())
	record(t, cb, 1, 1, true, "a")
	record(t, cb, 2, 1, true, "a")
	snap := record(t, cb, 3, 1, true, "b")
	if snap.ConsecutiveSameIssues != 1 || snap.State != StateClosed {
		t.Errorf("after change: same=%d state=%s", snap.ConsecutiveSameIssues, snap.State)
	}
	if snap.LastIssuesHash != "b" {
		t.Errorf("LastIssuesHash = %q", snap.LastIssuesHash)
	}
}

func TestBreaker_HalfOpenAndRecovery(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultThresholds())

	record(t, cb, 1, 1, false, "")
	snap := record(t, cb, 2, 1, false, "")
	if snap.State != StateHalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN after two disagreements", snap.State)
	}
	if !strings.Contains(snap.Reason, "stagnation") {
		t.Errorf("Reason = %q", snap.Reason)
	}
	if !cb.CanExecute() {
		t.Error("half-open breaker still allows execution")
	}

	snap = record(t, cb, 3, 2, true, "")
	if snap.State != StateClosed {
		t.Fatalf("state = %s, want CLOSED after productive agreement", snap.State)
	}
}

func TestBreaker_HalfOpenEscalatesOnNoProgress(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultThresholds())

	record(t, cb, 1, 0, true, "")
	if s := record(t, cb, 2, 0, true, ""); s.State != StateHalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN", s.State)
	}
	if s := record(t, cb, 3, 0, true, ""); s.State != StateOpen {
		t.Fatalf("state = %s, want OPEN", s.State)
	}
}

func TestBreaker_HalfOpenStaysWithoutRecovery(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultThresholds())

	record(t, cb, 1, 1, false, "")
	record(t, cb, 2, 1, false, "")
	// Fixes without agreement do not close a half-open breaker.
	if s := record(t, cb, 3, 1, false, ""); s.State != StateHalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN", s.State)
	}
}

func TestBreaker_DisagreementOpensFromClosed(t *testing.T) {
	cb, _ := newTestBreaker(t, Thresholds{NoProgress: 3, Disagreement: 2, SameIssues: 3})

	record(t, cb, 1, 1, false, "")
	snap := record(t, cb, 2, 1, false, "")
	if snap.State != StateOpen {
		t.Fatalf("state = %s, want OPEN", snap.State)
	}
	if !strings.Contains(snap.Reason, "disagree") {
		t.Errorf("Reason = %q", snap.Reason)
	}
}

func TestBreaker_ReasonPriority(t *testing.T) {
	// All three thresholds trip on the same iteration.
	th := Thresholds{NoProgress: 1, Disagreement: 1, SameIssues: 1}
	cb, _ := newTestBreaker(t, th)

	snap := record(t, cb, 1, 0, false, "x")
	if snap.State != StateOpen || !strings.HasPrefix(snap.Reason, "no progress") {
		t.Fatalf("got %s %q, want no-progress open", snap.State, snap.Reason)
	}

	cb2, _ := newTestBreaker(t, th)
	snap = record(t, cb2, 1, 1, false, "x")
	if !strings.HasPrefix(snap.Reason, "agent disagreement") {
		t.Fatalf("Reason = %q, want disagreement before same issues", snap.Reason)
	}
}

func TestBreaker_TotalOpensCountsTransitionsOnly(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultThresholds())

	for i := 1; i <= 3; i++ {
		record(t, cb, i, 0, false, "")
	}
	if got := cb.Snapshot().TotalOpens; got != 1 {
		t.Fatalf("TotalOpens = %d, want 1", got)
	}

	// Further results while open keep it open without counting again.
	for i := 4; i <= 6; i++ {
		snap := record(t, cb, i, 0, false, "")
		if snap.State != StateOpen || snap.Reason != ReasonManualReset {
			t.Fatalf("iteration %d: %s %q", i, snap.State, snap.Reason)
		}
	}
	if got := cb.Snapshot().TotalOpens; got != 1 {
		t.Fatalf("TotalOpens = %d after OPEN->OPEN, want 1", got)
	}

	if err := cb.Reset("operator looked at it"); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		record(t, cb, i, 0, false, "")
	}
	if got := cb.Snapshot().TotalOpens; got != 2 {
		t.Fatalf("TotalOpens = %d after second open, want 2", got)
	}
}

func TestBreaker_HistoryRecordsEveryChange(t *testing.T) {
	cb, store := newTestBreaker(t, DefaultThresholds())

	record(t, cb, 1, 0, true, "")
	record(t, cb, 2, 0, true, "") // CLOSED -> HALF_OPEN
	record(t, cb, 3, 0, true, "") // HALF_OPEN -> OPEN
	record(t, cb, 4, 0, true, "") // no change
	if err := cb.Reset("fixed by hand"); err != nil {
		t.Fatal(err)
	}

	history := cb.History()
	want := []struct{ from, to State }{
		{StateClosed, StateHalfOpen},
		{StateHalfOpen, StateOpen},
		{StateOpen, StateClosed},
	}
	if len(history) != len(want) {
		t.Fatalf("history len = %d, want %d: %+v", len(history), len(want), history)
	}
	for i, w := range want {
		if history[i].From != w.from || history[i].To != w.to {
			t.Errorf("history[%d] = %s->%s, want %s->%s", i, history[i].From, history[i].To, w.from, w.to)
		}
		if history[i].Timestamp.IsZero() || history[i].Reason == "" {
			t.Errorf("history[%d] missing timestamp or reason: %+v", i, history[i])
		}
	}
	if history[2].Reason != "fixed by hand" {
		t.Errorf("reset reason = %q", history[2].Reason)
	}

	_, persisted, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != len(want) {
		t.Errorf("persisted history len = %d", len(persisted))
	}
}

func TestBreaker_ResetZeroesCounters(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultThresholds())
	record(t, cb, 1, 0, false, "abc")
	record(t, cb, 2, 0, false, "abc")

	if err := cb.Reset(""); err != nil {
		t.Fatal(err)
	}
	s := cb.Snapshot()
	if s.State != StateClosed || s.ConsecutiveNoProgress != 0 || s.ConsecutiveDisagreement != 0 ||
		s.ConsecutiveSameIssues != 0 || s.LastIssuesHash != "" || s.CurrentIteration != 0 {
		t.Errorf("snapshot after reset = %+v", s)
	}
	if s.Reason != "manual reset" {
		t.Errorf("Reason = %q", s.Reason)
	}
}

func TestBreaker_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	cb, err := New(NewStore(dir, nil), DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if _, _, err := cb.RecordIterationResult(i, 0, true, ""); err != nil {
			t.Fatal(err)
		}
	}

	reloaded, err := New(NewStore(dir, nil), DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.CanExecute() {
		t.Fatal("open state must survive a restart")
	}
	if got := reloaded.Snapshot(); got.TotalOpens != 1 || got.ConsecutiveNoProgress != 3 {
		t.Errorf("reloaded snapshot = %+v", got)
	}
	if len(reloaded.History()) != 2 {
		t.Errorf("reloaded history len = %d", len(reloaded.History()))
	}
}

func TestBreaker_CorruptStateSelfHeals(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, StateFileName)
	if err := os.WriteFile(statePath, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, HistoryFileName), []byte("[{]"), 0o600); err != nil {
		t.Fatal(err)
	}

	cb, err := New(NewStore(dir, nil), DefaultThresholds())
	if err != nil {
		t.Fatalf("New() should recover from corruption, got %v", err)
	}
	if s := cb.Snapshot(); s.State != StateClosed {
		t.Errorf("state = %s, want CLOSED", s.State)
	}
	if len(cb.History()) != 0 {
		t.Error("history should be empty after healing")
	}
	if _, err := os.Stat(statePath + ".corrupt"); err != nil {
		t.Errorf("corrupt file should be kept aside: %v", err)
	}
}

func TestBreaker_DecodableButInvalidStateSelfHeals(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"wrong typed field", `{"state":"OPEN","consecutive_no_progress":7,"total_opens":"x"}`},
		{"unknown state", `{"state":"BOGUS","consecutive_no_progress":1}`},
		{"negative counter", `{"state":"HALF_OPEN","consecutive_disagreement":-2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			statePath := filepath.Join(dir, StateFileName)
			if err := os.WriteFile(statePath, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			cb, err := New(NewStore(dir, nil), DefaultThresholds())
			if err != nil {
				t.Fatalf("New() = %v", err)
			}
			if got := cb.Snapshot(); got != InitialSnapshot() {
				t.Errorf("snapshot = %+v, want initial", got)
			}
			if !cb.CanExecute() {
				t.Error("healed breaker must allow execution")
			}
			if _, err := os.Stat(statePath + ".corrupt"); err != nil {
				t.Errorf("corrupt file should be kept aside: %v", err)
			}
		})
	}
}

func TestBreaker_InvalidHistoryHealsIndependently(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"wrong typed field", `[{"iteration":"one","from":"CLOSED","to":"OPEN"}]`},
		{"unknown state", `[{"iteration":1,"from":"CLOSED","to":"SIDEWAYS"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewStore(dir, nil)
			want := Snapshot{State: StateHalfOpen, ConsecutiveNoProgress: 2, CurrentIteration: 2}
			if err := store.SaveState(want); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(store.HistoryPath(), []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			snap, history, err := store.Load()
			if err != nil {
				t.Fatalf("Load() = %v", err)
			}
			if snap != want {
				t.Errorf("snapshot = %+v, want %+v", snap, want)
			}
			if history != nil {
				t.Errorf("history = %+v, want nil", history)
			}
			if _, err := os.Stat(store.HistoryPath() + ".corrupt"); err != nil {
				t.Errorf("corrupt history should be kept aside: %v", err)
			}
			if _, err := os.Stat(store.StatePath() + ".corrupt"); !os.IsNotExist(err) {
				t.Errorf("valid state file must stay in place, stat err = %v", err)
			}
		})
	}
}

func TestBreaker_Purge(t *testing.T) {
	cb, store := newTestBreaker(t, DefaultThresholds())
	for i := 1; i <= 3; i++ {
		record(t, cb, i, 0, true, "")
	}
	if err := cb.Purge(); err != nil {
		t.Fatal(err)
	}
	snap, history, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if snap.TotalOpens != 0 || snap.State != StateClosed || len(history) != 0 {
		t.Errorf("after purge: %+v history=%d", snap, len(history))
	}
}

func TestStep_IsPure(t *testing.T) {
	start := InitialSnapshot()
	r := Result{Iteration: 1, FixesMade: 0, AgentsAgree: false, Fingerprint: "f"}
	a, _ := Step(start, DefaultThresholds(), r)
	b, _ := Step(start, DefaultThresholds(), r)
	if a != b {
		t.Errorf("Step not deterministic: %+v vs %+v", a, b)
	}
	if start.ConsecutiveNoProgress != 0 {
		t.Error("Step mutated its input")
	}
}

func TestStep_UnknownStateStartsClosed(t *testing.T) {
	s := Snapshot{State: "BOGUS"}
	var changed bool
	for i := 1; i <= 3; i++ {
		s, changed = Step(s, DefaultThresholds(), Result{Iteration: i, AgentsAgree: true})
	}
	if s.State != StateOpen || !changed {
		t.Fatalf("state after 3 unproductive iterations = %s (changed %v), want OPEN", s.State, changed)
	}
	if s.TotalOpens != 1 {
		t.Errorf("TotalOpens = %d, want 1", s.TotalOpens)
	}
}

func TestThresholds_Defaults(t *testing.T) {
	got := Thresholds{Disagreement: 7}.withDefaults()
	if got.NoProgress != 3 || got.Disagreement != 7 || got.SameIssues != 3 {
		t.Errorf("withDefaults() = %+v", got)
	}
}
