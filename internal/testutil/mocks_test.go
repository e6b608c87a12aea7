package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
)

func TestMockBackend_ScriptOrderAndRepeat(t *testing.T) {
	m := NewMockBackend().On("claude", core.PhaseReview,
		Response{Output: "first"},
		Response{Output: "second"},
	)

	req := core.InvokeRequest{Agent: "claude", Phase: core.PhaseReview}
	for _, want := range []string{"first", "second", "second"} {
		res, err := m.Invoke(context.Background(), req)
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if res.Output != want {
			t.Errorf("Output = %q, want %q", res.Output, want)
		}
	}
	if got := len(m.CallsIn(core.PhaseReview)); got != 3 {
		t.Errorf("CallsIn() = %d calls, want 3", got)
	}
}

func TestMockBackend_UnscriptedAnswersDefaultBlock(t *testing.T) {
	m := NewMockBackend()
	res, err := m.Invoke(context.Background(), core.InvokeRequest{Agent: "codex", Phase: core.PhaseSynthesis})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	want := Block("SYNTHESIS_STATUS", "EXIT_SIGNAL", "false")
	if res.Output != want {
		t.Errorf("Output = %q, want %q", res.Output, want)
	}
}

func TestMockBackend_Errors(t *testing.T) {
	m := NewMockBackend().
		On("claude", core.PhaseReview, TimedOut("partial")).
		On("codex", core.PhaseReview, Fail("codex", "boom"))

	res, err := m.Invoke(context.Background(), core.InvokeRequest{Agent: "claude", Phase: core.PhaseReview})
	if core.ClassifyOutcome(err) != core.OutcomeTimeout {
		t.Errorf("timeout outcome = %v (err %v)", core.ClassifyOutcome(err), err)
	}
	if res.Output != "partial" {
		t.Errorf("partial output = %q", res.Output)
	}

	_, err = m.Invoke(context.Background(), core.InvokeRequest{Agent: "codex", Phase: core.PhaseReview})
	if core.ClassifyOutcome(err) != core.OutcomeFailure {
		t.Errorf("failure outcome = %v", core.ClassifyOutcome(err))
	}
}

func TestMockBackend_DelayHonoursTimeout(t *testing.T) {
	m := NewMockBackend().On("claude", core.PhaseReview, Response{Delay: time.Minute})

	_, err := m.Invoke(context.Background(), core.InvokeRequest{
		Agent:   "claude",
		Phase:   core.PhaseReview,
		Timeout: 10 * time.Millisecond,
	})
	if core.ClassifyOutcome(err) != core.OutcomeTimeout {
		t.Errorf("outcome = %v, want timeout (err %v)", core.ClassifyOutcome(err), err)
	}
}

func TestReview_CountsIssues(t *testing.T) {
	out := Review(false, "bug: a", "bug: b")
	want := "- bug: a\n- bug: b\n\n" + Block("REVIEW_STATUS", "EXIT_SIGNAL", "false", "ISSUES_FOUND", "2")
	if out != want {
		t.Errorf("Review() = %q, want %q", out, want)
	}
}
