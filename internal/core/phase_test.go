package core

import "testing"

func TestPhase_OrderAndNames(t *testing.T) {
	want := []struct {
		name  string
		block string
	}{
		{"review", "REVIEW_STATUS"},
		{"cross_review", "CROSS_REVIEW_STATUS"},
		{"meta_review", "META_REVIEW_STATUS"},
		{"synthesis", "SYNTHESIS_STATUS"},
	}

	phases := AllPhases()
	if len(phases) != len(want) {
		t.Fatalf("AllPhases() len = %d, want %d", len(phases), len(want))
	}
	for i, p := range phases {
		if int(p) != i+1 {
			t.Errorf("phase %s has number %d, want %d", p, int(p), i+1)
		}
		if p.String() != want[i].name {
			t.Errorf("String() = %q, want %q", p.String(), want[i].name)
		}
		if p.StatusBlock() != want[i].block {
			t.Errorf("StatusBlock() = %q, want %q", p.StatusBlock(), want[i].block)
		}
	}
}

func TestPhase_OnlySynthesisIsElevated(t *testing.T) {
	for _, p := range AllPhases() {
		if p.Elevated() != (p == PhaseSynthesis) {
			t.Errorf("%s.Elevated() = %v", p, p.Elevated())
		}
	}
}

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase("meta_review")
	if err != nil || p != PhaseMetaReview {
		t.Fatalf("ParsePhase(meta_review) = %v, %v", p, err)
	}
	if _, err := ParsePhase("deploy"); !HasCode(err, CodeUnknownPhase) {
		t.Fatalf("expected unknown phase error, got %v", err)
	}
	if Phase(9).Valid() || Phase(9).StatusBlock() != "" {
		t.Error("out-of-range phase should be invalid")
	}
}
