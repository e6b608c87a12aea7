package core

import "fmt"

// Phase identifies one of the four ordered steps of a review iteration.
type Phase int

const (
	// PhaseReview is the independent review: both reviewers examine the target.
	PhaseReview Phase = iota + 1
	// PhaseCrossReview has each reviewer critique the other's review.
	PhaseCrossReview
	// PhaseMetaReview has each reviewer answer the critique of its own review.
	PhaseMetaReview
	// PhaseSynthesis lets a single agent consolidate the exchange and apply fixes.
	PhaseSynthesis
)

// AllPhases returns all phases in execution order.
func AllPhases() []Phase {
	return []Phase{PhaseReview, PhaseCrossReview, PhaseMetaReview, PhaseSynthesis}
}

// String returns the phase name used in templates, logs and artifact roles.
func (p Phase) String() string {
	switch p {
	case PhaseReview:
		return "review"
	case PhaseCrossReview:
		return "cross_review"
	case PhaseMetaReview:
		return "meta_review"
	case PhaseSynthesis:
		return "synthesis"
	default:
		return fmt.Sprintf("phase_%d", int(p))
	}
}

// StatusBlock returns the status block name agents emit in this phase.
func (p Phase) StatusBlock() string {
	switch p {
	case PhaseReview:
		return "REVIEW_STATUS"
	case PhaseCrossReview:
		return "CROSS_REVIEW_STATUS"
	case PhaseMetaReview:
		return "META_REVIEW_STATUS"
	case PhaseSynthesis:
		return "SYNTHESIS_STATUS"
	default:
		return ""
	}
}

// Elevated reports whether agents in this phase may mutate the target.
// Only synthesis writes; the first three phases are read-only analyses.
func (p Phase) Elevated() bool {
	return p == PhaseSynthesis
}

// Valid reports whether p is one of the four known phases.
func (p Phase) Valid() bool {
	return p >= PhaseReview && p <= PhaseSynthesis
}

// ParsePhase resolves a phase from its name.
func ParsePhase(name string) (Phase, error) {
	for _, p := range AllPhases() {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, ErrValidation(CodeUnknownPhase, fmt.Sprintf("unknown phase %q", name))
}
