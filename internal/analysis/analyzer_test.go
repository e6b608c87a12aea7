package analysis

import (
	"strings"
	"testing"
)

func TestAnalyze_Empty(t *testing.T) {
	for _, in := range []string{"", "   \n\t\n"} {
		if got := Analyze(in); got != (Analysis{}) {
			t.Errorf("Analyze(%q) = %+v, want zero value", in, got)
		}
	}
}

func TestAnalyze_SentinelAlwaysComplete(t *testing.T) {
	surroundings := []string{
		"NO_ISSUES_FOUND",
		"lots of text\nNO_ISSUES_FOUND\nmore text with a bug mention",
		"I disagree with everything.\n  NO_ISSUES_FOUND  ",
		"---REVIEW_STATUS---\nEXIT_SIGNAL: false\n---END_REVIEW_STATUS---\nNO_ISSUES_FOUND",
	}
	for _, text := range surroundings {
		a := Analyze(text)
		if !a.ExplicitNoIssues || !a.IsComplete {
			t.Errorf("Analyze(%q): explicit=%v complete=%v", text, a.ExplicitNoIssues, a.IsComplete)
		}
	}
}

func TestAnalyze_CompletionPhrases(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"After a careful pass: No issues found.", true},
		{"There are no remaining issues in this module.", true},
		{"All issues have been resolved.", true},
		{"LGTM", true},
		{"Review complete.", true},
		{"There are three issues left.", false},
		{"no_issues_found", false},
	}
	for _, tt := range tests {
		if got := Analyze(tt.text).IsComplete; got != tt.want {
			t.Errorf("IsComplete(%q) = %v, want %v", tt.text, got, tt.want)
		}
		if Analyze(tt.text).ExplicitNoIssues {
			t.Errorf("ExplicitNoIssues(%q) should be false without the sentinel", tt.text)
		}
	}
}

func TestAnalyze_Counts(t *testing.T) {
	text := `I agree with the first finding, good catch.
I disagree with the second one: it is a false positive.
I also disagreed with the third point before; now I concede it.
Fixed the nil check and patched the retry loop.`

	a := Analyze(text)
	if a.AgreementCount != 3 { // i agree, good catch, concede
		t.Errorf("AgreementCount = %d, want 3", a.AgreementCount)
	}
	if a.DisagreementCount != 3 { // disagree, false positive, disagreed
		t.Errorf("DisagreementCount = %d, want 3", a.DisagreementCount)
	}
	if a.FixCount != 2 || !a.MentionsFixes {
		t.Errorf("FixCount = %d MentionsFixes = %v", a.FixCount, a.MentionsFixes)
	}
	if a.LineCount != 4 {
		t.Errorf("LineCount = %d, want 4", a.LineCount)
	}
}

func TestFingerprint_OrderAndFormattingInsensitive(t *testing.T) {
	a := "Summary\n1. Bug: nil map write in cache.go\n2. The loop should exit on ctx.Done\nclosing words"
	b := "- the loop   SHOULD exit on ctx.Done\n* BUG: nil map write in cache.go\nother prose"

	fa, fb := Fingerprint(a), Fingerprint(b)
	if fa == "" {
		t.Fatal("expected a non-empty fingerprint")
	}
	if fa != fb {
		t.Errorf("fingerprints differ:\n%v\n%v", IssueLines(a), IssueLines(b))
	}
}

func TestFingerprint_ChangesWithIssues(t *testing.T) {
	a := Fingerprint("Bug: off-by-one in pager")
	b := Fingerprint("Bug: off-by-two in pager")
	if a == b {
		t.Error("different issue sets should not collide")
	}
}

func TestFingerprint_NoIssueLines(t *testing.T) {
	if got := Fingerprint("Everything is tidy.\n---REVIEW_STATUS---\nISSUES_FOUND: 0\n---END_REVIEW_STATUS---"); got != "" {
		t.Errorf("Fingerprint() = %q, want empty", got)
	}
}

func TestIssueLines_Dedupes(t *testing.T) {
	lines := IssueLines("Error: x\nerror:   x\n- ERROR: x")
	if len(lines) != 1 || lines[0] != "error: x" {
		t.Errorf("IssueLines() = %v", lines)
	}
}

func TestCompare(t *testing.T) {
	complete := Analysis{IsComplete: true, IssuesFingerprint: "a"}
	openA := Analysis{IssuesFingerprint: "a"}
	openA2 := Analysis{IssuesFingerprint: "a"}
	openB := Analysis{IssuesFingerprint: "b"}

	tests := []struct {
		name string
		a, b Analysis
		want Agreement
	}{
		{"both complete", complete, Analysis{IsComplete: true, IssuesFingerprint: "z"}, FullAgreement},
		{"both open same issues", openA, openA2, FullAgreement},
		{"both open different issues", openA, openB, PartialAgreement},
		{"one complete", complete, openB, Disagreement},
		{"other complete", openB, complete, Disagreement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyConviction(t *testing.T) {
	tests := []struct {
		agree, disagree int
		want            Conviction
	}{
		{3, 1, Convinced},
		{1, 3, Rejected},
		{2, 2, Neutral},
		{0, 0, Neutral},
	}
	for _, tt := range tests {
		if got := ClassifyConviction(tt.agree, tt.disagree); got != tt.want {
			t.Errorf("ClassifyConviction(%d, %d) = %s, want %s", tt.agree, tt.disagree, got, tt.want)
		}
	}
}

func TestHeuristic_ImplementsAnalyzer(t *testing.T) {
	var an Analyzer = NewHeuristic()
	text := strings.Repeat("Warning: unchecked error\n", 3)
	if an.Analyze(text).IssuesFingerprint != an.Fingerprint(text) {
		t.Error("Analyze and Fingerprint disagree")
	}
}
