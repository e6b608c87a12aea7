// Package analysis derives lightweight lexical signals from free-form agent
// output: completion claims, fix/agreement/disagreement mentions and a
// fingerprint of the issues raised. The signals are heuristics; they never
// interpret code and never fail on odd input.
package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/hugo-lorenzo-mato/crossreview/internal/status"
)

// Agreement is the outcome of comparing two analyses.
type Agreement string

const (
	FullAgreement    Agreement = "full_agreement"
	PartialAgreement Agreement = "partial_agreement"
	Disagreement     Agreement = "disagreement"
)

// Conviction summarizes whether a response accepts or rejects a critique.
type Conviction string

const (
	Convinced Conviction = "convinced"
	Rejected  Conviction = "rejected"
	Neutral   Conviction = "neutral"
)

// Analysis holds the signals extracted from one response.
type Analysis struct {
	IsComplete        bool   `json:"is_complete"`
	ExplicitNoIssues  bool   `json:"explicit_no_issues"`
	MentionsFixes     bool   `json:"mentions_fixes"`
	FixCount          int    `json:"fix_count"`
	DisagreementCount int    `json:"disagreement_count"`
	AgreementCount    int    `json:"agreement_count"`
	LineCount         int    `json:"line_count"`
	IssuesFingerprint string `json:"issues_fingerprint"`
}

// Analyzer is the seam the orchestrator depends on, so that a stricter
// structured-output reader can replace the heuristics.
type Analyzer interface {
	Analyze(text string) Analysis
	Compare(a, b Analysis) Agreement
	Fingerprint(text string) string
}

// Heuristic is the phrase-matching Analyzer.
type Heuristic struct{}

// NewHeuristic returns the default analyzer.
func NewHeuristic() Heuristic { return Heuristic{} }

// Analyze implements Analyzer.
func (Heuristic) Analyze(text string) Analysis { return Analyze(text) }

// Compare implements Analyzer.
func (Heuristic) Compare(a, b Analysis) Agreement { return Compare(a, b) }

// Fingerprint implements Analyzer.
func (Heuristic) Fingerprint(text string) string { return Fingerprint(text) }

var (
	completionPatterns = compileAll(
		`\bno issues found\b`,
		`\bno (?:remaining|further|outstanding|other) issues\b`,
		`\ball issues (?:have been |are )?resolved\b`,
		`\breview complete\b`,
		`\bnothing (?:left )?to fix\b`,
		`\blgtm\b`,
	)
	fixPatterns = compileAll(
		`\bfixed\b`,
		`\bapplied (?:a |the )?fix(?:es)?\b`,
		`\bresolved\b`,
		`\bpatched\b`,
		`\bcorrected\b`,
	)
	agreementPatterns = compileAll(
		`\bi agree\b`,
		`\bagreed\b`,
		`\bconcur(?:s|red)?\b`,
		`\bconcede[sd]?\b`,
		`\bvalid point\b`,
		`\bgood catch\b`,
		`\byou(?:'re| are) right\b`,
		`\baccept(?:s|ed)?\b`,
	)
	disagreementPatterns = compileAll(
		`\bdisagree[sd]?\b`,
		`\bincorrect\b`,
		`\bnot an issue\b`,
		`\bfalse positive\b`,
		`\breject(?:s|ed)?\b`,
		`\binvalid\b`,
		`\bmaintain(?:s|ed)? (?:my|the|our) (?:position|finding)s?\b`,
	)

	issueLinePattern  = regexp.MustCompile(`(?i)\b(?:issues?|bugs?|problems?|errors?|warnings?|should)\b`)
	listMarkerPattern = regexp.MustCompile(`^(?:[-*+>#]+|\d+[.)])\s*`)
	markerLinePattern = regexp.MustCompile(`^---[A-Za-z0-9_]+---$`)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func countMatches(lower string, patterns []*regexp.Regexp) int {
	total := 0
	for _, p := range patterns {
		total += len(p.FindAllStringIndex(lower, -1))
	}
	return total
}

// Analyze extracts the signals of text. Empty input yields a zero Analysis.
func Analyze(text string) Analysis {
	if strings.TrimSpace(text) == "" {
		return Analysis{}
	}

	lower := strings.ToLower(text)
	a := Analysis{
		FixCount:          countMatches(lower, fixPatterns),
		AgreementCount:    countMatches(lower, agreementPatterns),
		DisagreementCount: countMatches(lower, disagreementPatterns),
		LineCount:         countLines(text),
		IssuesFingerprint: Fingerprint(text),
	}
	a.MentionsFixes = a.FixCount > 0

	for _, p := range completionPatterns {
		if p.MatchString(lower) {
			a.IsComplete = true
			break
		}
	}
	if status.HasSentinel(text) {
		a.ExplicitNoIssues = true
		a.IsComplete = true
	}
	return a
}

// Compare classifies how two analyses relate.
func Compare(a, b Analysis) Agreement {
	switch {
	case a.IsComplete && b.IsComplete:
		return FullAgreement
	case a.IsComplete != b.IsComplete:
		return Disagreement
	case a.IssuesFingerprint == b.IssuesFingerprint:
		return FullAgreement
	default:
		return PartialAgreement
	}
}

// ClassifyConviction decides by simple majority; ties are neutral.
func ClassifyConviction(agreementCount, disagreementCount int) Conviction {
	switch {
	case agreementCount > disagreementCount:
		return Convinced
	case disagreementCount > agreementCount:
		return Rejected
	default:
		return Neutral
	}
}

// IssueLines returns the normalized, sorted, de-duplicated issue-like lines
// of text.
func IssueLines(text string) []string {
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || markerLinePattern.MatchString(line) {
			continue
		}
		if !issueLinePattern.MatchString(line) {
			continue
		}
		norm := normalizeLine(line)
		if norm != "" {
			seen[norm] = struct{}{}
		}
	}

	lines := make([]string, 0, len(seen))
	for l := range seen {
		lines = append(lines, l)
	}
	sort.Strings(lines)
	return lines
}

// Fingerprint digests the issue lines of text. Text without issue lines has
// an empty fingerprint, which never counts as a repeat.
func Fingerprint(text string) string {
	lines := IssueLines(text)
	if len(lines) == 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

func normalizeLine(line string) string {
	line = strings.ToLower(line)
	line = listMarkerPattern.ReplaceAllString(line, "")
	return strings.Join(strings.Fields(line), " ")
}

func countLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
