package testutil

import (
	"strconv"
	"strings"
)

// Block renders a status block named name from key/value pairs.
func Block(name string, kv ...string) string {
	var b strings.Builder
	b.WriteString("---" + name + "---\n")
	for i := 0; i+1 < len(kv); i += 2 {
		b.WriteString(kv[i] + ": " + kv[i+1] + "\n")
	}
	b.WriteString("---END_" + name + "---\n")
	return b.String()
}

// Review renders a phase-1 answer listing issues, one per line.
func Review(exit bool, issues ...string) string {
	var b strings.Builder
	for _, issue := range issues {
		b.WriteString("- " + issue + "\n")
	}
	b.WriteString("\n")
	return b.String() + Block("REVIEW_STATUS",
		"EXIT_SIGNAL", boolText(exit),
		"ISSUES_FOUND", strconv.Itoa(len(issues)),
	)
}

// MetaReview renders a phase-3 answer.
func MetaReview(consensus bool) string {
	return "Responses to the critique.\n\n" + Block("META_REVIEW_STATUS", "CONSENSUS_REACHED", boolText(consensus))
}

// Synthesis renders a phase-4 answer.
func Synthesis(exit bool, filesModified int) string {
	return "Applied the agreed fixes.\n\n" + Block("SYNTHESIS_STATUS",
		"EXIT_SIGNAL", boolText(exit),
		"FILES_MODIFIED", strconv.Itoa(filesModified),
	)
}

func boolText(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
