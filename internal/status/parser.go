// Package status extracts the machine-readable status block agents append to
// their free-form output.
//
// A block looks like:
//
//	---REVIEW_STATUS---
//	EXIT_SIGNAL: false
//	ISSUES_FOUND: 3
//	CONFIDENCE: HIGH
//	---END_REVIEW_STATUS---
//
// Agents that find nothing may instead print the NoIssuesSentinel on a line of
// its own anywhere in the output.
package status

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/fsutil"
)

// NoIssuesSentinel is the token an agent prints, alone on a line, to state
// that it found nothing to report.
const NoIssuesSentinel = "NO_ISSUES_FOUND"

// Well-known field names.
const (
	FieldExitSignal       = "exit_signal"
	FieldIssuesFound      = "issues_found"
	FieldFilesModified    = "files_modified"
	FieldConsensusReached = "consensus_reached"
)

// ErrNoStatusBlock is wrapped by Parse when the output carries neither the
// requested block nor the sentinel.
var ErrNoStatusBlock = errors.New("no status block")

var (
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
	markerPattern = regexp.MustCompile(`^---[A-Za-z0-9_]+---$`)
)

// boolSynonyms maps the fixed vocabulary agents use for yes/no fields.
var boolSynonyms = map[string]bool{
	"YES":  true,
	"FULL": true,
	"NO":   false,
	"LOW":  false,
}

// Record is the parsed content of one status block. It is immutable: the
// accessors return copies.
type Record struct {
	fields map[string]Value
}

// NewRecord builds a record from already-typed fields.
func NewRecord(fields map[string]Value) Record {
	r := Record{fields: make(map[string]Value, len(fields))}
	for k, v := range fields {
		r.fields[k] = v
	}
	return r
}

// Default is the conservative record used when an agent's status cannot be
// read: it never claims the work is done.
func Default() Record {
	return NewRecord(map[string]Value{FieldExitSignal: BoolValue(false)})
}

// NoIssues is the record implied by a standalone sentinel line.
func NoIssues() Record {
	return NewRecord(map[string]Value{
		FieldExitSignal:  BoolValue(true),
		FieldIssuesFound: IntValue(0),
	})
}

// Get returns the raw value for key.
func (r Record) Get(key string) (Value, bool) {
	v, ok := r.fields[normalizeKey(key)]
	return v, ok
}

// Bool returns key as a boolean; ok is false when absent or not a boolean.
func (r Record) Bool(key string) (value, ok bool) {
	v, found := r.Get(key)
	if !found {
		return false, false
	}
	return v.AsBool()
}

// Int returns key as an integer; ok is false when absent or not an integer.
func (r Record) Int(key string) (int, bool) {
	v, found := r.Get(key)
	if !found {
		return 0, false
	}
	return v.AsInt()
}

// String returns key rendered as text, or "" when absent.
func (r Record) String(key string) string {
	v, found := r.Get(key)
	if !found {
		return ""
	}
	return v.String()
}

// ExitSignal reports whether the record claims no further action is needed.
// Anything other than a boolean true counts as false.
func (r Record) ExitSignal() bool {
	b, ok := r.Bool(FieldExitSignal)
	return ok && b
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns a copy of the underlying map.
func (r Record) Fields() map[string]Value {
	out := make(map[string]Value, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Summary renders the record as sorted space-separated key=value pairs.
func (r Record) Summary() string {
	keys := r.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+r.fields[k].String())
	}
	return strings.Join(parts, " ")
}

// Parse extracts the block named blockName from text.
//
// When the block is absent (or never closed) Parse falls back to the
// sentinel: a standalone NoIssuesSentinel line yields NoIssues(). Otherwise it
// returns a MalformedStatusBlock error wrapping ErrNoStatusBlock so callers can
// tell "no status" apart from an empty block.
func Parse(text, blockName string) (Record, error) {
	lines := splitLines(text)
	open := "---" + blockName + "---"
	closing := "---END_" + blockName + "---"

	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == open {
			start = i
			break
		}
	}

	if start >= 0 {
		for end := start + 1; end < len(lines); end++ {
			if strings.TrimSpace(lines[end]) == closing {
				return parseBody(lines[start+1 : end]), nil
			}
		}
	}

	if HasSentinel(text) {
		return NoIssues(), nil
	}

	msg := fmt.Sprintf("%s block not found", blockName)
	if start >= 0 {
		msg = fmt.Sprintf("%s block is not terminated by %s", blockName, closing)
	}
	return Record{}, core.ErrMalformedStatusBlock(blockName, msg).WithCause(ErrNoStatusBlock)
}

// ParseFile reads path and parses blockName from it. A missing file yields a
// MissingArtifact error.
func ParseFile(path, blockName string) (Record, error) {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, core.ErrMissingArtifact(path).WithCause(err)
		}
		return Record{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(string(data), blockName)
}

// ParseOrDefault parses text and substitutes Default() on any error.
func ParseOrDefault(text, blockName string) (Record, error) {
	rec, err := Parse(text, blockName)
	if err != nil {
		return Default(), err
	}
	return rec, nil
}

// HasSentinel reports whether text contains NoIssuesSentinel as an entire
// trimmed line. The match is case-sensitive.
func HasSentinel(text string) bool {
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == NoIssuesSentinel {
			return true
		}
	}
	return false
}

func parseBody(lines []string) Record {
	fields := make(map[string]Value)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || markerPattern.MatchString(trimmed) {
			continue
		}
		idx := strings.Index(trimmed, ":")
		if idx <= 0 {
			continue
		}
		key := normalizeKey(trimmed[:idx])
		if key == "" {
			continue
		}
		fields[key] = parseValue(trimmed[idx+1:])
	}
	return Record{fields: fields}
}

func parseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if digitsPattern.MatchString(s) {
		if n, err := strconv.Atoi(s); err == nil {
			return IntValue(n)
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}
	if b, ok := boolSynonyms[s]; ok {
		return BoolValue(b)
	}
	return StringValue(s)
}

func normalizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, strings.TrimSpace(key))
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
