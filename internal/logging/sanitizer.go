package logging

import (
	"regexp"
	"sync"
)

// DefaultPlaceholder replaces every redacted match.
const DefaultPlaceholder = "[REDACTED]"

// rule is one named credential pattern.
type rule struct {
	name string
	re   *regexp.Regexp
}

// Sanitizer redacts credentials from text. Agents echo their environment and
// configuration surprisingly often, so both log lines and persisted agent
// output pass through it.
type Sanitizer struct {
	mu          sync.RWMutex
	rules       []rule
	placeholder string
}

// NewSanitizer creates a sanitizer with the built-in rules.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		rules:       builtinRules(),
		placeholder: DefaultPlaceholder,
	}
}

func builtinRules() []rule {
	specs := []struct{ name, pattern string }{
		{"anthropic", `sk-ant-[a-zA-Z0-9_-]{40,}`},
		{"openai", `sk-(?:proj-)?[A-Za-z0-9_-]{20,}`},
		{"google", `AIza[a-zA-Z0-9_-]{35}`},
		{"github", `gh[pousr]_[A-Za-z0-9]{36}`},
		{"aws_access_key", `AKIA[0-9A-Z]{16}`},
		{"aws_secret", `(?i)aws[_-]?secret[_-]?access[_-]?key["'\s:=]+[A-Za-z0-9/+=]{40}`},
		{"slack", `xox[baprs]-[0-9a-zA-Z-]{10,}`},
		{"bearer", `(?i)bearer\s+[a-zA-Z0-9._-]{20,}`},
		{"api_key", `(?i)api[_-]?key["'\s:=]+[a-zA-Z0-9_-]{20,}`},
		{"secret", `(?i)secret["'\s:=]+[a-zA-Z0-9_-]{20,}`},
		{"password", `(?i)password["'\s:=]+[^\s"']{8,}`},
		{"token", `(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`},
	}
	rules := make([]rule, 0, len(specs))
	for _, s := range specs {
		rules = append(rules, rule{name: s.name, re: regexp.MustCompile(s.pattern)})
	}
	return rules
}

// Sanitize returns input with every match replaced by the placeholder.
func (s *Sanitizer) Sanitize(input string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := input
	for _, r := range s.rules {
		out = r.re.ReplaceAllString(out, s.placeholder)
	}
	return out
}

// Matches returns the names of the rules that match input.
func (s *Sanitizer) Matches(input string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for _, r := range s.rules {
		if r.re.MatchString(input) {
			names = append(names, r.name)
		}
	}
	return names
}

// AddPattern registers an extra rule, e.g. from the logging.redact config.
func (s *Sanitizer) AddPattern(name, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule{name: name, re: re})
	return nil
}

// SetPlaceholder changes the replacement text.
func (s *Sanitizer) SetPlaceholder(placeholder string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeholder = placeholder
}
