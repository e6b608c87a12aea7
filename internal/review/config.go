// Package review runs the adversarial review loop: two reviewers examine a
// target, critique each other, answer the critiques, and a synthesizer
// applies the agreed fixes. Iterations repeat until the reviewers report a
// clean target, the iteration budget runs out or the circuit breaker opens.
package review

import (
	"errors"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
)

// Defaults for Config.
const (
	DefaultMaxIterations = 5
	DefaultAgentTimeout  = 15 * time.Minute
)

// Config holds the per-run settings.
type Config struct {
	// TargetDir is the directory under review.
	TargetDir     string
	MaxIterations int
	// AgentTimeout bounds every single agent invocation.
	AgentTimeout time.Duration
	// Reviewers are the two agents of phases 1-3.
	Reviewers   []string
	Synthesizer string
	// ConsensusAgent is the reviewer whose meta-review decides whether the
	// agents agree. Empty means the first reviewer.
	ConsensusAgent string
	// Resume continues an interrupted run instead of starting a new one.
	Resume bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		TargetDir:     ".",
		MaxIterations: DefaultMaxIterations,
		AgentTimeout:  DefaultAgentTimeout,
		Reviewers:     []string{core.AgentClaude, core.AgentCodex},
		Synthesizer:   core.AgentClaude,
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.TargetDir == "" {
		invalid("target directory is required")
	}
	if c.MaxIterations < 1 {
		invalid("max iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.AgentTimeout <= 0 {
		invalid("agent timeout must be positive, got %v", c.AgentTimeout)
	}
	switch {
	case len(c.Reviewers) != 2:
		invalid("exactly two reviewers are required, got %d", len(c.Reviewers))
	case c.Reviewers[0] == "" || c.Reviewers[1] == "":
		invalid("reviewer names must not be empty")
	case c.Reviewers[0] == c.Reviewers[1]:
		invalid("reviewers must be distinct, got %q twice", c.Reviewers[0])
	}
	for _, name := range c.Reviewers {
		if name != "" && !core.ValidAgentName(name) {
			invalid("invalid reviewer name %q", name)
		}
	}
	switch {
	case c.Synthesizer == "":
		invalid("synthesizer is required")
	case !core.ValidAgentName(c.Synthesizer):
		invalid("invalid synthesizer name %q", c.Synthesizer)
	}
	if c.ConsensusAgent != "" && len(c.Reviewers) == 2 &&
		c.ConsensusAgent != c.Reviewers[0] && c.ConsensusAgent != c.Reviewers[1] {
		invalid("consensus agent %q is not a reviewer", c.ConsensusAgent)
	}
	return errors.Join(errs...)
}

// consensusAgent resolves ConsensusAgent against the reviewers.
func (c Config) consensusAgent() string {
	if c.ConsensusAgent != "" {
		return c.ConsensusAgent
	}
	return c.Reviewers[0]
}
