package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateReview(&cfg.Review, cfg.Agents)
	v.validateCircuit(&cfg.Circuit)
	v.validateSource(&cfg.Source)
	v.validateAgents(cfg.Agents)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateReview(cfg *ReviewConfig, agents map[string]AgentConfig) {
	if cfg.MaxIterations < 1 {
		v.addError("review.max_iterations", cfg.MaxIterations, "must be at least 1")
	}

	if d, err := time.ParseDuration(cfg.AgentTimeout); err != nil {
		v.addError("review.agent_timeout", cfg.AgentTimeout, "invalid duration format")
	} else if d < time.Minute {
		v.addError("review.agent_timeout", cfg.AgentTimeout, "must be at least 1m")
	}

	if strings.TrimSpace(cfg.StateDir) == "" {
		v.addError("review.state_dir", cfg.StateDir, "required")
	}

	switch {
	case len(cfg.Reviewers) != 2:
		v.addError("review.reviewers", cfg.Reviewers, "exactly two reviewers are required")
	case cfg.Reviewers[0] == cfg.Reviewers[1]:
		v.addError("review.reviewers", cfg.Reviewers, "reviewers must be distinct")
	default:
		for _, name := range cfg.Reviewers {
			v.requireEnabled("review.reviewers", name, agents)
		}
	}

	if cfg.Synthesizer == "" {
		v.addError("review.synthesizer", cfg.Synthesizer, "required")
	} else {
		v.requireEnabled("review.synthesizer", cfg.Synthesizer, agents)
	}

	if cfg.ConsensusAgent != "" && !contains(cfg.Reviewers, cfg.ConsensusAgent) {
		v.addError("review.consensus_agent", cfg.ConsensusAgent, "must be one of the reviewers")
	}
}

// requireEnabled accepts agents missing from the map: they fall back to the
// built-in launch settings.
func (v *Validator) requireEnabled(field, name string, agents map[string]AgentConfig) {
	if strings.TrimSpace(name) == "" {
		v.addError(field, name, "agent name must not be empty")
		return
	}
	if !core.ValidAgentName(name) {
		v.addError(field, name, "agent name may only contain letters, digits, '.', '_' and '-'")
		return
	}
	if agent, ok := agents[name]; ok && !agent.Enabled {
		v.addError(field, name, "agent is disabled")
	}
}

func (v *Validator) validateCircuit(cfg *CircuitConfig) {
	if cfg.NoProgressThreshold < 1 {
		v.addError("circuit.no_progress_threshold", cfg.NoProgressThreshold, "must be at least 1")
	}
	if cfg.DisagreementThreshold < 1 {
		v.addError("circuit.disagreement_threshold", cfg.DisagreementThreshold, "must be at least 1")
	}
	if cfg.SameIssuesThreshold < 1 {
		v.addError("circuit.same_issues_threshold", cfg.SameIssuesThreshold, "must be at least 1")
	}
}

func (v *Validator) validateSource(cfg *SourceConfig) {
	if cfg.MaxFileBytes < 0 {
		v.addError("source.max_file_bytes", cfg.MaxFileBytes, "must not be negative")
	}
	if cfg.MaxTotalBytes < 0 {
		v.addError("source.max_total_bytes", cfg.MaxTotalBytes, "must not be negative")
	}
	if cfg.MaxFileBytes > 0 && cfg.MaxTotalBytes > 0 && cfg.MaxFileBytes > cfg.MaxTotalBytes {
		v.addError("source.max_file_bytes", cfg.MaxFileBytes, "must not exceed source.max_total_bytes")
	}
}

func (v *Validator) validateAgents(agents map[string]AgentConfig) {
	for name, agent := range agents {
		if agent.Enabled && strings.TrimSpace(agent.Path) == "" {
			v.addError("agents."+name+".path", agent.Path, "required when agent is enabled")
		}
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
