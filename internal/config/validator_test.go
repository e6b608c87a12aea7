package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "auto"},
		Review: ReviewConfig{
			MaxIterations: 5,
			AgentTimeout:  "15m",
			StateDir:      ".crossreview",
			Reviewers:     []string{"claude", "codex"},
			Synthesizer:   "claude",
		},
		Circuit: CircuitConfig{NoProgressThreshold: 3, DisagreementThreshold: 5, SameIssuesThreshold: 3},
		Agents: map[string]AgentConfig{
			"claude": {Enabled: true, Path: "claude"},
			"codex":  {Enabled: true, Path: "codex"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "verbose" }, field: "log.level", wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, field: "log.format", wantErr: true},
		{name: "zero iterations", mutate: func(c *Config) { c.Review.MaxIterations = 0 }, field: "review.max_iterations", wantErr: true},
		{name: "timeout unparsable", mutate: func(c *Config) { c.Review.AgentTimeout = "soon" }, field: "review.agent_timeout", wantErr: true},
		{name: "timeout below a minute", mutate: func(c *Config) { c.Review.AgentTimeout = "30s" }, field: "review.agent_timeout", wantErr: true},
		{name: "one reviewer", mutate: func(c *Config) { c.Review.Reviewers = []string{"claude"} }, field: "review.reviewers", wantErr: true},
		{name: "same reviewer twice", mutate: func(c *Config) { c.Review.Reviewers = []string{"codex", "codex"} }, field: "review.reviewers", wantErr: true},
		{name: "disabled reviewer", mutate: func(c *Config) { c.Agents["codex"] = AgentConfig{Path: "codex"} }, field: "review.reviewers", wantErr: true},
		{name: "unlisted reviewer uses builtin", mutate: func(c *Config) { c.Review.Reviewers = []string{"claude", "gemini"} }},
		{name: "no synthesizer", mutate: func(c *Config) { c.Review.Synthesizer = "" }, field: "review.synthesizer", wantErr: true},
		{name: "reviewer name with space", mutate: func(c *Config) { c.Review.Reviewers = []string{"my agent", "codex"} }, field: "review.reviewers", wantErr: true},
		{name: "synthesizer name with path", mutate: func(c *Config) { c.Review.Synthesizer = "../claude" }, field: "review.synthesizer", wantErr: true},
		{name: "consensus not a reviewer", mutate: func(c *Config) { c.Review.ConsensusAgent = "gemini" }, field: "review.consensus_agent", wantErr: true},
		{name: "zero threshold", mutate: func(c *Config) { c.Circuit.SameIssuesThreshold = 0 }, field: "circuit.same_issues_threshold", wantErr: true},
		{name: "file cap above total", mutate: func(c *Config) {
			c.Source.MaxFileBytes = 10
			c.Source.MaxTotalBytes = 5
		}, field: "source.max_file_bytes", wantErr: true},
		{name: "enabled agent without path", mutate: func(c *Config) { c.Agents["gemini"] = AgentConfig{Enabled: true} }, field: "agents.gemini.path", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error type = %T, want ValidationErrors", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %s in %v", tt.field, err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "loud"
	cfg.Review.MaxIterations = -1

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "log.level") || !strings.Contains(msg, "review.max_iterations") {
		t.Errorf("error = %q, want both fields", msg)
	}
}
