// Package config loads the crossreview settings from defaults, config files,
// environment variables and command-line flags.
package config

import (
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Log         LogConfig              `mapstructure:"log" yaml:"log"`
	Review      ReviewConfig           `mapstructure:"review" yaml:"review"`
	Circuit     CircuitConfig          `mapstructure:"circuit" yaml:"circuit"`
	Source      SourceConfig           `mapstructure:"source" yaml:"source"`
	Agents      map[string]AgentConfig `mapstructure:"agents" yaml:"agents"`
	Diagnostics DiagnosticsConfig      `mapstructure:"diagnostics" yaml:"diagnostics"`
	Serve       ServeConfig            `mapstructure:"serve" yaml:"serve"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ReviewConfig configures the review loop.
type ReviewConfig struct {
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
	// AgentTimeout is a duration string such as "15m".
	AgentTimeout   string   `mapstructure:"agent_timeout" yaml:"agent_timeout"`
	StateDir       string   `mapstructure:"state_dir" yaml:"state_dir"`
	Reviewers      []string `mapstructure:"reviewers" yaml:"reviewers"`
	Synthesizer    string   `mapstructure:"synthesizer" yaml:"synthesizer"`
	ConsensusAgent string   `mapstructure:"consensus_agent" yaml:"consensus_agent"`
}

// Timeout parses AgentTimeout. Validate has already rejected bad values.
func (c ReviewConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.AgentTimeout)
	if err != nil {
		return 0
	}
	return d
}

// StatePath resolves StateDir against target unless it is absolute.
func (c ReviewConfig) StatePath(target string) string {
	if filepath.IsAbs(c.StateDir) {
		return c.StateDir
	}
	return filepath.Join(target, c.StateDir)
}

// CircuitConfig holds the breaker thresholds.
type CircuitConfig struct {
	NoProgressThreshold   int `mapstructure:"no_progress_threshold" yaml:"no_progress_threshold"`
	DisagreementThreshold int `mapstructure:"disagreement_threshold" yaml:"disagreement_threshold"`
	SameIssuesThreshold   int `mapstructure:"same_issues_threshold" yaml:"same_issues_threshold"`
}

// SourceConfig controls which files are shown to the reviewers.
type SourceConfig struct {
	Extensions    []string `mapstructure:"extensions" yaml:"extensions"`
	ExcludeDirs   []string `mapstructure:"exclude_dirs" yaml:"exclude_dirs"`
	MaxFileBytes  int64    `mapstructure:"max_file_bytes" yaml:"max_file_bytes"`
	MaxTotalBytes int64    `mapstructure:"max_total_bytes" yaml:"max_total_bytes"`
}

// AgentConfig configures a single agent CLI. Empty fields keep the built-in
// launch settings.
type AgentConfig struct {
	Enabled      bool              `mapstructure:"enabled" yaml:"enabled"`
	Path         string            `mapstructure:"path" yaml:"path,omitempty"`
	Model        string            `mapstructure:"model" yaml:"model,omitempty"`
	Args         []string          `mapstructure:"args" yaml:"args,omitempty"`
	ElevatedArgs []string          `mapstructure:"elevated_args" yaml:"elevated_args,omitempty"`
	Env          map[string]string `mapstructure:"env" yaml:"env,omitempty"`
}

// DiagnosticsConfig configures the pre-invocation resource checks.
type DiagnosticsConfig struct {
	// MinFreeMemoryMB refuses to start an agent below this much free memory.
	// Zero disables the check.
	MinFreeMemoryMB uint64 `mapstructure:"min_free_memory_mb" yaml:"min_free_memory_mb"`
}

// ServeConfig configures the read-only HTTP API.
type ServeConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}
