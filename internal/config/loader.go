package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/crossreview/internal/collector"
	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
)

// EnvPrefix prefixes every environment override, e.g. CROSSREVIEW_LOG_LEVEL.
const EnvPrefix = "CROSSREVIEW"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
	searchDirs []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	l := &Loader{
		v:         v,
		envPrefix: EnvPrefix,
	}
	l.searchDirs = append(l.searchDirs, ".crossreview")
	if home, err := os.UserHomeDir(); err == nil {
		l.searchDirs = append(l.searchDirs, filepath.Join(home, ".config", "crossreview"))
	}
	return l
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithSearchDirs replaces the directories searched for config.yaml.
func (l *Loader) WithSearchDirs(dirs ...string) *Loader {
	l.searchDirs = dirs
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (CROSSREVIEW_*)
// 3. Project config (.crossreview/config.yaml)
// 4. User config (~/.config/crossreview/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		// First found wins.
		for _, dir := range l.searchDirs {
			l.v.AddConfigPath(dir)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("review.max_iterations", 5)
	l.v.SetDefault("review.agent_timeout", "15m")
	l.v.SetDefault("review.state_dir", ".crossreview")
	l.v.SetDefault("review.reviewers", []string{"claude", "codex"})
	l.v.SetDefault("review.synthesizer", "claude")
	l.v.SetDefault("review.consensus_agent", "")

	l.v.SetDefault("circuit.no_progress_threshold", 3)
	l.v.SetDefault("circuit.disagreement_threshold", 5)
	l.v.SetDefault("circuit.same_issues_threshold", 3)

	l.v.SetDefault("source.extensions", collector.DefaultExtensions())
	l.v.SetDefault("source.exclude_dirs", collector.DefaultExcludeDirs())
	l.v.SetDefault("source.max_file_bytes", collector.DefaultMaxFileBytes)
	l.v.SetDefault("source.max_total_bytes", collector.DefaultMaxTotalBytes)

	for _, name := range core.Agents {
		l.v.SetDefault("agents."+name+".enabled", true)
		l.v.SetDefault("agents."+name+".path", name)
	}

	l.v.SetDefault("diagnostics.min_free_memory_mb", 0)

	l.v.SetDefault("serve.addr", "127.0.0.1:8787")
	l.v.SetDefault("serve.allowed_origins", []string{})
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}
