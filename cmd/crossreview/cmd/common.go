package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/crossreview/internal/adapters/cli"
	"github.com/hugo-lorenzo-mato/crossreview/internal/breaker"
	"github.com/hugo-lorenzo-mato/crossreview/internal/config"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
	"github.com/hugo-lorenzo-mato/crossreview/internal/review"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tracking"
)

// resolveTarget returns the absolute directory under review: the first
// argument or the current directory.
func resolveTarget(args []string) (string, error) {
	target := "."
	if len(args) > 0 && args[0] != "" {
		target = args[0]
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolving target: %w", err)
	}
	return abs, nil
}

// loadConfig loads and validates the configuration for target. Without
// --config the target's own .crossreview directory is searched first.
func loadConfig(target string) (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	} else {
		dirs := []string{filepath.Join(target, ".crossreview")}
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".config", "crossreview"))
		}
		loader.WithSearchDirs(dirs...)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs always go to stderr so that
// stdout stays machine readable.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Log.Level
	if quiet && level == "info" {
		level = "warn"
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// workspace groups the persistent stores of one target.
type workspace struct {
	dir       string
	tracking  *tracking.Store
	breaker   *breaker.Store
	artifacts *review.ArtifactStore
}

func openWorkspace(cfg *config.Config, target string, logger *logging.Logger) *workspace {
	dir := cfg.Review.StatePath(target)
	return &workspace{
		dir:       dir,
		tracking:  tracking.NewStore(dir, tracking.WithLogger(logger)),
		breaker:   breaker.NewStore(dir, logger),
		artifacts: review.NewArtifactStore(filepath.Join(dir, review.ArtifactsDirName)),
	}
}

// thresholds converts the circuit settings.
func thresholds(cfg *config.Config) breaker.Thresholds {
	return breaker.Thresholds{
		NoProgress:   cfg.Circuit.NoProgressThreshold,
		Disagreement: cfg.Circuit.DisagreementThreshold,
		SameIssues:   cfg.Circuit.SameIssuesThreshold,
	}
}

// buildRegistry overlays the configured agents onto the built-in ones.
func buildRegistry(cfg *config.Config) *cli.Registry {
	registry := cli.NewRegistry()
	for name, agent := range cfg.Agents {
		registry.Configure(cli.AgentConfig{
			Name:         name,
			Path:         agent.Path,
			Model:        agent.Model,
			Args:         agent.Args,
			ElevatedArgs: agent.ElevatedArgs,
			Enabled:      agent.Enabled,
			Env:          agent.Env,
		})
	}
	return registry
}

// reviewConfig converts the loaded settings into the per-run settings.
func reviewConfig(cfg *config.Config, target string) review.Config {
	return review.Config{
		TargetDir:      target,
		MaxIterations:  cfg.Review.MaxIterations,
		AgentTimeout:   cfg.Review.Timeout(),
		Reviewers:      append([]string(nil), cfg.Review.Reviewers...),
		Synthesizer:    cfg.Review.Synthesizer,
		ConsensusAgent: cfg.Review.ConsensusAgent,
	}
}
