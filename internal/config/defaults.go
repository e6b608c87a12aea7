package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/crossreview/internal/fsutil"
)

// DefaultConfigYAML contains the default configuration YAML content written
// by `crossreview init`.
const DefaultConfigYAML = `# crossreview configuration
#
# Values not specified here use the built-in defaults. Every key can be
# overridden with an environment variable, e.g. CROSSREVIEW_REVIEW_MAX_ITERATIONS=3.

log:
  level: info     # debug, info, warn, error
  format: auto    # auto, text, json

review:
  max_iterations: 5
  agent_timeout: 15m
  state_dir: .crossreview
  # Exactly two distinct reviewers run phases 1-3 side by side.
  reviewers: [claude, codex]
  # The synthesizer is the only agent allowed to modify files.
  synthesizer: claude
  # Reviewer whose meta-review decides agreement. Empty means the first reviewer.
  consensus_agent: ""

# The circuit breaker stops the loop when iterations stop making progress.
circuit:
  no_progress_threshold: 3
  disagreement_threshold: 5
  same_issues_threshold: 3

source:
  max_file_bytes: 262144
  max_total_bytes: 2097152

agents:
  claude:
    enabled: true
    path: claude
  codex:
    enabled: true
    path: codex
  gemini:
    enabled: true
    path: gemini

diagnostics:
  # Refuse to start an agent below this much free memory. 0 disables the check.
  min_free_memory_mb: 0

serve:
  addr: 127.0.0.1:8787
`

// ErrConfigExists is returned by WriteDefault when the file is already there.
var ErrConfigExists = errors.New("config file already exists")

// WriteDefault writes DefaultConfigYAML to path unless it exists and force
// is false.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := fsutil.AtomicWriteFile(path, []byte(DefaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
