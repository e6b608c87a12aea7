// Package collector gathers the reviewable files of a target directory into
// a single text document that is embedded in the review prompt.
package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
)

// Default limits.
const (
	DefaultMaxFileBytes  = 256 * 1024
	DefaultMaxTotalBytes = 2 * 1024 * 1024
)

// binarySniffBytes is how much of a file is inspected for NUL bytes.
const binarySniffBytes = 8000

// Options controls which files are collected.
type Options struct {
	// Extensions lists the file suffixes to include, with the dot. Empty
	// means every text file.
	Extensions []string
	// ExcludeDirs are directory base names that are never entered.
	ExcludeDirs   []string
	MaxFileBytes  int64
	MaxTotalBytes int64
}

// DefaultExtensions returns the suffixes collected when none are configured.
func DefaultExtensions() []string {
	return []string{
		".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".kt", ".rs",
		".rb", ".php", ".c", ".h", ".cc", ".cpp", ".hpp", ".cs", ".swift",
		".sh", ".sql", ".yaml", ".yml", ".toml", ".json", ".md",
	}
}

// DefaultExcludeDirs returns the directories skipped when none are configured.
func DefaultExcludeDirs() []string {
	return []string{
		".git", ".hg", ".svn", ".crossreview", ".idea", ".vscode",
		"node_modules", "vendor", "dist", "build", "target",
		"__pycache__", ".venv", "venv",
	}
}

// DefaultOptions returns the default collection settings.
func DefaultOptions() Options {
	return Options{
		Extensions:    DefaultExtensions(),
		ExcludeDirs:   DefaultExcludeDirs(),
		MaxFileBytes:  DefaultMaxFileBytes,
		MaxTotalBytes: DefaultMaxTotalBytes,
	}
}

// Collector implements core.SourceCollector over the local filesystem.
type Collector struct {
	opts       Options
	extensions map[string]bool
	exclude    map[string]bool
	logger     *logging.Logger
}

var _ core.SourceCollector = (*Collector)(nil)

// New creates a collector. Zero limits fall back to the defaults.
func New(opts Options, logger *logging.Logger) *Collector {
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	if opts.MaxTotalBytes <= 0 {
		opts.MaxTotalBytes = DefaultMaxTotalBytes
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Collector{
		opts:       opts,
		extensions: make(map[string]bool, len(opts.Extensions)),
		exclude:    make(map[string]bool, len(opts.ExcludeDirs)),
		logger:     logger,
	}
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extensions[ext] = true
	}
	for _, d := range opts.ExcludeDirs {
		c.exclude[d] = true
	}
	return c
}

// Collect walks targetDir in lexical order and returns one
// "=== relative/path ===" section per included file.
func (c *Collector) Collect(ctx context.Context, targetDir string) (string, error) {
	info, err := os.Stat(targetDir)
	if err != nil {
		return "", core.ErrValidation(core.CodeInvalidTarget, fmt.Sprintf("cannot read target %s", targetDir)).WithCause(err)
	}
	if !info.IsDir() {
		return "", core.ErrValidation(core.CodeInvalidTarget, fmt.Sprintf("target %s is not a directory", targetDir))
	}

	var (
		out      strings.Builder
		total    int64
		included int
		omitted  int
	)
	err = filepath.WalkDir(targetDir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			c.logger.Debug("collector: skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != targetDir && c.exclude[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !c.wants(d.Name()) {
			return nil
		}

		if total >= c.opts.MaxTotalBytes {
			omitted++
			return nil
		}
		content, truncated, err := c.read(path)
		if err != nil {
			c.logger.Debug("collector: skipping file", "path", path, "error", err)
			return nil
		}
		if content == nil {
			return nil // binary
		}
		if remaining := c.opts.MaxTotalBytes - total; int64(len(content)) > remaining {
			content = content[:remaining]
			truncated = true
		}

		rel, err := filepath.Rel(targetDir, path)
		if err != nil {
			rel = path
		}
		fmt.Fprintf(&out, "=== %s ===\n", filepath.ToSlash(rel))
		out.Write(content)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			out.WriteByte('\n')
		}
		if truncated {
			out.WriteString("[truncated]\n")
		}
		out.WriteByte('\n')
		total += int64(len(content))
		included++
		return nil
	})
	if err != nil {
		return "", err
	}
	if omitted > 0 {
		fmt.Fprintf(&out, "[%d more files omitted: size limit reached]\n", omitted)
	}

	c.logger.Debug("collector: sources collected",
		"target", targetDir,
		"files", included,
		"omitted", omitted,
		"bytes", total,
	)
	return out.String(), nil
}

func (c *Collector) wants(name string) bool {
	if len(c.extensions) == 0 {
		return true
	}
	return c.extensions[strings.ToLower(filepath.Ext(name))]
}

// read returns up to MaxFileBytes of path, or nil content for binary files.
func (c *Collector) read(path string) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, c.opts.MaxFileBytes+1))
	if err != nil {
		return nil, false, err
	}
	sniff := data
	if len(sniff) > binarySniffBytes {
		sniff = sniff[:binarySniffBytes]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return nil, false, nil
	}
	if int64(len(data)) > c.opts.MaxFileBytes {
		return data[:c.opts.MaxFileBytes], true, nil
	}
	return data, false, nil
}
