package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
)

// killGrace bounds how long Wait blocks on output pipes once the process
// group has been killed.
const killGrace = 5 * time.Second

// Backend implements core.AgentBackend by launching agent CLIs.
type Backend struct {
	registry  *Registry
	preflight *diagnostics.Preflight
	logger    *logging.Logger
}

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithPreflight runs p before every invocation.
func WithPreflight(p *diagnostics.Preflight) BackendOption {
	return func(b *Backend) {
		b.preflight = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) BackendOption {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend creates a backend resolving agents through registry.
func NewBackend(registry *Registry, opts ...BackendOption) *Backend {
	b := &Backend{registry: registry, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ core.AgentBackend = (*Backend)(nil)

// Invoke runs req.Agent on req.Prompt. The result is returned even when the
// invocation fails so callers can keep whatever output was produced.
func (b *Backend) Invoke(ctx context.Context, req core.InvokeRequest) (*core.InvokeResult, error) {
	cfg, err := b.registry.Get(req.Agent)
	if err != nil {
		return &core.InvokeResult{ExitCode: -1}, err
	}
	if b.preflight != nil {
		if err := b.preflight.Check(req.Agent); err != nil {
			return &core.InvokeResult{ExitCode: -1}, err
		}
	}

	path, args := cfg.Command(req.Elevated)
	if path == "" {
		return &core.InvokeResult{ExitCode: -1},
			core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("agent %q has no path configured", cfg.Name))
	}

	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	log := b.logger.WithAgent(cfg.Name)

	// #nosec G204 -- path and args come from the agent configuration
	cmd := exec.CommandContext(callCtx, path, args...)
	configureProcess(cmd)
	cmd.WaitDelay = killGrace
	cmd.Dir = req.WorkDir
	cmd.Stdin = strings.NewReader(req.Prompt)
	cmd.Env = append(os.Environ(), "CROSSREVIEW_MANAGED=true", "CROSSREVIEW_AGENT="+cfg.Name)
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("cli: executing agent",
		"path", path,
		"args", args,
		"work_dir", cmd.Dir,
		"prompt_length", len(req.Prompt),
		"elevated", req.Elevated,
		"timeout", req.Timeout,
	)

	start := time.Now()
	runErr := cmd.Run()
	result := &core.InvokeResult{
		Output:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		result.ExitCode = -1
		log.Warn("cli: agent timed out",
			"duration", result.Duration,
			"timeout", req.Timeout,
			"stdout_length", len(result.Output),
		)
		return result, core.ErrAgentTimeout(cfg.Name,
			fmt.Sprintf("agent %s timed out after %v", cfg.Name, req.Timeout))

	case ctx.Err() != nil:
		result.ExitCode = -1
		return result, fmt.Errorf("agent %s: %w", cfg.Name, ctx.Err())

	case runErr != nil:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		msg := failureMessage(result)
		log.Warn("cli: agent failed",
			"exit_code", result.ExitCode,
			"duration", result.Duration,
			"stderr", truncate(result.Stderr, 2000),
		)
		return result, core.ErrAgentFailure(cfg.Name, result.ExitCode, msg).WithCause(runErr)
	}

	log.Debug("cli: agent completed",
		"duration", result.Duration,
		"stdout_length", len(result.Output),
		"stdout_preview", truncate(result.Output, 300),
	)
	return result, nil
}

// failureMessage picks the most useful line to explain a failed exit:
// the last non-empty stderr line, else the last stdout line.
func failureMessage(r *core.InvokeResult) string {
	for _, stream := range []string{r.Stderr, r.Output} {
		lines := strings.Split(strings.TrimSpace(stream), "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if line := strings.TrimSpace(lines[i]); line != "" {
				return fmt.Sprintf("exit code %d: %s", r.ExitCode, truncate(line, 200))
			}
		}
	}
	return fmt.Sprintf("exit code %d: (no error message captured)", r.ExitCode)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... [truncated]"
}
