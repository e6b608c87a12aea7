package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crossreview/internal/adapters/cli"
	"github.com/hugo-lorenzo-mato/crossreview/internal/api"
	"github.com/hugo-lorenzo-mato/crossreview/internal/breaker"
	"github.com/hugo-lorenzo-mato/crossreview/internal/collector"
	"github.com/hugo-lorenzo-mato/crossreview/internal/config"
	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/crossreview/internal/events"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
	"github.com/hugo-lorenzo-mato/crossreview/internal/prompts"
	"github.com/hugo-lorenzo-mato/crossreview/internal/review"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run [target]",
	Short: "Run the review loop on a directory",
	Long: `Run the four-phase review loop on target (default: current directory).

Each iteration runs an independent review and a cross-review by both
reviewers, a meta-review of the critiques, and a synthesis that applies the
agreed fixes. The loop ends when the reviewers find nothing left to fix,
when the circuit breaker detects a stalled loop, or after --max-iterations.

Progress is shown as an interactive view on terminals and as plain lines
elsewhere; --output json prints one JSON event per line. Exit status is 0
when the run ends clean and 1 otherwise.

Examples:
  # Review the current directory
  crossreview run

  # Three iterations with a 10 minute agent timeout
  crossreview run ./service --max-iterations 3 --timeout 10m

  # Continue an interrupted run and expose the API while it runs
  crossreview run --resume --serve 127.0.0.1:8787`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var (
	runMaxIterations int
	runTimeout       time.Duration
	runResume        bool
	runServe         string
	runOutput        string
)

// runLogFile receives the logs while the interactive view is shown.
const runLogFile = "run.log"

// newBackend builds the agent backend. Tests replace it.
var newBackend = func(cfg *config.Config, logger *logging.Logger) core.AgentBackend {
	preflight := diagnostics.NewPreflight(int(cfg.Diagnostics.MinFreeMemoryMB), logger)
	return cli.NewBackend(buildRegistry(cfg),
		cli.WithPreflight(preflight),
		cli.WithLogger(logger),
	)
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runMaxIterations, "max-iterations", "n", 0,
		"maximum number of iterations (default from config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0,
		"timeout of a single agent invocation (default from config)")
	runCmd.Flags().BoolVar(&runResume, "resume", false,
		"continue an interrupted run")
	runCmd.Flags().StringVar(&runServe, "serve", "",
		"also serve the read-only API on this address while running")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "auto",
		"progress output (auto, tui, plain, json, quiet)")
}

func runRun(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(target)
	if err != nil {
		return err
	}

	rc := reviewConfig(cfg, target)
	if cmd.Flags().Changed("max-iterations") {
		rc.MaxIterations = runMaxIterations
	}
	if cmd.Flags().Changed("timeout") {
		rc.AgentTimeout = runTimeout
	}
	rc.Resume = runResume

	errOut := cmd.ErrOrStderr()
	detector := tui.NewDetector(errOut).NoColor(noColor).Quiet(quiet)
	if mode, ok := tui.ParseOutputMode(runOutput); ok {
		detector.ForceMode(mode)
	}
	mode := detector.Detect()

	logger, closeLog, err := runLogger(cfg, cfg.Review.StatePath(target), mode)
	if err != nil {
		return err
	}
	defer closeLog()
	ws := openWorkspace(cfg, target, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cb, err := breaker.New(ws.breaker, thresholds(cfg), breaker.WithLogger(logger))
	if err != nil {
		return err
	}
	renderer, err := prompts.NewRenderer()
	if err != nil {
		return err
	}
	src := collector.New(collector.Options{
		Extensions:    cfg.Source.Extensions,
		ExcludeDirs:   cfg.Source.ExcludeDirs,
		MaxFileBytes:  cfg.Source.MaxFileBytes,
		MaxTotalBytes: cfg.Source.MaxTotalBytes,
	}, logger)

	bus := events.New(256)
	defer bus.Close()

	orch, err := review.New(review.Options{
		Config:    rc,
		Backend:   newBackend(cfg, logger),
		Prompts:   renderer,
		Collector: src,
		Breaker:   cb,
		Tracking:  ws.tracking,
		Artifacts: ws.artifacts,
		Logger:    logger,
		Events:    bus,
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	useColor := detector.ShouldUseColor()
	switch mode {
	case tui.ModeTUI:
		program := tea.NewProgram(tui.NewModel(bus.Subscribe(), cancel, useColor),
			tea.WithOutput(errOut),
			tea.WithoutSignalHandler(),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := program.Run(); err != nil {
				logger.Error("progress view failed", "error", err)
			}
		}()
	case tui.ModePlain, tui.ModeJSON:
		progress := bus.Subscribe()
		printer := tui.NewFallbackOutput(errOut, useColor, mode == tui.ModeJSON)
		wg.Add(1)
		go func() {
			defer wg.Done()
			printer.Consume(progress)
		}()
	}

	if runServe != "" {
		srv := api.NewServer(ws.tracking, ws.breaker, ws.artifacts,
			api.WithLogger(logger),
			api.WithEventBus(bus),
			api.WithLiveRun(ws.tracking, cb),
			api.WithAllowedOrigins(cfg.Serve.AllowedOrigins),
		)
		go func() {
			if err := srv.ListenAndServe(ctx, runServe); err != nil {
				logger.Error("API server failed", "error", err)
			}
		}()
	}

	outcome, err := orch.Run(ctx)
	bus.Close()
	wg.Wait()
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(errOut, "Interrupted. Continue with `crossreview run --resume`.")
		}
		return err
	}

	out := cmd.OutOrStdout()
	printOutcome(out, newStyles(out), outcome)
	if code := outcome.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// runLogger returns the run logger. While the interactive view owns the
// terminal, logs go to a file in the state directory instead of stderr.
func runLogger(cfg *config.Config, stateDir string, mode tui.OutputMode) (*logging.Logger, func(), error) {
	if mode != tui.ModeTUI {
		return newLogger(cfg), func() {}, nil
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating state directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(stateDir, runLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening run log: %w", err)
	}
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: "json",
		Output: f,
	})
	return logger, func() { _ = f.Close() }, nil
}

// printOutcome writes the final summary of a run.
func printOutcome(w io.Writer, s tui.Styles, o *review.Outcome) {
	fmt.Fprintln(w)
	s.Row(w, "Result", s.RunStatus(o.Status))
	s.Row(w, "Iterations", fmt.Sprintf("%d", o.Iterations))
	if o.Reason != "" {
		s.Row(w, "Reason", o.Reason)
	}
	s.Row(w, "Circuit", s.CircuitState(o.Breaker.State))
	if o.RunID != "" {
		s.Row(w, "Run ID", o.RunID)
	}
}
