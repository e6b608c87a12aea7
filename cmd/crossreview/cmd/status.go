package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crossreview/internal/breaker"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tracking"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status [target]",
	Short: "Show the state of the last review run",
	Long: `Show the tracking state and circuit breaker of the last review run on
target (default: current directory).

With --watch the view is redrawn whenever a running review updates its
state files, until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

var (
	statusJSON    bool
	statusWatch   bool
	statusHistory int
)

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Redraw on every state change")
	statusCmd.Flags().IntVar(&statusHistory, "history", 10, "History entries to show (0 for all)")
}

// StatusOutput is the --json document.
type StatusOutput struct {
	Run     *tracking.State  `json:"run"`
	Circuit breaker.Snapshot `json:"circuit_breaker"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(target)
	if err != nil {
		return err
	}
	ws := openWorkspace(cfg, target, newLogger(cfg))
	out := cmd.OutOrStdout()

	if !statusWatch {
		return printStatus(out, ws)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchStatus(ctx, out, ws)
}

// loadStatus reads the state files without repairing them; a run in
// another process may own them.
func loadStatus(ws *workspace) (*StatusOutput, error) {
	st, err := ws.tracking.Read()
	if err != nil {
		return nil, fmt.Errorf("loading tracking state: %w", err)
	}
	snap, _, err := ws.breaker.Read()
	if err != nil {
		return nil, fmt.Errorf("loading circuit breaker: %w", err)
	}
	return &StatusOutput{Run: st, Circuit: snap}, nil
}

func printStatus(w io.Writer, ws *workspace) error {
	status, err := loadStatus(ws)
	if err != nil {
		return err
	}
	if statusJSON {
		return outputJSON(w, status)
	}

	s := newStyles(w)
	renderRun(w, s, status.Run, statusHistory)
	fmt.Fprintln(w)
	renderCircuit(w, s, status.Circuit)
	return nil
}

// watchStatus redraws the status after every write to the tracking or
// breaker files. The state directory may not exist yet.
func watchStatus(ctx context.Context, w io.Writer, ws *workspace) error {
	if err := os.MkdirAll(ws.dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(ws.dir); err != nil {
		return fmt.Errorf("watching %s: %w", ws.dir, err)
	}

	watched := map[string]bool{
		tracking.FileName:       true,
		breaker.StateFileName:   true,
		breaker.HistoryFileName: true,
	}
	redraw := func() error {
		if tui.IsTerminal(w) && !statusJSON {
			fmt.Fprint(w, "\033[H\033[2J")
		}
		return printStatus(w, ws)
	}

	if err := redraw(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Base(ev.Name)] || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			if err := redraw(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching state: %w", err)
		}
	}
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
