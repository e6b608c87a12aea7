package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crossreview/internal/breaker"
)

var resetCmd = &cobra.Command{
	Use:   "reset [target]",
	Short: "Forget the previous run",
	Long: `Reset the tracking state, the circuit breaker and its transition history,
and delete the phase artifacts of target (default: current directory).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReset,
}

var resetCircuitCmd = &cobra.Command{
	Use:   "reset-circuit [target]",
	Short: "Close the circuit breaker",
	Long: `Return the circuit breaker to CLOSED with zeroed counters. The transition
history and the total number of opens are kept, and the run state is not
touched, so a halted run can be continued with 'crossreview run --resume'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResetCircuit,
}

var (
	resetKeepArtifacts bool
	resetCircuitReason string
)

func init() {
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(resetCircuitCmd)

	resetCmd.Flags().BoolVar(&resetKeepArtifacts, "keep-artifacts", false,
		"Keep the phase artifacts")
	resetCircuitCmd.Flags().StringVar(&resetCircuitReason, "reason", "manual reset",
		"Reason recorded in the transition history")
}

func runReset(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(target)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ws := openWorkspace(cfg, target, logger)

	if err := ws.tracking.Reset(); err != nil {
		return err
	}
	cb, err := breaker.New(ws.breaker, thresholds(cfg), breaker.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := cb.Purge(); err != nil {
		return err
	}
	if !resetKeepArtifacts {
		if err := ws.artifacts.Clear(); err != nil {
			return fmt.Errorf("clearing artifacts: %w", err)
		}
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", ws.dir)
	}
	return nil
}

func runResetCircuit(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(target)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ws := openWorkspace(cfg, target, logger)

	cb, err := breaker.New(ws.breaker, thresholds(cfg), breaker.WithLogger(logger))
	if err != nil {
		return err
	}
	prev := cb.Snapshot().State
	if err := cb.Reset(resetCircuitReason); err != nil {
		return err
	}

	if !quiet {
		s := newStyles(cmd.OutOrStdout())
		fmt.Fprintf(cmd.OutOrStdout(), "Circuit breaker %s -> %s\n",
			s.CircuitState(prev), s.CircuitState(breaker.StateClosed))
	}
	return nil
}
