package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crossreview/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [target]",
	Short: "Check agents and system resources",
	Long: `Verify the configuration, that the agent CLIs are on PATH, and that the
machine has the resources the preflight check requires.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

var doctorJSON bool

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output as JSON")
}

// DoctorReport is the --json document.
type DoctorReport struct {
	System diagnostics.SystemReport `json:"system"`
	Agents []DoctorAgent            `json:"agents"`
	OK     bool                     `json:"ok"`
}

// DoctorAgent is one agent check.
type DoctorAgent struct {
	diagnostics.AgentCheck
	Required bool `json:"required"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	target, err := resolveTarget(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(target)
	if err != nil {
		fmt.Fprintln(out, "Validating configuration...")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  ✗ %v\n", err)
		return fmt.Errorf("configuration check failed")
	}

	required := append(append([]string(nil), cfg.Review.Reviewers...), cfg.Review.Synthesizer)
	registry := buildRegistry(cfg)
	report := DoctorReport{
		System: diagnostics.CollectSystem(target),
		OK:     true,
	}
	for _, name := range registry.Names() {
		agent, err := registry.Get(name)
		if err != nil {
			continue
		}
		check := DoctorAgent{
			AgentCheck: diagnostics.CheckAgent(name, agent.Path),
			Required:   slices.Contains(required, name),
		}
		if check.Required && !check.Found {
			report.OK = false
		}
		report.Agents = append(report.Agents, check)
	}

	preflight := diagnostics.NewPreflight(int(cfg.Diagnostics.MinFreeMemoryMB), logging.NewNop()).Run()
	if !preflight.OK {
		report.OK = false
	}

	if doctorJSON {
		if err := outputJSON(out, report); err != nil {
			return err
		}
		if !report.OK {
			return &ExitError{Code: 1}
		}
		return nil
	}

	fmt.Fprintln(out, "Checking agents...")
	fmt.Fprintln(out)
	for _, a := range report.Agents {
		icon, suffix := "✓", " ("+a.Resolved+")"
		if !a.Found {
			if a.Required {
				icon, suffix = "✗", " (required, not on PATH)"
			} else {
				icon, suffix = "○", " (optional)"
			}
		}
		fmt.Fprintf(out, "  %s %s%s\n", icon, a.Name, suffix)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Checking system...")
	fmt.Fprintln(out)
	sys := report.System
	fmt.Fprintf(out, "  %s/%s", sys.OS, sys.Arch)
	if sys.CPUModel != "" {
		fmt.Fprintf(out, ", %s (%d threads)", sys.CPUModel, sys.CPUThreads)
	}
	fmt.Fprintln(out)
	if sys.MemTotalMB > 0 {
		fmt.Fprintf(out, "  memory: %.0f MB free of %.0f MB\n", sys.MemFreeMB, sys.MemTotalMB)
	}
	if sys.DiskPath != "" {
		fmt.Fprintf(out, "  disk: %.1f GB free at %s\n", sys.DiskFreeGB, sys.DiskPath)
	}
	for _, w := range preflight.Warnings {
		fmt.Fprintf(out, "  ⚠ %s\n", w)
	}
	for _, e := range preflight.Errors {
		fmt.Fprintf(out, "  ✗ %s\n", e)
	}
	fmt.Fprintln(out)

	if !report.OK {
		fmt.Fprintln(out, "Some required checks failed")
		return fmt.Errorf("doctor checks failed")
	}
	fmt.Fprintln(out, "All required agents available")
	return nil
}
