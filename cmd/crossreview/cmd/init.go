package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crossreview/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [target]",
	Short: "Write a default configuration",
	Long: `Write .crossreview/config.yaml with the default settings into target
(default: current directory).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(args)
	if err != nil {
		return err
	}
	path := filepath.Join(target, ".crossreview", "config.yaml")

	if err := config.WriteDefault(path, initForce); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("configuration already exists at %s, use --force to overwrite", path)
		}
		return err
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	}
	return nil
}
