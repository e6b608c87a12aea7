package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crossreview/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve [target]",
	Short: "Serve the read-only run API",
	Long: `Serve a read-only HTTP API over the state of target (default: current
directory): run tracking, circuit breaker and artifacts.

The live event stream is only available from 'crossreview run --serve'.

Examples:
  # Start with defaults (127.0.0.1:8787)
  crossreview serve

  # Custom address
  crossreview serve ./service --addr 0.0.0.0:9000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServeCmd,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from config)")
}

func runServeCmd(cmd *cobra.Command, args []string) error {
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

	addr := cfg.Serve.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := api.NewServer(ws.tracking, ws.breaker, ws.artifacts,
		api.WithLogger(logger),
		api.WithAllowedOrigins(cfg.Serve.AllowedOrigins),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, addr)
}
