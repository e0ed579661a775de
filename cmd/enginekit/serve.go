package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/artpar/enginekit/app"
	"github.com/artpar/enginekit/config"
	"github.com/artpar/enginekit/web"
)

var hotReload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Boot the host application and serve HTTP",
	Long: `Boot the demo host and serve it.

The server will:
  - Load configuration from enginekit.yaml (or --config), falling back
    to defaults when no file exists
  - Run every unit's initializers in constraint order
  - Mount each mountable unit at its mount point
  - Serve /healthz and /metrics alongside the composed routes

Environment variables:
  ENGINEKIT_LOG_LEVEL   - Log level: debug, info, warn, error
  ENGINEKIT_LOG_FORMAT  - "console" for human-readable output

Examples:
  enginekit serve
  enginekit serve --config /etc/enginekit/config.yaml
  enginekit serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := app.NewLogger()

	a, holder, err := newApplication(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if holder != nil {
		if hotReload {
			if err := holder.WatchFile(); err != nil {
				return err
			}
		}
		holder.WatchSignals()
		defer holder.Stop()
	}

	if err := a.Initialize(ctx); err != nil {
		return err
	}

	serverCfg := config.Default().Server
	if holder != nil {
		serverCfg = holder.Get().Server
	}
	return web.New(a, serverCfg, logger).Start(ctx)
}
