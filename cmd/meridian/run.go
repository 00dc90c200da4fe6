package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"meridian-llm/meridian/pkg/config"
	"meridian-llm/meridian/pkg/server"
	"meridian-llm/meridian/pkg/service"
	"meridian-llm/meridian/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Meridian gateway",
	Long: `Start the Meridian gateway with the specified configuration.

The gateway listens on the configured address, balances completion
requests across the configured backends, and serves the status and
analytics surfaces. Edits to the configuration file are picked up
without a restart.

Examples:
  # Start with the default config
  meridian run

  # Start with a custom config
  meridian run --config /etc/meridian/config.yaml

  # Override the listen address
  meridian run --listen 0.0.0.0:9090

  # Validate the config without starting
  meridian run --dry-run`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the gateway")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "disable configuration hot reload")
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if _, err := logging.Setup(cfg.Logging, os.Stdout); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	svc, err := service.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start background jobs: %w", err)
	}

	if !runFlags.noWatch {
		watcher, err := config.NewWatcher(cfgFile, config.DefaultDebounceInterval)
		if err != nil {
			slog.Warn("config hot reload disabled", "error", err)
		} else {
			defer watcher.Close()
			go func() {
				err := watcher.Watch(ctx, func() error {
					next, err := config.LoadWithEnvOverrides(cfgFile)
					if err != nil {
						return err
					}
					return svc.Reload(next)
				})
				if err != nil {
					slog.Error("config watcher exited", "error", err)
				}
			}()
		}
	}

	slog.Info("meridian starting",
		"version", Version,
		"providers", len(cfg.Providers),
		"routing_strategy", cfg.Routing.Strategy,
		"rate_limit_strategy", cfg.RateLimit.Strategy,
	)

	return server.NewServer(cfg, svc).Start(ctx)
}
