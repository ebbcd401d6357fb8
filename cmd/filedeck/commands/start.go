package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/internal/telemetry"
	"github.com/marmos91/filedeck/pkg/config"
	"github.com/marmos91/filedeck/pkg/server"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the FileDeck server",
	Long: `Start the FileDeck server in the foreground with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/filedeck/config.yaml.

Examples:
  # Start with default config location
  filedeck start

  # Start with custom config file
  filedeck start --config /etc/filedeck/config.yaml

  # Start with environment variable overrides
  FILEDECK_LOGGING_LEVEL=DEBUG FILEDECK_SERVER_PORT=2121 filedeck start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Write the process ID to this file while running")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Service: "filedeck",
		Version: Version,
		Tracing: telemetry.TracingConfig{
			Enabled:    cfg.Telemetry.Enabled,
			Endpoint:   cfg.Telemetry.Endpoint,
			Insecure:   cfg.Telemetry.Insecure,
			SampleRate: cfg.Telemetry.SampleRate,
		},
		Profiling: telemetry.ProfilingConfig{
			Enabled:      cfg.Telemetry.Profiling.Enabled,
			Endpoint:     cfg.Telemetry.Profiling.Endpoint,
			ProfileTypes: cfg.Telemetry.Profiling.ProfileTypes,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// ctx is cancelled by the time this runs.
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Error("Telemetry shutdown error", logger.KeyError, err)
		}
	}()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "FileDeck - multi-user file server")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Telemetry",
		"tracing", tel.TracingEnabled(),
		"endpoint", cfg.Telemetry.Endpoint,
		"profiling", tel.ProfilingEnabled(),
	)

	srv, err := server.New(ctx, cfg, nil)
	if err != nil {
		return err
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	// Serve drains live sessions once a signal cancels ctx.
	if err := srv.Serve(ctx); err != nil {
		logger.Error("Server error", logger.KeyError, err)
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}
