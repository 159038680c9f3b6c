package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AlexKimmel/askgate/internal/config"
	"github.com/AlexKimmel/askgate/internal/obs"
	"github.com/AlexKimmel/askgate/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Start the HTTP gateway with graceful shutdown support.

SIGINT or SIGTERM drains in-flight requests for up to 10s before exiting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := obs.SetupLogger(cfg.Observability.LogLevel)
		logger.Info().
			Str("version", versionInfo.Version).
			Str("config", viper.GetString("config")).
			Str("strategy", cfg.Limits.Strategy).
			Str("backend", cfg.Limits.Backend).
			Int("max_requests", cfg.Limits.MaxRequests).
			Dur("window", cfg.Limits.Window()).
			Str("model", cfg.Provider.Model).
			Msg("starting askgate")

		srv, err := server.New(cfg, logger, server.Options{Version: versionInfo.Version})
		if err != nil {
			return fmt.Errorf("build server: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()

		select {
		case err := <-errc:
			_ = srv.Shutdown(context.Background())
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
			return err
		}
		logger.Info().Msg("bye")
		return nil
	},
}

// loadConfig reads the config file and layers flag/env overrides on top.
func loadConfig() (*config.Root, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if addr := viper.GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Observability.LogLevel = lvl
	}
	return cfg, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address override, e.g. :3000")
	_ = viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}
