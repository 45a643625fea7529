/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-api/apiserver/config"
	"github.com/tailored-api/apiserver/internal/logging"
	"github.com/tailored-api/apiserver/internal/server"
)

const shutdownTimeout = 15 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the tailored API server",
	Long: `Starts the tailored API server. Usage:

	tailored server

The server stops gracefully on SIGINT or SIGTERM.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger := logging.New(cfg.LogLevel, cfg.AppName, cfg.Env)

		ctx := cmd.Context()
		srv, err := server.New(ctx, cfg, server.WithLogger(logger))
		if err != nil {
			logger.Error("failed to start server", slog.Any("error", err))
			return fmt.Errorf("start server: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				logger.Error("server error", slog.Any("error", err))
			}
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
