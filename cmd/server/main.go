// Package main is the entry point for the profilehub server. It loads
// configuration, opens the selected backend, wires the plugins and starts
// the HTTP server. `migrate` manages the local backend's schema.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/profilehub/internal/app"
	"github.com/keyxmakerx/profilehub/internal/config"
)

type contextKey string

const configContextKey contextKey = "config"

var rootCmd = &cobra.Command{
	Use:   "profilehub",
	Short: "Account and profile web application",
	Long: `profilehub serves sign-up, login, password reset and a profile page
on top of a hosted GoTrue/PostgREST compatible backend or the embedded
MariaDB + Redis backend. Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)
		cmd.SetContext(context.WithValue(cmd.Context(), configContextKey, cfg))
		return nil
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// configFrom returns the configuration loaded by the root command.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configContextKey).(*config.Config)
	if !ok {
		return nil, errors.New("no config in context")
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}

	slog.Info("starting profilehub",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.Backend.Driver),
	)
	if cfg.SiteURL == "" {
		slog.Warn("SITE_URL is empty, sign-up and password reset will fail")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	application, err := app.New(cfg, b)
	if err != nil {
		return err
	}
	application.RegisterRoutes()

	// --- Graceful Shutdown ---
	// Drain in-flight requests when the container is stopped.
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// setupLogging configures the global slog logger. Development uses text
// format for readability, production JSON for log aggregation. LOG_LEVEL
// overrides the level in either.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
