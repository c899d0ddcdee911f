// Package cmd implements the resolvd command line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/resolvd/resolvd/internal/app"
	"github.com/resolvd/resolvd/internal/config"
	"github.com/resolvd/resolvd/internal/log"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "resolvd",
	Short: "Support assistant that answers from your FAQ or escalates to a ticket",
	Long: `resolvd answers support questions by retrieving semantically similar
FAQ entries and deciding whether the evidence is strong enough to answer
confidently, ask a clarifying question, or escalate to a human via a
structured ticket.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(log.New(log.Config{Level: parseLevel(logLevel)}))
	},
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newApp loads configuration and assembles the application.
func newApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	return app.New(ctx, cfg, slog.Default())
}
