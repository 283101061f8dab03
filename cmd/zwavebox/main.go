package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/neox5/zwavebox/internal/app"
	"github.com/neox5/zwavebox/internal/config"
	"github.com/neox5/zwavebox/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "zwavebox",
		Usage:   "Prometheus exporter for Z-Wave device values and estimated energy",
		Version: version.String(),
		Flags:   config.Flags(),
		Action:  serve,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	slog.Info("starting zwavebox", "version", version.String(), "config", cfg)

	// Setup graceful shutdown
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(shutdownCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if err := application.Run(shutdownCtx); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger from the logging configuration.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, ok := cfg.SlogLevel()

	opts := &slog.HandlerOptions{Level: level}
	if !cfg.Timestamps {
		opts.ReplaceAttr = dropTime
	}

	logger := slog.New(slog.NewTextHandler(w, opts))
	if !ok {
		logger.Warn("invalid log level, falling back to info", "level", cfg.Level)
	}
	return logger
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
