package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/pelotoniq/metricsd/internal/app"
	"github.com/pelotoniq/metricsd/internal/config"
	"github.com/pelotoniq/metricsd/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:    "pelotoniq-metricsd",
		Usage:   "Business metrics collection and exposition daemon",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to configuration file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: serve,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd.Bool("debug"))
	slog.SetDefault(logger)

	configPath := cmd.String("config")
	slog.Info("starting pelotoniq-metricsd",
		"version", version.String(), "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(shutdownCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer application.Close()

	// Collection starts before the server so the first scrape can
	// already see data from the immediate first round.
	application.Scheduler.Run(shutdownCtx)
	defer application.Scheduler.Wait()

	application.Monitor.Run(shutdownCtx)
	defer application.Monitor.Wait()

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if application.OTELExporter != nil {
		wg.Go(func() {
			if err := application.OTELExporter.Start(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("otel exporter: %w", err)
			}
		})
	}

	wg.Go(func() {
		if err := application.Server.Start(shutdownCtx); err != nil {
			errChan <- fmt.Errorf("exposition server: %w", err)
		}
	})

	// A bind failure or exporter error is fatal; otherwise run until
	// the shutdown signal arrives.
	var runErr error
	select {
	case runErr = <-errChan:
		slog.Error("component failed", "error", runErr)
		stop()
	case <-shutdownCtx.Done():
	}

	wg.Wait()

	slog.Info("shutdown complete")
	return runErr
}

// newLogger builds the process logger: colored output on a terminal,
// plain text otherwise.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	if isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
