package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"blogfeed/pkg/config"
	"blogfeed/pkg/logger"
	app "blogfeed/services/feed/internal/app"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "feedctl [command] [flags]",
	Short:         "Operator tasks for the feed counters",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every subcommand runs against.
type env struct {
	cfg      *config.Config
	log      *logger.Logger
	backends *app.Backends
	uc       *app.UseCases
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DBDriver == app.DriverMemory {
		return nil, fmt.Errorf("feedctl needs a persistent DB_DRIVER, got %q", cfg.DBDriver)
	}

	log := logger.New()
	backends, err := app.OpenBackends(cfg, log)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:      cfg,
		log:      log,
		backends: backends,
		uc:       backends.UseCases(cfg, log),
	}, nil
}

func (e *env) close() {
	e.backends.Close(e.log)
}
