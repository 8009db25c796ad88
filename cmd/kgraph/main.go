// Package main implements the kgraph server - an ingestion and query
// service for a semantically-extracted knowledge graph.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/kgraph/config"

	_ "github.com/c360studio/kgraph/embedding/providers"
	_ "github.com/c360studio/kgraph/llm/providers"
)

// Build information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		natsURL    string
	)

	rootCmd := &cobra.Command{
		Use:     "kgraph",
		Short:   "Knowledge graph ingestion and query server",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath, natsURL)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats-url", "", "NATS server URL (default: embedded)")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func serve(ctx context.Context, configPath, natsURL string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	loader := config.NewLoader(logger)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if natsURL != "" {
		cfg.NATS.URL = natsURL
		cfg.NATS.Embedded = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer app.Shutdown(10 * time.Second)

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}

	logger.Info("kgraph server running")
	<-ctx.Done()
	return nil
}
