package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"

	"github.com/quickai/quickai/internal/cache"
	"github.com/quickai/quickai/internal/httpclient"
	"github.com/quickai/quickai/internal/identity"
)

// cliConfig is the subset of the server configuration usagectl needs.
type cliConfig struct {
	ClerkSecretKey string `env:"CLERK_SECRET_KEY"`
	ClerkAPIURL    string `env:"CLERK_API_URL" envDefault:"https://api.clerk.com/v1"`
	UsageBackend   string `env:"USAGE_BACKEND" envDefault:"clerk"`
	RedisURL       string `env:"REDIS_URL"`
	FreeUsageLimit int    `env:"FREE_USAGE_LIMIT" envDefault:"10"`
}

// storeOpener opens the identity store and returns a cleanup func.
type storeOpener func(ctx context.Context, cfg cliConfig) (identity.Store, func(), error)

func newRootCmd(open storeOpener) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "usagectl",
		Short:         "Inspect and reset free usage counters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(newGetCmd(open))
	root.AddCommand(newResetCmd(open))
	return root
}

func loadConfig() (cliConfig, error) {
	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openStore builds the same identity store the API server uses.
func openStore(ctx context.Context, cfg cliConfig) (identity.Store, func(), error) {
	client := httpclient.New(30 * time.Second)

	clerk, err := identity.NewClerkStore(cfg.ClerkAPIURL, cfg.ClerkSecretKey, client)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.UsageBackend {
	case "clerk":
		return clerk, func() {}, nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, nil, fmt.Errorf("REDIS_URL is required for the redis usage backend")
		}
		c, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return identity.NewRedisStore(clerk, c), func() { _ = c.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported USAGE_BACKEND %q", cfg.UsageBackend)
	}
}

// withStore loads config, opens the store and runs fn.
func withStore(cmd *cobra.Command, open storeOpener, fn func(store identity.Store, cfg cliConfig) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, cleanup, err := open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(store, cfg)
}
