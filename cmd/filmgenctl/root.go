package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"filmgen/internal/infra"
	"filmgen/internal/infra/credentials"
)

// keyStore is the credential store surface the commands need.
type keyStore interface {
	credentials.Lookup
	SetSystemSetting(ctx context.Context, key, value string) error
	SetUserAPIKey(ctx context.Context, userID, service, key string) error
}

type openStoreFunc func(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (keyStore, func(), error)

func defaultOpenStore(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (keyStore, func(), error) {
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return credentials.NewStore(infra.NewSQLRunner(pool, logger)), pool.Close, nil
}

type commandContext struct {
	openStore openStoreFunc
	timeout   time.Duration

	configOnce sync.Once
	config     *infra.Config
	configErr  error
	logger     infra.Logger
}

func (c *commandContext) ensureConfig() (*infra.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = infra.LoadConfig()
		c.logger = infra.NewLogger("cli").With().Str("cmd", "filmgenctl").Logger()
	})
	return c.config, c.configErr
}

// withStore opens the store for the duration of fn.
func (c *commandContext) withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *infra.Config, store keyStore) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()
	store, closeFn, err := c.openStore(ctx, cfg, &c.logger)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer closeFn()
	return fn(ctx, cfg, store)
}

func newRootCommand(openStore openStoreFunc) *cobra.Command {
	ctx := &commandContext{openStore: openStore, timeout: 10 * time.Second}

	rootCmd := &cobra.Command{
		Use:           "filmgenctl",
		Short:         "filmgen administration CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().DurationVar(&ctx.timeout, "timeout", ctx.timeout, "Timeout for database operations")

	rootCmd.AddCommand(newKeysCommand(ctx))
	rootCmd.AddCommand(newSettingsCommand(ctx))
	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newRecoverCommand())

	return rootCmd
}

func requireService(cfg *infra.Config, service string) (string, error) {
	service = strings.ToLower(strings.TrimSpace(service))
	if service == "" {
		return "", fmt.Errorf("--service is required")
	}
	if !cfg.HasProvider(service) {
		return "", fmt.Errorf("unknown service %q", service)
	}
	return service, nil
}

// keyOrEnv falls back to the service's environment variable.
func keyOrEnv(cfg *infra.Config, service, key string) (string, error) {
	if key = strings.TrimSpace(key); key != "" {
		return key, nil
	}
	if key = cfg.Provider(service).APIKey; key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%s key is required via --key or %s", service, infra.EnvKeyName(service))
}

// maskKey keeps the last four characters of a key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
