package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"filmgen/internal/infra"
	"filmgen/internal/infra/credentials"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage per-user provider keys",
	}
	keysCmd.AddCommand(newKeysSetCommand(ctx))
	return keysCmd
}

func newKeysSetCommand(ctx *commandContext) *cobra.Command {
	var userID, service, key string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a provider key for one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, cfg *infra.Config, store keyStore) error {
				svc, err := requireService(cfg, service)
				if err != nil {
					return err
				}
				value, err := keyOrEnv(cfg, svc, key)
				if err != nil {
					return err
				}
				if err := store.SetUserAPIKey(c, userID, svc, value); err != nil {
					return fmt.Errorf("store %s key: %w", svc, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s key %s for user %s\n", svc, maskKey(value), userID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id the key belongs to")
	cmd.Flags().StringVarP(&service, "service", "s", "", "Service id (openai, openart, bfl, runway, gemini, anthropic)")
	cmd.Flags().StringVarP(&key, "key", "k", "", "API key; defaults to the service's environment variable")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage operator-wide provider keys",
	}

	var service, key string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store the system-wide key for a service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, cfg *infra.Config, store keyStore) error {
				svc, err := requireService(cfg, service)
				if err != nil {
					return err
				}
				value, err := keyOrEnv(cfg, svc, key)
				if err != nil {
					return err
				}
				name := credentials.SystemSettingKey(svc)
				if err := store.SetSystemSetting(c, name, value); err != nil {
					return fmt.Errorf("store %s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s = %s\n", name, maskKey(value))
				return nil
			})
		},
	}
	setCmd.Flags().StringVarP(&service, "service", "s", "", "Service id")
	setCmd.Flags().StringVarP(&key, "key", "k", "", "API key; defaults to the service's environment variable")
	settingsCmd.AddCommand(setCmd)
	return settingsCmd
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var userID, service, key string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show which key source a request would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, cfg *infra.Config, store keyStore) error {
				svc, err := requireService(cfg, service)
				if err != nil {
					return err
				}
				resolver := credentials.NewResolver(store, credentials.Config{EnvKeys: cfg.EnvKeys()}, &ctx.logger)
				cred, err := resolver.Resolve(c, svc, userID, key)
				if err != nil {
					return err
				}
				out := renderTable(
					[]string{"Service", "User", "Origin", "Key"},
					[][]string{{svc, userID, string(cred.Origin), maskKey(cred.Value)}},
					nil,
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Caller user id")
	cmd.Flags().StringVarP(&service, "service", "s", "", "Service id")
	cmd.Flags().StringVarP(&key, "key", "k", credentials.UseConfiguredKey, "Explicit key as a caller would send it")
	return cmd
}
