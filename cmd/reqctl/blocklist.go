package main

import (
	"errors"
	"fmt"

	"github.com/af-corp/reqbridge/internal/config"
	"github.com/af-corp/reqbridge/internal/policy"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newBlocklistCmd(fs afero.Fs, g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocklist",
		Short: "Manage the Redis host blocklist",
	}

	withBlocklist := func(run func(cmd *cobra.Command, b *policy.Blocklist, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(fs, g)
			if err != nil {
				return err
			}
			if len(cfg.Redis.Addresses) == 0 || cfg.Redis.Addresses[0] == "" {
				return errors.New("redis.addresses is not configured")
			}
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addresses[0],
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()
			b := policy.NewBlocklist(rdb, func() config.BlocklistConfig { return cfg.Policy.Blocklist })
			return run(cmd, b, args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add HOST...",
		Short: "Block hosts",
		Args:  cobra.MinimumNArgs(1),
		RunE: withBlocklist(func(cmd *cobra.Command, b *policy.Blocklist, args []string) error {
			return b.Add(cmd.Context(), args...)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove HOST...",
		Short: "Unblock hosts",
		Args:  cobra.MinimumNArgs(1),
		RunE: withBlocklist(func(cmd *cobra.Command, b *policy.Blocklist, args []string) error {
			return b.Remove(cmd.Context(), args...)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List blocked hosts",
		Args:  cobra.NoArgs,
		RunE: withBlocklist(func(cmd *cobra.Command, b *policy.Blocklist, _ []string) error {
			hosts, err := b.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, h := range hosts {
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			return nil
		}),
	})
	return cmd
}
