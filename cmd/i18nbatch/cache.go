package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cachemgr"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/pipeline"
)

func newCacheCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the translation cache",
	}
	cmd.AddCommand(
		newCacheStatsCmd(g),
		newCacheCleanCmd(g),
		newCacheVerifyCmd(g),
		newCacheClearCmd(g),
		newCacheExportCmd(g),
		newCacheImportCmd(g),
	)
	return cmd
}

// withManager opens the project cache without session history and runs fn.
func withManager(cmd *cobra.Command, g *globalOptions, fn func(*cliEnv, *cachemgr.Manager) (interface{}, error)) error {
	env, err := loadEnv(cmd, g)
	if err != nil {
		return err
	}
	defer env.Close()

	p, err := env.openPipeline(nil, pipeline.WithoutHistory())
	if err != nil {
		return err
	}
	defer p.Close()

	resp, err := fn(env, p.Manager())
	if err != nil {
		return err
	}
	return printResponse(cmd, g, resp)
}

func newCacheStatsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and entry counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(_ *cliEnv, m *cachemgr.Manager) (interface{}, error) {
				return m.Stats()
			})
		},
	}
}

func newCacheCleanCmd(g *globalOptions) *cobra.Command {
	var (
		maxAge          int
		removeCorrupted bool
		keepExpired     bool
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove old, expired and leftover cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(env *cliEnv, m *cachemgr.Manager) (interface{}, error) {
				days := maxAge
				if days <= 0 {
					days = env.cfg.Cache.MaxAgeDays
				}
				return m.Cleanup(cachemgr.CleanupOptions{
					MaxAgeInDays:    days,
					RemoveCorrupted: removeCorrupted,
					RemoveExpired:   !keepExpired,
				})
			})
		},
	}
	cmd.Flags().IntVar(&maxAge, "max-age", 0, "Remove file records older than this many days (default from config)")
	cmd.Flags().BoolVar(&removeCorrupted, "remove-corrupted", false, "Remove records that cannot be parsed")
	cmd.Flags().BoolVar(&keepExpired, "keep-expired", false, "Keep expired responses")
	return cmd
}

func newCacheVerifyCmd(g *globalOptions) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every cache record and table for corruption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(_ *cliEnv, m *cachemgr.Manager) (interface{}, error) {
				return m.Verify(fix)
			})
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Repair corrupted records and tables")
	return cmd
}

func newCacheClearCmd(g *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the cache without --yes")
			}
			return withManager(cmd, g, func(_ *cliEnv, m *cachemgr.Manager) (interface{}, error) {
				if err := m.Clear(); err != nil {
					return nil, err
				}
				return m.Stats()
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func newCacheExportCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the cache to a backup file (.zst for compressed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(_ *cliEnv, m *cachemgr.Manager) (interface{}, error) {
				return m.Export(args[0])
			})
		},
	}
}

func newCacheImportCmd(g *globalOptions) *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore the cache from a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(_ *cliEnv, m *cachemgr.Manager) (interface{}, error) {
				return m.Import(args[0], merge)
			})
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "Merge into the existing cache instead of replacing it")
	return cmd
}
