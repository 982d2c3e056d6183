package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/config"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
)

func newInitCmd(g *globalOptions) *cobra.Command {
	var (
		configFormat string
		force        bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config and prepare the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := g.root
			if root == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				root = wd
			}

			path := filepath.Join(paths.ConfigDir(root), "config."+configFormat)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			if g.cacheDir != "" {
				cfg.Cache.Dir = g.cacheDir
			}
			if err := cfg.SaveAs(path); err != nil {
				return err
			}

			cacheDir, err := paths.ResolveCacheDir(root, cfg.Cache.Dir)
			if err != nil {
				return err
			}
			if err := paths.EnsureCacheDir(cacheDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nCache directory: %s\n", path, cacheDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&configFormat, "config-format", "json", "Config file format (json, yaml, toml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}
