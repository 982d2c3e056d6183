package main

import (
	"github.com/spf13/cobra"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/storage"
)

// HistoryResponseCLI lists recent sessions, newest first.
type HistoryResponseCLI struct {
	Sessions []storage.SessionRecord `json:"sessions" yaml:"sessions"`
}

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent translation sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd, g)
			if err != nil {
				return err
			}
			defer env.Close()

			p, err := env.openPipeline(nil)
			if err != nil {
				return err
			}
			defer p.Close()

			if limit <= 0 {
				limit = env.cfg.Monitor.HistorySize
			}
			sessions, err := p.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printResponse(cmd, g, &HistoryResponseCLI{Sessions: sessions})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Sessions to show (default: monitor.historySize)")
	return cmd
}
