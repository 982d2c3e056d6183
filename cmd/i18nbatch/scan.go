package main

import (
	"github.com/spf13/cobra"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scanner"
)

type scanOptions struct {
	srcDir     string
	patterns   []string
	skipCache  bool
	priorityBy string
	limit      int
}

func newScanCmd(g *globalOptions) *cobra.Command {
	o := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List files that need translation",
		Long: `Scan the source directory for files with translatable literals and report
which of them need translation, grouped by priority, with a time estimate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, g, o)
		},
	}
	cmd.Flags().StringVar(&o.srcDir, "src-dir", "", "Source directory (default from config)")
	cmd.Flags().StringSliceVar(&o.patterns, "patterns", nil, "Glob patterns to scan")
	cmd.Flags().BoolVar(&o.skipCache, "skip-cache", false, "Treat every file as needing translation")
	cmd.Flags().StringVar(&o.priorityBy, "priority-by", "", "Order within a priority: count, size or modified")
	cmd.Flags().IntVar(&o.limit, "limit", 20, "Files listed in human output (0 = all)")
	return cmd
}

// ScanResponseCLI is the output of the scan command.
type ScanResponseCLI struct {
	Report     scanner.Report      `json:"report" yaml:"report"`
	Candidates []scanner.Candidate `json:"candidates" yaml:"candidates"`
	Limit      int                 `json:"-" yaml:"-"`
}

func runScan(cmd *cobra.Command, g *globalOptions, o *scanOptions) error {
	env, err := loadEnv(cmd, g)
	if err != nil {
		return err
	}
	defer env.Close()

	if o.srcDir != "" {
		env.cfg.Scan.SrcDir = o.srcDir
	}
	if len(o.patterns) > 0 {
		env.cfg.Scan.Patterns = o.patterns
	}
	if o.priorityBy != "" {
		env.cfg.Scan.PrioritizeBy = o.priorityBy
	}

	p, err := env.openPipeline(nil)
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.Scan(cmd.Context(), o.skipCache)
	if err != nil {
		return err
	}
	report := scanner.GenerateReport(res.Candidates)
	report.Errors = res.Errors

	return printResponse(cmd, g, &ScanResponseCLI{
		Report:     report,
		Candidates: res.Candidates,
		Limit:      o.limit,
	})
}
