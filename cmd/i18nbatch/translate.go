package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/monitor"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/pipeline"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scanner"
)

type translateOptions struct {
	concurrency     int
	force           bool
	dryRun          bool
	isolation       bool
	timeout         time.Duration
	metricsTextfile string
}

func newTranslateCmd(g *globalOptions) *cobra.Command {
	o := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate every file whose cached result is stale",
		Long: `Scan the source directory and send each stale file to the configured
translator command. Files are processed high priority first; a failing or
hung file is recorded in the summary and never stops the batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, g, o)
		},
	}
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 0, "Maximum concurrent translations (default from config)")
	cmd.Flags().BoolVar(&o.force, "force", false, "Retranslate files with a current cache entry")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Scan only, do not translate")
	cmd.Flags().BoolVar(&o.isolation, "isolation", false, "Run each translation on a dedicated worker with a whole-run deadline")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "Per-file translation timeout (default from config)")
	cmd.Flags().StringVar(&o.metricsTextfile, "metrics-textfile", "", "Write run metrics in Prometheus text format to this file")
	return cmd
}

func runTranslate(cmd *cobra.Command, g *globalOptions, o *translateOptions) error {
	env, err := loadEnv(cmd, g)
	if err != nil {
		return err
	}
	defer env.Close()

	if o.concurrency != 0 {
		env.cfg.Scheduler.MaxConcurrency = o.concurrency
	}
	if o.timeout != 0 {
		env.cfg.Scheduler.TaskTimeoutMs = int(o.timeout / time.Millisecond)
	}
	if o.isolation {
		env.cfg.Scheduler.Isolation = true
	}

	reg := prometheus.NewRegistry()
	p, err := env.openPipeline(env.translator(),
		pipeline.WithRegistry(reg),
		pipeline.WithSnapshotSink(progressLogger(env.logger)))
	if err != nil {
		return err
	}
	defer p.Close()

	report, runErr := p.Run(cmd.Context(), pipeline.RunOptions{Force: o.force, DryRun: o.dryRun})
	if report == nil {
		return runErr
	}

	if o.metricsTextfile != "" && !o.dryRun {
		if err := prometheus.WriteToTextfile(o.metricsTextfile, reg); err != nil {
			env.logger.Warn("failed to write metrics textfile", "path", o.metricsTextfile, "error", err)
		}
	}

	if err := printResponse(cmd, g, report); err != nil {
		return err
	}
	return runErr
}

// progressLogger reports periodic snapshots at info level.
func progressLogger(logger *slog.Logger) monitor.SnapshotSink {
	return monitor.SinkFunc(func(p monitor.Progress) {
		s := p.Session
		logger.Info("progress",
			"percent", fmt.Sprintf("%.1f", p.Percent),
			"finished", s.Finished(),
			"total", s.TotalFiles,
			"failed", s.Failed,
			"eta", scanner.FormatDuration(time.Duration(s.EstimatedTimeRemainingMs)*time.Millisecond))
	})
}
