package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/config"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/pipeline"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/slogutil"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/translator"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	root       string
	configPath string
	cacheDir   string
	format     string
	verbosity  int
	quiet      bool
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "i18nbatch",
		Short: "Batch translation pipeline for JavaScript and TypeScript sources",
		Long: `i18nbatch finds source files containing translatable literals, skips files
whose cached translation is still current, and sends the rest to a translator
command with bounded concurrency, priority ordering and per-file timeouts.`,
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(version.Full() + "\n")

	f := cmd.PersistentFlags()
	f.StringVar(&g.root, "root", "", "Project root (default: current directory)")
	f.StringVar(&g.configPath, "config", "", "Config file (default: <root>/.i18n-batch/config.*)")
	f.StringVar(&g.cacheDir, "cache-dir", "", "Cache directory, relative to the project root")
	f.StringVar(&g.format, "format", string(FormatHuman), "Output format (human, json, yaml)")
	f.CountVarP(&g.verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	f.BoolVarP(&g.quiet, "quiet", "q", false, "Suppress all log output")

	cmd.AddCommand(
		newInitCmd(g),
		newScanCmd(g),
		newTranslateCmd(g),
		newHistoryCmd(g),
		newCacheCmd(g),
	)
	return cmd
}

// cliEnv is the loaded configuration and logger of one invocation.
type cliEnv struct {
	root    string
	cfg     *config.Config
	logger  *slog.Logger
	factory *slogutil.LoggerFactory
}

func loadEnv(cmd *cobra.Command, g *globalOptions) (*cliEnv, error) {
	if _, err := ParseOutputFormat(g.format); err != nil {
		return nil, err
	}

	root := g.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}

	cfg, err := config.LoadConfig(root, g.configPath)
	if err != nil {
		return nil, err
	}
	if g.cacheDir != "" {
		cfg.Cache.Dir = g.cacheDir
	}

	var level *slog.Level
	if g.verbosity > 0 || g.quiet {
		l := slogutil.LevelFromVerbosity(g.verbosity, g.quiet)
		level = &l
	}
	cacheDir, err := paths.ResolveCacheDir(root, cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}
	factory := slogutil.NewLoggerFactory(cacheDir, cfg, level)

	return &cliEnv{
		root:    root,
		cfg:     cfg,
		logger:  factory.Logger(cmd.ErrOrStderr()),
		factory: factory,
	}, nil
}

func (e *cliEnv) openPipeline(tr translator.Translator, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	opts = append([]pipeline.Option{pipeline.WithLogger(e.logger)}, opts...)
	return pipeline.New(e.root, e.cfg, tr, opts...)
}

// translator returns the configured subprocess translator, or nil when no
// command is configured.
func (e *cliEnv) translator() translator.Translator {
	tc := e.cfg.Translator
	if tc.Command == "" {
		return nil
	}
	return &translator.ExecTranslator{
		Command: tc.Command,
		Args:    tc.Args,
		Env:     tc.Env,
		Dir:     e.root,
		Logger:  e.logger,
	}
}

func (e *cliEnv) Close() {
	_ = e.factory.Close()
}

func printResponse(cmd *cobra.Command, g *globalOptions, resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(g.format))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
