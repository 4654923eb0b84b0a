// Command domtrip runs the DOM round-trip suite outside go test.
//
// Usage:
//
//	domtrip run --config domtrip.yaml            # compare against goldens
//	domtrip update --config domtrip.yaml         # rewrite every golden
//	domtrip fixtures --config domtrip.yaml       # list discovered fixtures
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/domtrip/domtrip/fixture"
	"github.com/domtrip/domtrip/harness"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "domtrip",
		Short:         "DOM round-trip correctness harness",
		Long:          "domtrip drives a headless browser through snapshot/rebuild/serialize round trips and compares the results against golden artifacts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "domtrip.yaml", "path to the harness config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newUpdateCommand(opts))
	cmd.AddCommand(newFixturesCommand(opts))
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute the suite and compare against goldens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, false)
		},
	}
}

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Execute the suite, rewriting every golden with the current output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, true)
		},
	}
}

func newFixturesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fixtures",
		Short: "List the fixtures the suite would run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := harness.Load(opts.configPath)
			if err != nil {
				return err
			}
			fixtures, err := fixture.List(filepath.Join(cfg.Root, cfg.FixturesDir))
			if err != nil {
				return err
			}
			for _, f := range fixtures {
				title := f.Title
				if title == "" {
					title = "(untitled)"
				}
				mode := "standards"
				if !f.HasDoctype {
					mode = "quirks"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", f.Name, mode, title)
			}
			return nil
		},
	}
}

func runSuite(opts *rootOptions, forceUpdate bool) error {
	logger := newLogger(opts.logLevel)

	cfg, err := harness.Load(opts.configPath)
	if err != nil {
		return err
	}
	if forceUpdate {
		cfg.Update = "all"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	suite, err := harness.NewSuite(ctx, *cfg, logger)
	if err != nil {
		return fmt.Errorf("suite setup: %w", err)
	}
	defer suite.Close()

	report, err := suite.Run(ctx)
	if err != nil {
		return err
	}

	failures := report.Failures()
	logger.Info("suite finished",
		"run_id", report.RunID,
		"scenarios", len(report.Results),
		"failures", failures)
	for _, res := range report.Results {
		if !res.Pass {
			fmt.Fprintf(os.Stderr, "FAIL %s\n%s\n", res.Title, res.Detail)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failures, len(report.Results))
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
