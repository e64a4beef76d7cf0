package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"NewsIngestor/internal/app"
	"NewsIngestor/internal/config"
	"NewsIngestor/internal/logging"
	"NewsIngestor/internal/usecase"
)

const day = 24 * time.Hour

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "newsingestor",
		Short:         "Discover, summarize and store recent news articles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadEnvFiles()
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to the YAML config (default $NEWS_INGESTOR_CONFIG)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(newRunCmd(flags), newServeCmd(flags), newExportCmd(flags))
	return root
}

func (f *rootFlags) load() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	return cfg, nil
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var (
		days         float64
		window       time.Duration
		maxPerSource int
		exportPath   string
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level)

			ro, err := runOptions(days, window, maxPerSource)
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg, logger, app.Options{DryRun: dryRun})
			if err != nil {
				return err
			}
			defer application.Close()

			var export io.Writer
			if exportPath != "" {
				out, closeOut, err := openOutput(exportPath, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				defer closeOut()
				export = out
			}

			summary, err := application.Run(cmd.Context(), ro, export)
			if err != nil {
				return err
			}
			logger.Info("done", "items_written", summary.ItemsWritten(), "skipped", summary.SkippedTotal())
			return nil
		},
	}

	cmd.Flags().Float64Var(&days, "days", 0, "freshness window in days for this run, fractions allowed (backfill)")
	cmd.Flags().DurationVar(&window, "window", 0, "freshness window for this run as a duration, e.g. 36h")
	cmd.MarkFlagsMutuallyExclusive("days", "window")
	cmd.Flags().IntVar(&maxPerSource, "max-per-source", 0, "candidate cap per source for this run")
	cmd.Flags().StringVar(&exportPath, "export", "", "write a snapshot of the items created by this run (- for stdout)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep items in memory; requires sources in the config file")
	return cmd
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on the cron schedule and expose metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level)

			application, err := app.New(cmd.Context(), cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(cmd.Context())
		},
	}
}

func newExportCmd(flags *rootFlags) *cobra.Command {
	var (
		since   string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of recently stored items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level)

			from, err := parseSince(since, time.Now())
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			out, closeOut, err := openOutput(outPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeOut()

			n, err := application.Export(cmd.Context(), from, out)
			if err != nil {
				return err
			}
			logger.Info("snapshot exported", "items", n, "since", from.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "24h", "RFC3339 timestamp or a duration back from now")
	cmd.Flags().StringVar(&outPath, "out", "-", "output file (- for stdout)")
	return cmd
}

func runOptions(days float64, window time.Duration, maxPerSource int) (usecase.RunOptions, error) {
	if days < 0 || math.IsNaN(days) || math.IsInf(days, 0) {
		return usecase.RunOptions{}, errors.New("--days must be a non-negative number")
	}
	if window < 0 {
		return usecase.RunOptions{}, errors.New("--window must not be negative")
	}
	if maxPerSource < 0 {
		return usecase.RunOptions{}, errors.New("--max-per-source must not be negative")
	}
	if window == 0 {
		window = time.Duration(days * float64(day))
	}
	return usecase.RunOptions{
		Window:       window,
		MaxPerSource: maxPerSource,
	}, nil
}

// parseSince accepts an RFC3339 instant or a Go duration counted back from now.
func parseSince(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("--since is required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return time.Time{}, fmt.Errorf("--since %q is neither RFC3339 nor a positive duration", value)
	}
	return now.Add(-d), nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
