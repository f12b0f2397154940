// Package cmd implements the aforos CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/config"
	"github.com/theirongolddev/aforos/internal/forecast"
	"github.com/theirongolddev/aforos/internal/logging"
	"github.com/theirongolddev/aforos/internal/pipeline"
	"github.com/theirongolddev/aforos/internal/source"
	"github.com/theirongolddev/aforos/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagData     string
	flagEncoding string
	flagNoCache  bool
	flagQuiet    bool
	flagLogLevel string
)

// Resolved at startup by loadSettings.
var (
	appCfg = config.DefaultConfig()
	logger = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "aforos",
	Short: "Vehicle traffic count dashboard",
	Long: "Explore monthly vehicle counts by category: yearly totals, distributions,\n" +
		"extremes and seasonal forecasts.",
	PersistentPreRunE: loadSettings,
	RunE:              runSummary,
	SilenceUsage:      true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagData, "data", "d", "", "CSV file or directory of CSV files (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagEncoding, "encoding", "", "Input encoding: latin-1, windows-1252 or utf-8")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip SQLite cache, reparse everything")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadSettings resolves configuration in order file, .env/environment, flags.
func loadSettings(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.General.DataPath = flagData
	}
	if flags.Changed("encoding") {
		cfg.General.Encoding = flagEncoding
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}

	appCfg = cfg
	logger = logging.NewLogrusAdapter(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	return nil
}

func sourceOptions() source.Options {
	opts := source.Options{Encoding: appCfg.General.Encoding}
	if r := []rune(appCfg.General.Delimiter); len(r) == 1 {
		opts.Delimiter = r[0]
	}
	return opts
}

func newForecaster() *forecast.Forecaster {
	return forecast.New(forecast.SettingsFromConfig(appCfg.Forecast), logger)
}

// loadData is the shared data loading path used by all commands.
// Uses SQLite cache when available for fast subsequent runs.
func loadData() (*pipeline.LoadResult, error) {
	path := appCfg.General.DataPath
	opts := sourceOptions()
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Reading %s...\n", path)
	}

	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		fmt.Fprintf(os.Stderr, "\r  Parsing %s", cli.RenderProgressBar(current, total, 20))
	}

	result, err := loadWithCache(path, opts, progressFn)
	if err != nil {
		return nil, err
	}
	if result.CoercedCells > 0 {
		logger.Warn("non-numeric count cells read as numbers",
			logging.F(logging.FieldCoerced, result.CoercedCells),
			logging.F(logging.FieldPath, path))
	}
	return result, nil
}

func loadWithCache(path string, opts source.Options, progressFn pipeline.ProgressFunc) (*pipeline.LoadResult, error) {
	if !flagNoCache {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			logger.WithError(err).Warn("cache unavailable, doing full parse")
		} else {
			defer cache.Close()

			cr, err := pipeline.LoadWithCache(path, opts, cache, progressFn)
			if err == nil {
				if !flagQuiet && cr.TotalFiles > 0 {
					if cr.Reparsed == 0 {
						fmt.Fprintf(os.Stderr, "\r  Loaded %s records from cache (%d files)    \n",
							cli.FormatNumber(int64(cr.Rows)), cr.TotalFiles)
					} else {
						fmt.Fprintf(os.Stderr, "\r  %d cached + %d reparsed, %s records    \n",
							cr.CacheHits, cr.Reparsed, cli.FormatNumber(int64(cr.Rows)))
					}
					if cr.Pruned > 0 {
						fmt.Fprintf(os.Stderr, "  Dropped %d removed files from cache (%s cached records remain)\n",
							cr.Pruned, cli.FormatNumber(int64(cr.CachedRecords)))
					}
				}
				logger.Debug("cache load",
					logging.F("hits", cr.CacheHits), logging.F("reparsed", cr.Reparsed),
					logging.F("pruned", cr.Pruned), logging.F("cached_records", cr.CachedRecords))
				return &cr.LoadResult, nil
			}
			// A parse error is as fatal on the uncached path; only fall back
			// for cache trouble.
			if !errors.Is(err, pipeline.ErrCache) {
				return nil, err
			}
			logger.WithError(err).Warn("cache error, falling back to full parse")
		}
	}

	result, err := pipeline.Load(path, opts, progressFn)
	if err != nil {
		return nil, err
	}
	if !flagQuiet && result.TotalFiles > 0 {
		fmt.Fprintf(os.Stderr, "\r  Parsed %s records across %d files    \n",
			cli.FormatNumber(int64(result.Rows)), result.TotalFiles)
	}
	return result, nil
}

// resolveYear validates the --year flag against the table. Empty means the
// latest year.
func resolveYear(t *pipeline.Table, year string) (string, error) {
	year = strings.TrimSpace(year)
	if year == "" {
		year = t.LatestYear()
	}
	if !t.HasYear(year) {
		return "", fmt.Errorf("%w: %q (available: %s)",
			pipeline.ErrUnknownYear, year, strings.Join(t.Years(), ", "))
	}
	return year, nil
}

// resolveCategories parses a comma-separated list, falling back to the
// configured defaults.
func resolveCategories(list string) ([]catalog.Category, error) {
	if strings.TrimSpace(list) == "" {
		list = strings.Join(appCfg.Dashboard.DefaultCategories, ",")
	}
	cats, err := catalog.ParseList(list)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return catalog.Defaults(), nil
	}
	return cats, nil
}

func resolveCategory(name string) (catalog.Category, error) {
	if strings.TrimSpace(name) == "" {
		name = appCfg.Dashboard.DefaultCategory
	}
	return catalog.Parse(name)
}
