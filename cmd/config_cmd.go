package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/aforos/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Dataset:   %s\n", cfg.General.DataPath)
	fmt.Printf("    Encoding:  %s\n", cfg.General.Encoding)
	fmt.Printf("    Delimiter: %q\n", cfg.General.Delimiter)
	fmt.Println()

	fmt.Println("  [Dashboard]")
	fmt.Printf("    Default category:   %s\n", cfg.Dashboard.DefaultCategory)
	fmt.Printf("    Default categories: %s\n", strings.Join(cfg.Dashboard.DefaultCategories, ", "))
	fmt.Println()

	f := cfg.Forecast
	fmt.Println("  [Forecast]")
	fmt.Printf("    Model:            SARIMA(%d,0,%d)(%d,0,%d)[%d]\n",
		f.Order[0], f.Order[1], f.SeasonalOrder[0], f.SeasonalOrder[1], f.Period)
	fmt.Printf("    Confidence:       %.0f%%\n", f.Confidence*100)
	fmt.Printf("    Max steps:        %d\n", f.MaxSteps)
	fmt.Printf("    Min observations: %d\n", f.MinObservations)
	fmt.Printf("    Before range:     %s\n", f.BeforeRange)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level:  %s\n", cfg.Log.Level)
	fmt.Printf("    Format: %s\n", cfg.Log.Format)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %ds\n", cfg.Daemon.IntervalSec)
	fmt.Println()

	fmt.Println("  Run `aforos setup` to reconfigure.")
	return nil
}
