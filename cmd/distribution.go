package cmd

import (
	"fmt"

	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagDistYear       string
	flagDistCategories string
)

var distributionCmd = &cobra.Command{
	Use:     "distribution",
	Aliases: []string{"dist"},
	Short:   "Bar chart of yearly totals for selected categories",
	RunE:    runDistribution,
}

func init() {
	distributionCmd.Flags().StringVar(&flagDistYear, "year", "", "Year (default: latest)")
	distributionCmd.Flags().StringVar(&flagDistCategories, "categories", "", "Comma-separated category codes (default from config)")
	rootCmd.AddCommand(distributionCmd)
}

func runDistribution(_ *cobra.Command, _ []string) error {
	cats, err := resolveCategories(flagDistCategories)
	if err != nil {
		return err
	}
	result, err := loadData()
	if err != nil {
		return err
	}
	year, err := resolveYear(result.Table, flagDistYear)
	if err != nil {
		return err
	}

	dist := pipeline.Distribution(result.Table, year, cats)
	labelWidth, valueWidth := 0, 0
	for _, b := range dist.Bars {
		labelWidth = max(labelWidth, len([]rune(b.Label)))
		valueWidth = max(valueWidth, len(cli.FormatCount(b.Value)))
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("Distribución " + year))
	fmt.Println()
	maxValue := dist.Max()
	for _, b := range dist.Bars {
		fmt.Println(cli.RenderHorizontalBar(b.Label, b.Value, maxValue, labelWidth, valueWidth, 36))
	}
	fmt.Println()
	return nil
}
