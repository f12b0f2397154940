package cmd

import (
	"fmt"

	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagExtremesYear string

var extremesCmd = &cobra.Command{
	Use:   "extremes",
	Short: "Busiest and quietest vehicle category for a year",
	RunE:  runExtremes,
}

func init() {
	extremesCmd.Flags().StringVar(&flagExtremesYear, "year", "", "Year (default: latest)")
	rootCmd.AddCommand(extremesCmd)
}

func runExtremes(_ *cobra.Command, _ []string) error {
	result, err := loadData()
	if err != nil {
		return err
	}
	year, err := resolveYear(result.Table, flagExtremesYear)
	if err != nil {
		return err
	}
	ex, err := pipeline.Extremes(result.Table, year)
	if err != nil {
		return err
	}
	maxText, minText := pipeline.ExtremesText(ex)
	fmt.Println()
	fmt.Println("  " + maxText)
	fmt.Println("  " + minText)
	fmt.Println()
	return nil
}
