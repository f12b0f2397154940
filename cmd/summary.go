package cmd

import (
	"fmt"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagSummaryYear string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Yearly totals by vehicle category",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&flagSummaryYear, "year", "", "Year to summarize (default: latest)")
	rootCmd.Flags().StringVar(&flagSummaryYear, "year", "", "Year to summarize (default: latest)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	result, err := loadData()
	if err != nil {
		return err
	}
	t := result.Table
	if t.Len() == 0 {
		fmt.Println("\n  No records found.")
		return nil
	}

	year, err := resolveYear(t, flagSummaryYear)
	if err != nil {
		return err
	}
	totals := pipeline.TotalsByYear(t, year)
	prev := pipeline.TotalsByYear(t, previousYear(t, year))
	grand := totals.Sum()

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("AFOROS  %s", year)))
	fmt.Println()

	rows := make([][]string, 0, len(totals.Totals)+2)
	for _, ct := range totals.Totals {
		share := 0.0
		if grand > 0 {
			share = ct.Value / grand
		}
		rows = append(rows, []string{
			ct.Label,
			cli.FormatCount(ct.Value),
			cli.FormatPercent(share),
			cli.FormatDelta(ct.Value, prev.Get(ct.Category)),
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"Total", cli.FormatCount(grand), "", cli.FormatDelta(grand, prev.Sum())})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Tipo de vehículo", "Total", "Share", "vs prev"},
		Rows:    rows,
	}))
	fmt.Println()

	fmt.Println(cli.RenderStat("Total Autos", cli.FormatCount(pipeline.TotalFor(t, year, catalog.Autos))))
	fmt.Println(cli.RenderStat("Frecuencia", pipeline.Frequency))
	if ex, err := pipeline.Extremes(t, year); err == nil {
		maxText, minText := pipeline.ExtremesText(ex)
		fmt.Println("  " + maxText)
		fmt.Println("  " + minText)
	}
	fmt.Println()
	return nil
}

// previousYear returns the year listed before year, or "" for the first.
func previousYear(t *pipeline.Table, year string) string {
	years := t.Years()
	for i, y := range years {
		if y == year && i > 0 {
			return years[i-1]
		}
	}
	return ""
}
