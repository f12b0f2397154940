package cmd

import (
	"fmt"

	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagTableYear       string
	flagTableCategories string
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Monthly rows for one year and selected categories",
	RunE:  runTable,
}

func init() {
	tableCmd.Flags().StringVar(&flagTableYear, "year", "", "Year (default: latest)")
	tableCmd.Flags().StringVar(&flagTableCategories, "categories", "", "Comma-separated category codes (default from config)")
	rootCmd.AddCommand(tableCmd)
}

func runTable(_ *cobra.Command, _ []string) error {
	cats, err := resolveCategories(flagTableCategories)
	if err != nil {
		return err
	}
	result, err := loadData()
	if err != nil {
		return err
	}
	year, err := resolveYear(result.Table, flagTableYear)
	if err != nil {
		return err
	}

	view := pipeline.TableView(result.Table, year, cats)
	rows := make([][]string, 0, len(view.Rows))
	for _, r := range view.Rows {
		row := []string{r.Year, r.MonthName}
		for _, v := range r.Values {
			row = append(row, cli.FormatCount(v))
		}
		rows = append(rows, row)
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     "Tabla " + year,
		Headers:   view.Headers,
		Rows:      rows,
		LabelCols: 2,
	}))
	fmt.Println()
	return nil
}
