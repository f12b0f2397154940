package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/export"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagExportYear       string
	flagExportCategories string
	flagExportCategory   string
	flagExportTarget     string
	flagExportOut        string
	flagExportXLSX       bool
	flagExportPNG        bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the table to XLSX and the charts to PNG",
	Long: "Writes aforos-<year>.xlsx (table and totals sheets), distribucion-<year>.png\n" +
		"and pronostico-<category>.png into --out. Without --xlsx or --png both are written.",
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagExportYear, "year", "", "Year for the table and distribution (default: latest)")
	exportCmd.Flags().StringVar(&flagExportCategories, "categories", "", "Comma-separated category codes (default from config)")
	exportCmd.Flags().StringVarP(&flagExportCategory, "category", "c", "", "Forecast category (default from config)")
	exportCmd.Flags().StringVar(&flagExportTarget, "target", "", "Forecast month as YYYY-MM (default: month after the last observation)")
	exportCmd.Flags().StringVarP(&flagExportOut, "out", "o", ".", "Output directory")
	exportCmd.Flags().BoolVar(&flagExportXLSX, "xlsx", false, "Write the XLSX workbook")
	exportCmd.Flags().BoolVar(&flagExportPNG, "png", false, "Write the PNG charts")
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	cats, err := resolveCategories(flagExportCategories)
	if err != nil {
		return err
	}
	cat, err := resolveCategory(flagExportCategory)
	if err != nil {
		return err
	}

	result, err := loadData()
	if err != nil {
		return err
	}
	t := result.Table
	year, err := resolveYear(t, flagExportYear)
	if err != nil {
		return err
	}

	_, last := t.Span()
	next := last.AddDate(0, 1, 0)
	targetYear, targetMonth := next.Year(), next.Month()
	if flagExportTarget != "" {
		if targetYear, targetMonth, err = parseTarget(flagExportTarget); err != nil {
			return err
		}
	}

	writeXLSX, writePNG := flagExportXLSX, flagExportPNG
	if !writeXLSX && !writePNG {
		writeXLSX, writePNG = true, true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	paths, err := export.Run(ctx, export.Request{
		Dir:   flagExportOut,
		Table: t,
		Selection: pipeline.Selection{
			Category:         cat,
			Year:             targetYear,
			Month:            targetMonth,
			DistributionYear: year,
			Categories:       cats,
		},
		Forecaster: newForecaster(),
		XLSX:       writeXLSX,
		PNG:        writePNG,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	for _, p := range paths {
		fmt.Printf("  Wrote %s\n", p)
	}
	fmt.Println()
	return nil
}

// parseTarget reads "2025-06" or "2025-junio".
func parseTarget(s string) (int, time.Month, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid target %q, want YYYY-MM", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid target year %q", y)
	}
	month, err := catalog.ParseMonth(m)
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}
