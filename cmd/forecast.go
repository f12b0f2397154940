package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagForecastCategory string
	flagForecastYear     int
	flagForecastMonth    string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Actual or projected monthly count for one category",
	Long: "Prints the recorded value when the month is in the dataset, otherwise a\n" +
		"seasonal projection with its confidence interval.",
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().StringVarP(&flagForecastCategory, "category", "c", "", "Vehicle category code or label (default from config)")
	forecastCmd.Flags().IntVar(&flagForecastYear, "year", 0, "Target year (default: year after the last observation)")
	forecastCmd.Flags().StringVar(&flagForecastMonth, "month", "", "Target month, 1-12 or Spanish name (default: enero)")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(_ *cobra.Command, _ []string) error {
	cat, err := resolveCategory(flagForecastCategory)
	if err != nil {
		return err
	}
	month := time.January
	if flagForecastMonth != "" {
		if month, err = catalog.ParseMonth(flagForecastMonth); err != nil {
			return err
		}
	}

	result, err := loadData()
	if err != nil {
		return err
	}
	t := result.Table

	year := flagForecastYear
	if year == 0 {
		_, last := t.Span()
		year = last.Year() + 1
	}
	target := model.ForecastTarget{Category: cat, Year: year, Month: month}
	f := newForecaster().Forecast(t, target)

	fmt.Println()
	fmt.Println(cli.RenderTitle("Pronóstico para " + cat.Label()))
	fmt.Println()
	fmt.Println(cli.RenderStat("Objetivo", cli.FormatMonth(target.Date())))

	if !f.Available() {
		fmt.Println(cli.RenderStat("Resultado", pipeline.Unavailable))
		fmt.Println(cli.RenderWarning(f.Reason))
		fmt.Println()
		return nil
	}

	fmt.Println(cli.RenderStat("Resultado", cli.RenderForecastValue(pipeline.ForecastText(f))))
	if f.Kind == model.ForecastProjected {
		fmt.Println(cli.RenderStat("Pasos", strconv.Itoa(f.Steps)))
		fmt.Println(cli.RenderStat("Intervalo", fmt.Sprintf("%s a %s",
			cli.FormatCount(f.Lower), cli.FormatCount(f.Upper))))
		if f.Clamped {
			fmt.Println(cli.RenderWarning("target precedes the series; showing the next-month projection"))
		}
	}

	if series, err := pipeline.SeriesFor(t, cat); err == nil {
		values := series.Values()
		for _, p := range f.Path {
			values = append(values, p.Value)
		}
		fmt.Println()
		fmt.Println("  " + cli.RenderSparkline(values))
		fmt.Printf("  %s .. %s\n", cli.FormatMonth(series.First()), cli.FormatMonth(pathEnd(series, f)))
	}
	fmt.Println()
	return nil
}

func pathEnd(series model.Series, f model.Forecast) time.Time {
	if n := len(f.Path); n > 0 {
		return f.Path[n-1].Date
	}
	return series.Last()
}
