package tui

import (
	"errors"
	"strings"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/config"
	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// Encodings offered by the setup form.
var Encodings = []string{"latin-1", "windows-1252", "utf-8"}

// SetupValues holds the answers of the setup form.
type SetupValues struct {
	DataPath    string
	Encoding    string
	Categories  []string // category codes
	BeforeRange string
	Theme       string
}

// SetupValuesFrom seeds the form with the current configuration.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		DataPath:    cfg.General.DataPath,
		Encoding:    cfg.General.Encoding,
		Categories:  append([]string(nil), cfg.Dashboard.DefaultCategories...),
		BeforeRange: cfg.Forecast.BeforeRange,
		Theme:       cfg.Appearance.Theme,
	}
}

// Apply copies the answers into cfg.
func (v SetupValues) Apply(cfg *config.Config) {
	cfg.General.DataPath = strings.TrimSpace(v.DataPath)
	cfg.General.Encoding = v.Encoding
	if len(v.Categories) > 0 {
		cfg.Dashboard.DefaultCategories = append([]string(nil), v.Categories...)
	}
	cfg.Forecast.BeforeRange = v.BeforeRange
	cfg.Appearance.Theme = v.Theme
}

// NewSetupForm builds the configuration form shared by `aforos setup` and the
// dashboard's first run and Settings tab.
func NewSetupForm(v *SetupValues) *huh.Form {
	categoryOpts := make([]huh.Option[string], 0, catalog.Count)
	for _, c := range catalog.All() {
		categoryOpts = append(categoryOpts, huh.NewOption(c.Label(), c.Code()))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("aforos").
				Description("Monthly vehicle counts by category.\nAnswers are saved to "+config.Path()),
			huh.NewInput().
				Title("Dataset").
				Description("CSV file or directory of CSV files").
				Value(&v.DataPath).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("a dataset path is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Encoding").
				Options(huh.NewOptions(Encodings...)...).
				Value(&v.Encoding),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Default categories").
				Description("Columns of the table and bars of the distribution chart").
				Options(categoryOpts...).
				Value(&v.Categories).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return errors.New("pick at least one category")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Forecast targets before the first month").
				Options(
					huh.NewOption("Show N/A", config.BeforeRangeReject),
					huh.NewOption("Project the first month", config.BeforeRangeClamp),
				).
				Value(&v.BeforeRange),
			huh.NewSelect[string]().
				Title("Theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&v.Theme),
		),
	).WithTheme(huh.ThemeCharm())
}

// saveSetup writes the answers and applies the theme right away.
func saveSetup(v SetupValues) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	v.Apply(&cfg)
	theme.SetActive(cfg.Appearance.Theme)
	return cfg, config.Save(cfg)
}
