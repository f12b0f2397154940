// Package config loads and saves the aforos TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment overrides.
const (
	EnvDataPath = "AFOROS_DATA"
	EnvLogLevel = "AFOROS_LOG_LEVEL"
)

// Before-range policies for forecast targets that precede the series.
const (
	BeforeRangeReject = "reject"
	BeforeRangeClamp  = "clamp"
)

// Config holds all aforos configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Dashboard  DashboardConfig  `toml:"dashboard"`
	Forecast   ForecastConfig   `toml:"forecast"`
	Appearance AppearanceConfig `toml:"appearance"`
	Log        LogConfig        `toml:"log"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// GeneralConfig describes the input dataset.
type GeneralConfig struct {
	DataPath  string `toml:"data_path,omitempty"`
	Encoding  string `toml:"encoding"`
	Delimiter string `toml:"delimiter"`
}

// DashboardConfig holds the initial filter selection.
type DashboardConfig struct {
	DefaultCategory   string   `toml:"default_category"`
	DefaultCategories []string `toml:"default_categories"`
}

// ForecastConfig tunes the seasonal model.
type ForecastConfig struct {
	Order           [2]int  `toml:"order"`          // p, q
	SeasonalOrder   [2]int  `toml:"seasonal_order"` // P, Q
	Period          int     `toml:"period"`
	Confidence      float64 `toml:"confidence"`
	MaxSteps        int     `toml:"max_steps"`
	MinObservations int     `toml:"min_observations"`
	BeforeRange     string  `toml:"before_range"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DaemonConfig holds HTTP daemon defaults.
type DaemonConfig struct {
	Addr        string `toml:"addr"`
	IntervalSec int    `toml:"interval_sec"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DataPath:  "Aforos-RedPropia.csv",
			Encoding:  "latin-1",
			Delimiter: ",",
		},
		Dashboard: DashboardConfig{
			DefaultCategory: "AUTOS",
			DefaultCategories: []string{
				"AUTOS", "MOTOS", "AUTOBUS DE 2 EJES", "AUTOBUS DE 3 EJES", "AUTOBUS DE 4 EJES",
			},
		},
		Forecast: ForecastConfig{
			Order:           [2]int{1, 1},
			SeasonalOrder:   [2]int{1, 1},
			Period:          12,
			Confidence:      0.95,
			MaxSteps:        120,
			MinObservations: 3,
			BeforeRange:     BeforeRangeReject,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Daemon: DaemonConfig{
			Addr:        "127.0.0.1:8788",
			IntervalSec: 30,
		},
	}
}

// Validate checks values that would otherwise surface as confusing runtime errors.
func (c Config) Validate() error {
	var errs []error
	f := c.Forecast
	if f.Order[0] < 0 || f.Order[1] < 0 || f.SeasonalOrder[0] < 0 || f.SeasonalOrder[1] < 0 {
		errs = append(errs, errors.New("forecast orders must be non-negative"))
	}
	if f.Period < 1 {
		errs = append(errs, fmt.Errorf("forecast.period must be >= 1, got %d", f.Period))
	}
	if (f.SeasonalOrder[0] > 0 || f.SeasonalOrder[1] > 0) && f.Period < 2 {
		errs = append(errs, fmt.Errorf("forecast.period must be >= 2 with a seasonal order, got %d", f.Period))
	}
	if f.Confidence <= 0 || f.Confidence >= 1 {
		errs = append(errs, fmt.Errorf("forecast.confidence must be in (0, 1), got %g", f.Confidence))
	}
	if f.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("forecast.max_steps must be >= 1, got %d", f.MaxSteps))
	}
	switch f.BeforeRange {
	case BeforeRangeReject, BeforeRangeClamp:
	default:
		errs = append(errs, fmt.Errorf("forecast.before_range must be %q or %q, got %q",
			BeforeRangeReject, BeforeRangeClamp, f.BeforeRange))
	}
	if len([]rune(c.General.Delimiter)) != 1 {
		errs = append(errs, fmt.Errorf("general.delimiter must be a single character, got %q", c.General.Delimiter))
	}
	return errors.Join(errs...)
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "aforos")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "aforos")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment overrides are applied last.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvDataPath)); v != "" {
		cfg.General.DataPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}
