package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/aforos/internal/config"
	"github.com/theirongolddev/aforos/internal/logging"
	"github.com/theirongolddev/aforos/internal/pipeline"
	"github.com/theirongolddev/aforos/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	// stderr belongs to the alt screen while the dashboard runs.
	log, closeLog := tuiLogger()
	defer closeLog()

	app := tui.NewApp(tui.Options{
		Config:    appCfg,
		Source:    sourceOptions(),
		UseCache:  !flagNoCache,
		Logger:    log,
		NeedSetup: !config.Exists(),
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// tuiLogger writes to aforos-tui.log in the cache dir, or discards when the
// file cannot be opened.
func tuiLogger() (logging.Logger, func()) {
	dir := pipeline.CacheDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return logging.Nop(), func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "aforos-tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return logging.Nop(), func() {}
	}
	return logging.NewLogrusAdapter(f, appCfg.Log.Level, appCfg.Log.Format), func() { _ = f.Close() }
}
