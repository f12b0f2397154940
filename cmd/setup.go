package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/aforos/internal/config"
	"github.com/theirongolddev/aforos/internal/tui"
	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	theme.SetActive(appCfg.Appearance.Theme)

	vals := tui.SetupValuesFrom(appCfg)
	if err := tui.NewSetupForm(&vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\n  Setup cancelled, nothing saved.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}

	cfg := appCfg
	vals.Apply(&cfg)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `aforos setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}
