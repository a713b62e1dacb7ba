package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/oafund/internal/auth"
	"github.com/theirongolddev/oafund/internal/config"
	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/tui"
	"github.com/theirongolddev/oafund/internal/tui/theme"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	theme.SetActive(cfg.Appearance.Theme)

	vals := tui.SetupValuesFrom(cfg)
	if err := tui.NewSetupForm(&vals).Run(); err != nil {
		return err
	}
	vals.Apply(&cfg)

	if err := config.Save(flagConfig, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", path)

	if user := strings.TrimSpace(vals.StaffUser); user != "" {
		hash, err := auth.HashPassword(vals.StaffPassword)
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.store.PutCredential(cmd.Context(), model.Credential{ID: user, PasswordHash: hash}); err != nil {
			return err
		}
		fmt.Printf("  Staff login %q saved\n", user)
	}

	if cfg.Auth.JWTSecret == "" {
		fmt.Printf("  Set %s before running `oafund serve`.\n", config.EnvJWTSecret)
	}
	fmt.Println("  Run `oafund setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
