package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/oafund/internal/config"
	"github.com/theirongolddev/oafund/internal/tui"
	"github.com/theirongolddev/oafund/internal/tui/theme"
)

var flagTUIRefresh time.Duration

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().DurationVar(&flagTUIRefresh, "refresh", 30*time.Second, "Reload interval (0 disables)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Logs would draw over the alt screen.
	logPath := filepath.Join(config.DataDir(), "tui.log")
	//nolint:gosec // log path is under the user's data dir
	if f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600); err == nil {
		defer func() { _ = f.Close() }()
		a.log.SetOutput(f)
	} else {
		a.log.SetOutput(io.Discard)
	}

	theme.SetActive(a.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(a.fund, tui.Options{
		FundName:        a.cfg.General.FundName,
		Actor:           actorName(),
		HistoryLimit:    a.cfg.General.HistoryLimit,
		RefreshInterval: flagTUIRefresh,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
