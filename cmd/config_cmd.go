package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/oafund/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}
	fmt.Printf("  Config file: %s\n", path)
	if config.Exists(path) {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Fund name:      %s\n", cfg.General.FundName)
	fmt.Printf("    History limit:  %d\n", cfg.General.HistoryLimit)
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address:        %s\n", cfg.Server.Addr)
	fmt.Printf("    Upload dir:     %s\n", cfg.UploadDir())
	fmt.Printf("    Max upload:     %d MB\n", cfg.Server.MaxUploadMB)
	if cfg.Server.RateLimit > 0 {
		fmt.Printf("    Rate limit:     %.1f/s (burst %d)\n", cfg.Server.RateLimit, cfg.Server.RateBurst)
	} else {
		fmt.Println("    Rate limit:     off")
	}
	fmt.Println()

	fmt.Println("  [Database]")
	fmt.Printf("    Path:           %s\n", cfg.DBPath())
	fmt.Println()

	fmt.Println("  [Auth]")
	if cfg.Auth.JWTSecret != "" {
		fmt.Printf("    JWT secret:     %s\n", maskSecret(cfg.Auth.JWTSecret))
	} else {
		fmt.Printf("    JWT secret:     not configured (set %s)\n", config.EnvJWTSecret)
	}
	fmt.Printf("    Token lifetime: %s\n", cfg.TokenTTL())
	fmt.Println()

	fmt.Println("  [SMTP]")
	if cfg.SMTP.Host != "" {
		fmt.Printf("    Server:         %s:%d\n", cfg.SMTP.Host, cfg.SMTP.Port)
		fmt.Printf("    From:           %s\n", cfg.SMTP.From)
		if cfg.SMTP.Password != "" {
			fmt.Printf("    Password:       %s\n", maskSecret(cfg.SMTP.Password))
		}
	} else {
		fmt.Println("    Mail:           disabled")
	}
	fmt.Println()

	fmt.Println("  [Backup]")
	fmt.Printf("    Dir:            %s\n", cfg.BackupDir())
	if cfg.Backup.Schedule != "" {
		fmt.Printf("    Schedule:       %s\n", cfg.Backup.Schedule)
	} else {
		fmt.Println("    Schedule:       off")
	}
	fmt.Printf("    Retention:      %d days\n", int(cfg.Retention().Hours()/24))
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level:          %s\n", cfg.Log.Level)
	fmt.Printf("    Format:         %s\n", cfg.Log.Format)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:          %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `oafund setup` to reconfigure.")
	return nil
}

func maskSecret(s string) string {
	if len(s) > 16 {
		return s[:4] + "..." + s[len(s)-4:]
	}
	return "****"
}
