package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/oafund/internal/backup"
)

var (
	flagBackupDir     string
	flagBackupNoPrune bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the database and prune old backups",
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().StringVar(&flagBackupDir, "dir", "", "Backup directory (overrides config)")
	backupCmd.Flags().BoolVar(&flagBackupNoPrune, "no-prune", false, "Keep backups older than the retention period")
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	dir := a.cfg.BackupDir()
	if flagBackupDir != "" {
		dir = flagBackupDir
	}
	m := backup.New(a.store, dir, a.cfg.Retention(), a.log)

	path, err := m.Create(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("  Backup: %s\n", path)

	if flagBackupNoPrune {
		return nil
	}
	removed, err := m.Prune()
	if err != nil {
		return err
	}
	for _, name := range removed {
		fmt.Printf("  Removed %s\n", name)
	}
	return nil
}
