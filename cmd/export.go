package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/oafund/internal/legacy"
)

var exportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Write requests and the ledger as legacy CSV files",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	dir := args[0]
	if err := legacy.ExportDir(cmd.Context(), a.store, dir); err != nil {
		return err
	}
	fmt.Printf("  Wrote %s\n", filepath.Join(dir, legacy.RequestsFile))
	fmt.Printf("  Wrote %s\n", filepath.Join(dir, legacy.BudgetFile))
	return nil
}
