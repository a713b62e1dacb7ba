package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/oafund/internal/cli"
	"github.com/theirongolddev/oafund/internal/legacy"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import the legacy CSV files (requests, budget, urls, cred) from a directory",
	Long: "Import requests.csv, budget.csv, urls.csv and cred.csv from dir. " +
		"Malformed rows are repaired where possible and skipped otherwise. " +
		"Rows whose key already exists are skipped, so an import can be re-run.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := legacy.NewImporter(a.store, a.log).ImportDir(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	rows := make([][]string, 0, 4)
	for _, fr := range rep.Files() {
		if fr.Missing {
			rows = append(rows, []string{fr.File, "-", "-", "-", "not found"})
			continue
		}
		rows = append(rows, []string{
			fr.File,
			cli.FormatNumber(int64(fr.Imported)),
			cli.FormatNumber(int64(fr.Skipped)),
			cli.FormatNumber(int64(fr.Repaired)),
			"",
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "IMPORT  " + args[0],
		Headers: []string{"File", "Imported", "Skipped", "Repaired", ""},
		Rows:    rows,
		Right:   []int{1, 2, 3},
	}))
	return nil
}
