package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/oafund/internal/cli"
	"github.com/theirongolddev/oafund/internal/model"
)

var (
	flagBudgetReason string
	flagHistoryLimit int
	flagBudgetJSON   bool
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Show and adjust the fund's budget ledger",
	RunE:  runBudgetShow,
}

var budgetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current budget and request counts",
	RunE:  runBudgetShow,
}

var budgetHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show ledger entries, newest first",
	RunE:  runBudgetHistory,
}

// ledgerCommand builds one of the four manual ledger adjustments.
func ledgerCommand(use, short string, apply func(*app, *cobra.Command, decimal.Decimal, string) (model.LedgerEntry, error)) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " <amount>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			e, err := apply(a, cmd, amount, flagBudgetReason)
			if err != nil {
				return err
			}
			printLedgerEntry(e)
			return nil
		},
	}
	c.Flags().StringVarP(&flagBudgetReason, "reason", "r", "", "Reason recorded in the ledger")
	return c
}

func init() {
	budgetHistoryCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 0, "Entries to show (0 uses the configured history limit, -1 shows all)")
	budgetHistoryCmd.Flags().BoolVar(&flagBudgetJSON, "json", false, "Print JSON")
	budgetShowCmd.Flags().BoolVar(&flagBudgetJSON, "json", false, "Print JSON")

	budgetCmd.AddCommand(
		budgetShowCmd,
		budgetHistoryCmd,
		ledgerCommand("set", "Set the total budget", func(a *app, cmd *cobra.Command, d decimal.Decimal, reason string) (model.LedgerEntry, error) {
			return a.fund.SetTotal(cmd.Context(), d, reason)
		}),
		ledgerCommand("change", "Add to (or with a negative amount, take from) the total budget", func(a *app, cmd *cobra.Command, d decimal.Decimal, reason string) (model.LedgerEntry, error) {
			return a.fund.ChangeTotal(cmd.Context(), d, reason)
		}),
		ledgerCommand("set-running", "Set the available balance", func(a *app, cmd *cobra.Command, d decimal.Decimal, reason string) (model.LedgerEntry, error) {
			return a.fund.SetRunning(cmd.Context(), d, reason)
		}),
		ledgerCommand("change-running", "Adjust the available balance", func(a *app, cmd *cobra.Command, d decimal.Decimal, reason string) (model.LedgerEntry, error) {
			return a.fund.ChangeRunning(cmd.Context(), d, reason)
		}),
	)
	rootCmd.AddCommand(budgetCmd)
}

func runBudgetShow(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sum, err := a.fund.Summary(cmd.Context())
	if err != nil {
		return err
	}
	if flagBudgetJSON {
		return printJSON(sum)
	}

	latest := sum.Latest
	fmt.Println()
	fmt.Println(cli.RenderTitle(a.cfg.General.FundName))
	fmt.Println()

	rows := [][]string{
		{"Total budget", cli.FormatMoney(latest.TotalAmount)},
		{"Available", cli.FormatMoney(latest.RunningTotal)},
		{"Committed", cli.FormatMoney(sum.Committed)},
		{"Requested (open)", cli.FormatMoney(sum.Requested)},
		{"---"},
	}
	for _, s := range model.AllStatuses {
		rows = append(rows, []string{cli.RenderStatus(s), cli.FormatNumber(int64(sum.Counts[s]))})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Budget", "Value"},
		Rows:    rows,
		Right:   []int{1},
	}))
	if bar := cli.RenderBudgetBar(sum.Committed, latest.TotalAmount, 30); bar != "" {
		fmt.Printf("\n  %s\n", bar)
	}
	if latest.Timestamp != "" {
		fmt.Printf("  Last change: %s  %s\n", cli.FormatWhen(latest.Timestamp), latest.Reason)
	} else {
		fmt.Println("  No ledger entries yet. Start with `oafund budget set <amount>`.")
	}
	fmt.Println()
	return nil
}

func runBudgetHistory(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	limit := flagHistoryLimit
	switch {
	case limit == 0:
		limit = a.cfg.General.HistoryLimit
	case limit < 0:
		limit = 0
	}
	hist, err := a.fund.History(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if flagBudgetJSON {
		return printJSON(hist)
	}
	if len(hist) == 0 {
		fmt.Println("\n  No ledger entries yet.")
		return nil
	}

	rows := make([][]string, 0, len(hist))
	for _, e := range hist {
		rows = append(rows, []string{
			cli.FormatWhen(e.Timestamp),
			cli.FormatMoney(e.TotalAmount),
			cli.FormatChange(e.ChangeAmount),
			cli.FormatMoney(e.RunningTotal),
			cli.FormatChange(e.RunningTotalChange),
			cli.Truncate(e.Reason, 48),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "LEDGER",
		Headers: []string{"When", "Total", "Change", "Available", "Change", "Reason"},
		Rows:    rows,
		Right:   []int{1, 2, 3, 4},
	}))
	return nil
}

func printLedgerEntry(e model.LedgerEntry) {
	fmt.Print(cli.RenderFields([][2]string{
		{"Total", fmt.Sprintf("%s (%s)", cli.FormatMoney(e.TotalAmount), cli.FormatChange(e.ChangeAmount))},
		{"Available", fmt.Sprintf("%s (%s)", cli.FormatMoney(e.RunningTotal), cli.FormatChange(e.RunningTotalChange))},
		{"Reason", e.Reason},
	}))
}
