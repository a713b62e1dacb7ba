package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/oafund/internal/cli"
	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/tui/components"
	"github.com/theirongolddev/oafund/internal/tui/theme"
)

// ledgerState holds the ledger tab state.
type ledgerState struct {
	cursor int
}

func (a App) renderLedgerTab(cw, h int) string {
	t := theme.Active
	sum := a.summary
	latest := sum.Latest

	open := sum.Counts[model.StatusSubmitted]
	metrics := []components.Metric{
		{Label: "Total", Value: cli.FormatMoney(latest.TotalAmount)},
		{
			Label: "Available",
			Value: cli.FormatMoney(latest.RunningTotal),
			Note:  cli.FormatPercent(latest.RunningTotal, latest.TotalAmount) + " of total",
			Color: availableColor(latest),
		},
		{
			Label: "Committed",
			Value: cli.FormatMoney(sum.Committed),
			Note:  fmt.Sprintf("%d approved, %d planned", sum.Counts[model.StatusApproved], sum.Counts[model.StatusPaymentPlanned]),
		},
		{
			Label: "Requested",
			Value: cli.FormatMoney(sum.Requested),
			Note:  fmt.Sprintf("%d awaiting review", open),
			Color: t.Yellow,
		},
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	inner := components.CardInnerWidth(cw)
	barW := max(inner-18, 10)
	var chart strings.Builder
	chart.WriteString(components.BudgetBar("Committed", sum.Committed, latest.TotalAmount, 10, barW))
	if spark := components.Sparkline(runningSeries(a.history), inner-11, t.Accent); spark != "" {
		chart.WriteString("\n")
		chart.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(fmt.Sprintf("%-11s", "Available")))
		chart.WriteString(spark)
	}
	b.WriteString(components.ContentCard("Budget", chart.String(), cw))
	b.WriteString("\n")

	used := lipgloss.Height(b.String())
	b.WriteString(components.ContentCard(
		fmt.Sprintf("History (%d)", len(a.history)),
		a.renderHistory(inner, max(h-used-3, 3)),
		cw,
	))
	return b.String()
}

// runningSeries returns the available balance oldest first. History arrives
// newest first.
func runningSeries(hist []model.LedgerEntry) []decimal.Decimal {
	out := make([]decimal.Decimal, len(hist))
	for i, e := range hist {
		out[len(hist)-1-i] = e.RunningTotal
	}
	return out
}

func availableColor(e model.LedgerEntry) lipgloss.Color {
	t := theme.Active
	if e.RunningTotal.Sign() < 0 {
		return t.Red
	}
	return components.ColorForPct(components.CommittedFraction(e.Committed(), e.TotalAmount))
}

func (a App) renderHistory(inner, visible int) string {
	t := theme.Active

	if len(a.history) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).
			Render("No ledger entries yet. Set a total with `oafund budget set`.")
	}

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)

	const (
		whenW  = 16
		moneyW = 12
	)
	reasonW := max(inner-whenW-4*moneyW-5, 10)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %*s %*s %*s %*s %-*s",
		whenW, "When", moneyW, "Total", moneyW, "Change", moneyW, "Available", moneyW, "Change", reasonW, "Reason")))
	b.WriteString("\n")

	offset := 0
	if a.ledger.cursor >= visible {
		offset = a.ledger.cursor - visible + 1
	}
	end := min(offset+visible, len(a.history))

	for i := offset; i < end; i++ {
		e := a.history[i]
		style := rowStyle
		if i == a.ledger.cursor {
			style = selectedStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%-*s %*s %*s %*s %*s %-*s",
			whenW, cli.FormatWhen(e.Timestamp),
			moneyW, cli.FormatMoney(e.TotalAmount),
			moneyW, cli.FormatChange(e.ChangeAmount),
			moneyW, cli.FormatMoney(e.RunningTotal),
			moneyW, cli.FormatChange(e.RunningTotalChange),
			reasonW, truncStr(e.Reason, reasonW))))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
