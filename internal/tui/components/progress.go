package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/oafund/internal/tui/theme"
)

// ColorForPct returns green/yellow/orange/red based on how much of the
// budget is committed.
func ColorForPct(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct >= 0.9:
		return t.Red
	case pct >= 0.75:
		return t.Orange
	case pct >= 0.5:
		return t.Yellow
	default:
		return t.Green
	}
}

// CommittedFraction is committed/total clamped to [0, 1]. A non-positive
// total gives 0.
func CommittedFraction(committed, total decimal.Decimal) float64 {
	if total.Sign() <= 0 {
		return 0
	}
	f, _ := committed.Div(total).Float64()
	return min(max(f, 0), 1)
}

// BudgetBar renders a labeled bar of committed funds against the total.
func BudgetBar(label string, committed, total decimal.Decimal, labelW, barWidth int) string {
	t := theme.Active
	pct := CommittedFraction(committed, total)
	color := ColorForPct(pct)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar.ViewAs(pct) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%3.0f%%", pct*100))
}
