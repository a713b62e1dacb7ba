// Package components provides reusable widgets for the oafund dashboard.
package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/oafund/internal/tui/theme"
)

// LayoutRow distributes totalWidth into n widths that sum to exactly totalWidth.
// First items absorb the remainder from integer division.
func LayoutRow(totalWidth, n int) []int {
	if n <= 0 {
		return nil
	}
	base := totalWidth / n
	remainder := totalWidth % n
	widths := make([]int, n)
	for i := range widths {
		widths[i] = base
		if i < remainder {
			widths[i]++
		}
	}
	return widths
}

// Metric is one figure shown in a MetricCard.
type Metric struct {
	Label string
	Value string
	Note  string
	Color lipgloss.Color // optional value color
}

// MetricCard renders a small card with label, value and an optional note.
// outerWidth is the total rendered width including border.
func MetricCard(m Metric, outerWidth int) string {
	t := theme.Active

	contentWidth := max(outerWidth-2, 10)
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		BorderBackground(t.Background).
		Background(t.Surface).
		Width(contentWidth).
		Padding(0, 1)

	valueColor := t.TextPrimary
	if m.Color != "" {
		valueColor = m.Color
	}
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(valueColor).Background(t.Surface).Bold(true)
	noteStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	content := labelStyle.Render(m.Label) + "\n" + valueStyle.Render(m.Value)
	if m.Note != "" {
		content += "\n" + noteStyle.Render(m.Note)
	}
	return cardStyle.Render(content)
}

// MetricCardRow renders metric cards side by side, summing to totalWidth.
func MetricCardRow(metrics []Metric, totalWidth int) string {
	if len(metrics) == 0 {
		return ""
	}
	widths := LayoutRow(totalWidth, len(metrics))
	rendered := make([]string, len(metrics))
	for i, m := range metrics {
		rendered[i] = MetricCard(m, widths[i])
	}
	return CardRow(rendered)
}

// ContentCard renders a bordered card with an optional title.
func ContentCard(title, body string, outerWidth int) string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		BorderBackground(t.Background).
		Background(t.Surface).
		Width(max(outerWidth-2, 10)).
		Padding(0, 1)

	titleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Bold(true)

	content := ""
	if title != "" {
		content = titleStyle.Render(title) + "\n"
	}
	return cardStyle.Render(content + body)
}

// CardRow joins cards horizontally. Shorter cards are padded with the
// theme background so no unstyled cells show through.
func CardRow(cards []string) string {
	if len(cards) == 0 {
		return ""
	}
	tallest := 0
	for _, c := range cards {
		tallest = max(tallest, lipgloss.Height(c))
	}
	bg := lipgloss.NewStyle().Background(theme.Active.Background)
	padded := make([]string, len(cards))
	for i, c := range cards {
		padded[i] = bg.Height(tallest).Render(c)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, padded...)
}

// CardInnerWidth returns the usable text width inside a ContentCard
// given its outer width.
func CardInnerWidth(outerWidth int) int {
	return max(outerWidth-4, 10)
}
