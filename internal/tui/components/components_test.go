package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/oafund/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRowSumsToWidth(t *testing.T) {
	assert.Equal(t, []int{34, 33, 33}, LayoutRow(100, 3))
	assert.Nil(t, LayoutRow(100, 0))
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	require.Less(t, shortLines, tallLines)

	lines := strings.Split(CardRow([]string{tallCard, shortCard}), "\n")
	require.Len(t, lines, tallLines)

	w := lipgloss.Width(lines[0])
	for i, line := range lines {
		assert.Equal(t, w, lipgloss.Width(line), "line %d", i)
		if i >= shortLines {
			assert.Contains(t, line, "\x1b[", "padding line %d is unstyled", i)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	row := MetricCardRow([]Metric{
		{Label: "Total", Value: "$10,000.00"},
		{Label: "Available", Value: "$8,500.00", Note: "after approvals"},
	}, 60)
	for _, line := range strings.Split(row, "\n") {
		assert.Equal(t, 60, lipgloss.Width(line))
	}
	assert.Empty(t, MetricCardRow(nil, 60))
}

func TestTabBar(t *testing.T) {
	bar := RenderTabBar(0, 80, "OA Fund")
	assert.Equal(t, 80, lipgloss.Width(bar))
	assert.Contains(t, bar, "Ledger[2]")

	assert.Equal(t, len("Requests")+2, TabVisualWidth(Tabs[0], true))
	assert.Equal(t, len("Requests[1]")+2, TabVisualWidth(Tabs[0], false))
	assert.Equal(t, 1, TabIdxByKey('2'))
	assert.Equal(t, -1, TabIdxByKey('x'))
}

func TestStatusBarWidth(t *testing.T) {
	out := RenderStatusBar(80, "[?]help [q]uit", Notice{Text: "approved", Error: false}, "12:00")
	assert.Equal(t, 80, lipgloss.Width(out))

	narrow := RenderStatusBar(20, strings.Repeat("x", 40), Notice{Text: "oops", Error: true}, "")
	assert.NotContains(t, narrow, "xxxx")
}

func TestSparkline(t *testing.T) {
	vals := []decimal.Decimal{
		decimal.NewFromInt(10000),
		decimal.NewFromInt(8500),
		decimal.NewFromInt(9000),
		decimal.NewFromInt(0),
	}
	out := Sparkline(vals, 10, theme.Active.Green)
	assert.Contains(t, out, "█▇▇▁")
	assert.Equal(t, 2, lipgloss.Width(Sparkline(vals, 2, theme.Active.Green)))
	assert.Empty(t, Sparkline(nil, 10, theme.Active.Green))
}

func TestCommittedFraction(t *testing.T) {
	assert.InDelta(t, 0.25, CommittedFraction(decimal.NewFromInt(250), decimal.NewFromInt(1000)), 1e-9)
	assert.Equal(t, 0.0, CommittedFraction(decimal.NewFromInt(1), decimal.Zero))
	assert.Equal(t, 1.0, CommittedFraction(decimal.NewFromInt(2000), decimal.NewFromInt(1000)))
	assert.Equal(t, theme.Active.Red, ColorForPct(0.95))
	assert.Equal(t, theme.Active.Green, ColorForPct(0.1))
}
