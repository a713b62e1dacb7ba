package cli

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/theirongolddev/oafund/internal/model"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"1500", "$1,500.00"},
		{"12345.5", "$12,345.50"},
		{"1234567.899", "$1,234,567.90"},
		{"-20", "-$20.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMoney(decimal.RequireFromString(tt.in)), tt.in)
	}
}

func TestFormatChange(t *testing.T) {
	assert.Equal(t, "-", FormatChange(decimal.Zero))
	assert.Equal(t, "+$100.00", FormatChange(decimal.NewFromInt(100)))
	assert.Equal(t, "-$1,500.00", FormatChange(decimal.NewFromInt(-1500)))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,000", FormatNumber(1000))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
	assert.Equal(t, "-12,000", FormatNumber(-12000))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "-", FormatPercent(decimal.NewFromInt(1), decimal.Zero))
	assert.Equal(t, "25.0%", FormatPercent(decimal.NewFromInt(250), decimal.NewFromInt(1000)))
}

func TestFormatWhen(t *testing.T) {
	assert.Equal(t, "not a time", FormatWhen("not a time"))
	assert.Len(t, FormatWhen("2025-08-06T18:47:06.370Z"), len("2025-08-06 18:47"))
}

func TestFormatStatusAndTruncate(t *testing.T) {
	assert.Equal(t, "PLANNED", FormatStatus(model.StatusPaymentPlanned))
	assert.Equal(t, "SUBMITTED", FormatStatus(model.StatusSubmitted))
	assert.Equal(t, "PAID", FormatStatus(model.StatusPaid))

	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "Open Acc…", Truncate("Open Access", 9))
	assert.Equal(t, "…", Truncate("abc", 1))
}

func TestRenderTableAlignsVisibleWidth(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Title", "Amount"},
		Rows: [][]string{
			{"A", "$1.00"},
			{RenderStatus(model.StatusApproved), "$1,000.00"},
		},
		Right: []int{1},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 6)
	w := lipgloss.Width(lines[0])
	for _, l := range lines {
		assert.Equal(t, w, lipgloss.Width(l), l)
	}
	assert.Empty(t, RenderTable(Table{}))
}

func TestRenderBudgetBar(t *testing.T) {
	assert.Empty(t, RenderBudgetBar(decimal.Zero, decimal.Zero, 10))
	out := RenderBudgetBar(decimal.NewFromInt(50), decimal.NewFromInt(100), 10)
	assert.Contains(t, out, "50.0% committed")
}
