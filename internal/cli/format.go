// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/oafund/internal/model"
)

// FormatMoney formats an amount with two decimals and comma separators.
// e.g., 12345.5 -> "$12,345.50", -20 -> "-$20.00"
func FormatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + FormatMoney(d.Neg())
	}
	s := d.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return "$" + s
	}
	return "$" + FormatNumber(n) + "." + frac
}

// FormatChange formats a ledger delta with an explicit sign. Zero renders
// as a dash.
func FormatChange(d decimal.Decimal) string {
	switch {
	case d.IsZero():
		return "-"
	case d.IsPositive():
		return "+" + FormatMoney(d)
	default:
		return FormatMoney(d)
	}
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats part/whole as a percentage. A zero whole gives "-".
func FormatPercent(part, whole decimal.Decimal) string {
	if whole.IsZero() {
		return "-"
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

// FormatWhen renders a request or ledger timestamp in local time. Values
// that do not parse are returned unchanged.
func FormatWhen(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}

// FormatStatus gives the display label for a status.
func FormatStatus(s model.Status) string {
	switch s {
	case model.StatusPaymentPlanned:
		return "PLANNED"
	case model.StatusSubmitted:
		return "SUBMITTED"
	}
	return string(s)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
