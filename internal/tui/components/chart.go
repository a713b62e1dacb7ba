package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/oafund/internal/tui/theme"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values oldest-left, scaled between their minimum and
// maximum so a balance that only ever falls still shows its shape. At most
// width points are drawn; older ones are dropped.
func Sparkline(values []decimal.Decimal, width int, color lipgloss.Color) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = decimal.Min(lo, v)
		hi = decimal.Max(hi, v)
	}
	span := hi.Sub(lo)
	top := decimal.NewFromInt(int64(len(sparkBlocks) - 1))

	var buf strings.Builder
	for _, v := range values {
		idx := len(sparkBlocks) / 2
		if !span.IsZero() {
			idx = int(v.Sub(lo).Div(span).Mul(top).Round(0).IntPart())
		}
		idx = min(max(idx, 0), len(sparkBlocks)-1)
		buf.WriteRune(sparkBlocks[idx])
	}

	style := lipgloss.NewStyle().Foreground(color).Background(theme.Active.Surface)
	return style.Render(buf.String())
}
