package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/oafund/internal/model"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
	ColorPurple    = lipgloss.Color("#8B7EC8")
	ColorYellow    = lipgloss.Color("#D0A215")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	labelStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// StatusColor is the color used for a status everywhere in CLI output.
func StatusColor(s model.Status) lipgloss.Color {
	switch s {
	case model.StatusApproved:
		return ColorBlue
	case model.StatusPaid:
		return ColorGreen
	case model.StatusPaymentPlanned:
		return ColorPurple
	case model.StatusDenied:
		return ColorRed
	case model.StatusCancelled:
		return ColorOrange
	}
	return ColorYellow
}

// RenderStatus renders a colored status label.
func RenderStatus(s model.Status) string {
	return lipgloss.NewStyle().Foreground(StatusColor(s)).Bold(true).Render(FormatStatus(s))
}

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Right lists the column indexes rendered right-aligned (amounts).
	Right []int
}

func (t Table) rightAligned(col int) bool {
	for _, c := range t.Right {
		if c == col {
			return true
		}
	}
	return false
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(60).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. Cells may
// already carry ANSI styling; widths are measured on the visible text.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if t.rightAligned(i) {
				b.WriteString(style.Render(" " + pad + cell + " "))
			} else {
				b.WriteString(style.Render(" " + cell + pad + " "))
			}
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			rule("├", "┼", "┤")
			continue
		}
		line(row, valueStyle)
	}
	rule("╰", "┴", "╯")

	return b.String()
}

// RenderFields renders label/value pairs as an aligned block.
func RenderFields(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	var b strings.Builder
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		label := fmt.Sprintf("%-*s", width, p[0])
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(label))
		b.WriteString("  ")
		b.WriteString(valueStyle.Render(p[1]))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderBudgetBar renders how much of the total has been committed.
func RenderBudgetBar(committed, total decimal.Decimal, width int) string {
	if total.Sign() <= 0 || width <= 0 {
		return ""
	}
	filled := int(committed.Div(total).Mul(decimal.NewFromInt(int64(width))).IntPart())
	filled = min(max(filled, 0), width)

	color := ColorGreen
	if filled*10 >= width*9 {
		color = ColorRed
	} else if filled*4 >= width*3 {
		color = ColorOrange
	}
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("[%s] %s committed", bar, FormatPercent(committed, total))
}
