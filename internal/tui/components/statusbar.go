package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/oafund/internal/tui/theme"
)

// Notice is a one-line message shown in the status bar.
type Notice struct {
	Text  string
	Error bool
}

// RenderStatusBar renders the bottom status bar: key hints on the left, the
// latest notice in the middle and the data age on the right.
func RenderStatusBar(width int, hints string, notice Notice, dataAge string) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	noticeStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Bold(true)
	if notice.Error {
		noticeStyle = noticeStyle.Foreground(t.Red)
	}

	left := base.Render(" " + hints)
	mid := ""
	if notice.Text != "" {
		mid = base.Render("  ") + noticeStyle.Render(notice.Text)
	}
	right := ""
	if dataAge != "" {
		right = base.Render(dataAge + " ")
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(mid) - lipgloss.Width(right)
	if padding < 0 {
		// Drop the hints first on narrow terminals.
		left = ""
		padding = max(width-lipgloss.Width(mid)-lipgloss.Width(right), 0)
	}
	return left + mid + base.Render(strings.Repeat(" ", padding)) + right
}
