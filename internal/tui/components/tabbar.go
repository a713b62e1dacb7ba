package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/oafund/internal/tui/theme"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name string
	Key  rune // number key that jumps to the tab
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Requests", Key: '1'},
	{Name: "Ledger", Key: '2'},
}

func tabLabel(tab Tab, active bool) string {
	if active {
		return tab.Name
	}
	return fmt.Sprintf("%s[%c]", tab.Name, tab.Key)
}

// TabVisualWidth is the rendered width of one tab, padding included.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(tabLabel(tab, active)) + 2
}

// RenderTabBar renders the tab bar with the given active index. right is
// shown flush right (fund name, filter).
func RenderTabBar(activeIdx, width int, right string) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, 1)

	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Padding(0, 1)

	sepStyle := lipgloss.NewStyle().Background(t.Surface)

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tabLabel(tab, true)))
		} else {
			parts = append(parts, inactiveStyle.Render(tabLabel(tab, false)))
		}
	}
	left := strings.Join(parts, sepStyle.Render(" "))

	rightStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	right = rightStyle.Render(right + " ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + sepStyle.Render(strings.Repeat(" ", gap)) + right
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
