package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/oafund/internal/cli"
	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/tui/components"
	"github.com/theirongolddev/oafund/internal/tui/theme"
)

// requestsState holds the requests tab state.
type requestsState struct {
	cursor       int
	offset       int // scroll offset for the list
	detailScroll int
	filter       int // index into statusFilters
}

// visibleRequests applies the status filter. Requests arrive newest first.
func (a App) visibleRequests() []model.FundingRequest {
	want := statusFilters[a.reqs.filter]
	if want == "" {
		return a.requests
	}
	out := make([]model.FundingRequest, 0, len(a.requests))
	for _, r := range a.requests {
		if r.Status == want {
			out = append(out, r)
		}
	}
	return out
}

func (a App) selectedRequest() (model.FundingRequest, bool) {
	reqs := a.visibleRequests()
	if a.reqs.cursor < 0 || a.reqs.cursor >= len(reqs) {
		return model.FundingRequest{}, false
	}
	return reqs[a.reqs.cursor], true
}

func (a App) renderRequestsTab(cw, h int) string {
	t := theme.Active
	reqs := a.visibleRequests()

	if len(reqs) == 0 {
		msg := "No requests yet. Press n to add one."
		if statusFilters[a.reqs.filter] != "" {
			msg = "No requests with this status. Press f to change the filter."
		}
		return components.ContentCard("Requests",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(msg), cw)
	}

	leftW := max(cw*11/20, 44)
	rightW := cw - leftW

	leftCard := components.ContentCard(
		fmt.Sprintf("Requests (%d)", len(reqs)),
		a.renderRequestList(reqs, components.CardInnerWidth(leftW), h),
		leftW,
	)

	sel := reqs[min(a.reqs.cursor, len(reqs)-1)]
	body := a.renderRequestDetail(sel, components.CardInnerWidth(rightW))
	lines := strings.Split(body, "\n")
	if s := min(a.reqs.detailScroll, max(len(lines)-1, 0)); s > 0 {
		lines = lines[s:]
	}
	rightCard := components.ContentCard("Detail", strings.Join(lines, "\n"), rightW)

	return components.CardRow([]string{leftCard, rightCard})
}

func (a App) renderRequestList(reqs []model.FundingRequest, inner, h int) string {
	t := theme.Active

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)

	const (
		dateW   = 10
		amountW = 12
		statusW = 9
	)
	titleW := max(inner-dateW-amountW-statusW-3, 8)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-*s %*s %-*s",
		dateW, "Date", titleW, "Title", amountW, "Amount", statusW, "Status")))
	b.WriteString("\n")

	visible := max(h-5, 3) // card border, title and header rows
	offset := a.reqs.offset
	if a.reqs.cursor < offset {
		offset = a.reqs.cursor
	}
	if a.reqs.cursor >= offset+visible {
		offset = a.reqs.cursor - visible + 1
	}
	end := min(offset+visible, len(reqs))

	for i := offset; i < end; i++ {
		r := reqs[i]
		date := r.Timestamp
		if len(date) >= dateW {
			date = date[:dateW]
		}
		style := rowStyle
		if i == a.reqs.cursor {
			style = selectedStyle
		}
		status := lipgloss.NewStyle().
			Foreground(t.Status(r.Status)).
			Background(style.GetBackground()).
			Bold(true).
			Render(fmt.Sprintf("%-*s", statusW, cli.FormatStatus(r.Status)))
		b.WriteString(style.Render(fmt.Sprintf("%-*s %-*s %*s ",
			dateW, date, titleW, truncStr(r.Title, titleW), amountW, cli.FormatMoney(r.Amount))))
		b.WriteString(status)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (a App) renderRequestDetail(r model.FundingRequest, w int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(t.Status(r.Status)).Background(t.Surface).Bold(true)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Width(w).Render(r.Title))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(cli.FormatStatus(r.Status)))
	b.WriteString(valueStyle.Render("  " + cli.FormatMoney(r.Amount)))
	b.WriteString("\n\n")

	const labelW = 14
	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)))
		b.WriteString(valueStyle.Width(max(w-labelW, 10)).Render(value))
		b.WriteString("\n")
	}
	field("Submitted", cli.FormatWhen(r.Timestamp))
	field("Email", r.Email)
	field("Author", r.AuthorName)
	field("ORCiD", r.AuthorORCID)
	field("Collaborators", r.CollaboratorList)
	field("Collab. ORCiD", r.CollaboratorORCIDList)
	field("Journal", r.Journal)
	field("ISSN", r.JournalISSN)
	field("Publisher", r.Publisher)
	field("Article", r.ArticleStatus)
	field("Type", r.PublicationType)
	field("DOI", r.DOI)
	field("Comment", r.Comment)

	if next := model.NextStatuses(r.Status); len(next) > 0 {
		keys := make([]string, 0, len(next))
		for _, s := range next {
			for k, to := range actionKeys {
				if to == s {
					keys = append(keys, fmt.Sprintf("[%s] %s", k, strings.ToLower(verb(s))))
				}
			}
		}
		b.WriteString("\n")
		b.WriteString(hintStyle.Render(strings.Join(keys, "  ")))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
