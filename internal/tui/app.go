// Package tui provides the interactive Bubble Tea dashboard for oafund.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/oafund/internal/fund"
	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/tui/components"
	"github.com/theirongolddev/oafund/internal/tui/theme"
)

// Backend is the part of the fund service the dashboard drives.
type Backend interface {
	List(ctx context.Context, f fund.ListFilter) ([]model.FundingRequest, error)
	Summary(ctx context.Context) (model.BudgetSummary, error)
	History(ctx context.Context, limit int) ([]model.LedgerEntry, error)
	Submit(ctx context.Context, in fund.RequestInput) (model.FundingRequest, error)
	Transition(ctx context.Context, timestamp string, to model.Status, actor string) (fund.TransitionResult, error)
}

// Options configures the dashboard.
type Options struct {
	FundName        string
	Actor           string // recorded on status changes
	HistoryLimit    int
	RefreshInterval time.Duration // zero disables auto-refresh
}

// DataLoadedMsg carries a fresh copy of requests and ledger.
type DataLoadedMsg struct {
	Requests []model.FundingRequest
	Summary  model.BudgetSummary
	History  []model.LedgerEntry
	Err      error
	At       time.Time
}

// ActionDoneMsg reports the outcome of a transition or submission.
type ActionDoneMsg struct {
	Text string
	Err  error
}

type refreshTickMsg struct{}

const (
	tabRequests = iota
	tabLedger
)

const (
	minTerminalWidth = 80
	maxContentWidth  = 180
	minContentHeight = 5
	actionTimeout    = 10 * time.Second
)

// statusFilters is the cycle order of the f key. The empty status means all.
var statusFilters = []model.Status{
	"",
	model.StatusSubmitted,
	model.StatusApproved,
	model.StatusPaymentPlanned,
	model.StatusPaid,
	model.StatusDenied,
	model.StatusCancelled,
}

// actionKeys maps request-tab keys onto target statuses.
var actionKeys = map[string]model.Status{
	"a": model.StatusApproved,
	"d": model.StatusDenied,
	"p": model.StatusPaid,
	"l": model.StatusPaymentPlanned,
	"c": model.StatusCancelled,
}

// pendingAction is a status change waiting for y/n confirmation.
type pendingAction struct {
	req model.FundingRequest
	to  model.Status
}

// App is the root Bubble Tea model.
type App struct {
	backend Backend
	opts    Options

	// Data
	requests []model.FundingRequest
	summary  model.BudgetSummary
	history  []model.LedgerEntry
	loaded   bool
	loading  bool
	loadedAt time.Time

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	notice    components.Notice
	spinner   spinner.Model

	reqs    requestsState
	ledger  ledgerState
	confirm *pendingAction

	// New request (huh form)
	form     *huh.Form
	formVals requestFormValues
}

// NewApp creates a new TUI app model.
func NewApp(b Backend, opts Options) App {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.Actor == "" {
		opts.Actor = "tui"
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		backend: b,
		opts:    opts,
		spinner: sp,
		loading: true,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.loadCmd(),
		a.spinner.Tick,
	}
	if a.opts.RefreshInterval > 0 {
		cmds = append(cmds, refreshTick(a.opts.RefreshInterval))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.form != nil {
			a.form = a.form.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.form != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.moveCursor(-1)
		case tea.MouseButtonWheelDown:
			a.moveCursor(1)
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.loading = false
		if msg.Err != nil {
			a.notice = components.Notice{Text: "load failed: " + msg.Err.Error(), Error: true}
			return a, nil
		}
		a.loaded = true
		a.loadedAt = msg.At
		a.requests = msg.Requests
		a.summary = msg.Summary
		a.history = msg.History
		a.clampCursors()
		return a, nil

	case ActionDoneMsg:
		if msg.Err != nil {
			a.notice = components.Notice{Text: msg.Err.Error(), Error: true}
			return a, nil
		}
		a.notice = components.Notice{Text: msg.Text}
		a.loading = true
		return a, a.loadCmd()

	case refreshTickMsg:
		cmds := []tea.Cmd{refreshTick(a.opts.RefreshInterval)}
		if !a.loading && a.form == nil {
			a.loading = true
			cmds = append(cmds, a.loadCmd())
		}
		return a, tea.Batch(cmds...)

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward unhandled messages to the form (cursor blinks, etc.)
	if a.form != nil {
		return a.updateForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	// The new-request form intercepts all keys
	if a.form != nil {
		return a.updateForm(msg)
	}

	if a.confirm != nil {
		p := a.confirm
		a.confirm = nil
		if key == "y" || key == "Y" {
			return a, a.transitionCmd(p.req.Timestamp, p.to)
		}
		a.notice = components.Notice{Text: "cancelled"}
		return a, nil
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.loading {
			a.loading = true
			a.notice = components.Notice{}
			return a, a.loadCmd()
		}
		return a, nil
	case "n":
		a.formVals = requestFormValues{}
		a.form = newRequestForm(&a.formVals)
		if a.width > 0 {
			a.form = a.form.WithWidth(a.width).WithHeight(a.height)
		}
		return a, a.form.Init()
	case "tab", "right":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "shift+tab", "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "j", "down":
		a.moveCursor(1)
		return a, nil
	case "k", "up":
		a.moveCursor(-1)
		return a, nil
	case "g":
		a.moveCursor(-len(a.requests) - len(a.history))
		return a, nil
	case "G":
		a.moveCursor(len(a.requests) + len(a.history))
		return a, nil
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			a.activeTab = idx
			return a, nil
		}
	}

	if a.activeTab == tabRequests {
		switch key {
		case "f":
			a.reqs.filter = (a.reqs.filter + 1) % len(statusFilters)
			a.reqs.cursor = 0
			a.reqs.offset = 0
			return a, nil
		case "J":
			a.reqs.detailScroll++
			return a, nil
		case "K":
			a.reqs.detailScroll = max(a.reqs.detailScroll-1, 0)
			return a, nil
		}
		if to, ok := actionKeys[key]; ok {
			return a.startTransition(to)
		}
	}

	return a, nil
}

// startTransition asks for confirmation when the move is allowed, and
// explains why not otherwise.
func (a App) startTransition(to model.Status) (tea.Model, tea.Cmd) {
	sel, ok := a.selectedRequest()
	if !ok {
		return a, nil
	}
	if !model.CanTransition(sel.Status, to) {
		a.notice = components.Notice{
			Text:  fmt.Sprintf("cannot move %s request to %s", sel.Status, to),
			Error: true,
		}
		return a, nil
	}
	a.confirm = &pendingAction{req: sel, to: to}
	a.notice = components.Notice{}
	return a, nil
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		a.form = nil
		in, err := a.formVals.input()
		if err != nil {
			a.notice = components.Notice{Text: err.Error(), Error: true}
			return a, nil
		}
		return a, a.submitCmd(in)
	case huh.StateAborted:
		a.form = nil
		a.notice = components.Notice{Text: "new request discarded"}
		return a, nil
	}
	return a, cmd
}

func (a *App) moveCursor(delta int) {
	switch a.activeTab {
	case tabRequests:
		n := len(a.visibleRequests())
		a.reqs.cursor = min(max(a.reqs.cursor+delta, 0), max(n-1, 0))
		a.reqs.detailScroll = 0
	case tabLedger:
		a.ledger.cursor = min(max(a.ledger.cursor+delta, 0), max(len(a.history)-1, 0))
	}
}

// clampCursors keeps selections inside the freshly loaded lists.
func (a *App) clampCursors() {
	n := len(a.visibleRequests())
	a.reqs.cursor = min(a.reqs.cursor, max(n-1, 0))
	a.ledger.cursor = min(a.ledger.cursor, max(len(a.history)-1, 0))
}

// ─── Commands ───────────────────────────────────────────────────

func (a App) loadCmd() tea.Cmd {
	b := a.backend
	limit := a.opts.HistoryLimit
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		reqs, err := b.List(ctx, fund.ListFilter{})
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		sum, err := b.Summary(ctx)
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		hist, err := b.History(ctx, limit)
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		return DataLoadedMsg{Requests: reqs, Summary: sum, History: hist, At: time.Now()}
	}
}

func (a App) transitionCmd(ts string, to model.Status) tea.Cmd {
	b := a.backend
	actor := a.opts.Actor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		res, err := b.Transition(ctx, ts, to, actor)
		if err != nil {
			return ActionDoneMsg{Err: err}
		}
		text := fmt.Sprintf("%s → %s", shortTitle(res.Request), res.Request.Status)
		if res.Ledger != nil {
			text += fmt.Sprintf(" (available %s)", res.Ledger.RunningTotal.StringFixed(2))
		}
		return ActionDoneMsg{Text: text}
	}
}

func (a App) submitCmd(in fund.RequestInput) tea.Cmd {
	b := a.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		req, err := b.Submit(ctx, in)
		if err != nil {
			return ActionDoneMsg{Err: err}
		}
		return ActionDoneMsg{Text: "submitted " + shortTitle(req)}
	}
}

func refreshTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

// ─── Views ──────────────────────────────────────────────────────

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.form != nil {
		return a.form.View()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  oafund needs at least %d columns.\n",
		a.width, minTerminalWidth,
	)
	h := max(a.height, 5)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ " + a.fundName()))
	b.WriteString("\n\n")
	if a.notice.Error {
		b.WriteString(lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Render(a.notice.Text))
		b.WriteString("\n")
		b.WriteString(subtitleStyle.Render("press r to retry, q to quit"))
	} else {
		b.WriteString(a.spinner.View())
		b.WriteString(subtitleStyle.Render(" Loading requests and ledger..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"1 2  tab", "Jump / next tab"},
			{"j k", "Move selection"},
			{"g G", "First / last"},
			{"J K", "Scroll request detail"},
			{"f", "Cycle status filter"},
		}},
		{"Requests", [][2]string{
			{"a", "Approve"},
			{"d", "Deny"},
			{"p", "Mark paid"},
			{"l", "Plan payment"},
			{"c", "Cancel approval"},
			{"n", "New request"},
		}},
		{"General", [][2]string{
			{"r", "Refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	right := a.fundName()
	if f := statusFilters[a.reqs.filter]; f != "" && a.activeTab == tabRequests {
		right = "filter: " + string(f) + " │ " + right
	}
	header := components.RenderTabBar(a.activeTab, w, right)

	hints := "[?]help [n]ew [r]efresh [q]uit"
	notice := a.notice
	if a.confirm != nil {
		notice = components.Notice{Text: fmt.Sprintf("%s %q? [y/N]",
			verb(a.confirm.to), shortTitle(a.confirm.req))}
	}
	age := ""
	if !a.loadedAt.IsZero() {
		age = "updated " + a.loadedAt.Format("15:04:05")
	}
	if a.loading {
		age = "refreshing…"
	}
	statusBar := components.RenderStatusBar(w, hints, notice, age)

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabRequests:
		content = a.renderRequestsTab(cw, contentH)
	case tabLedger:
		content = a.renderLedgerTab(cw, contentH)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) fundName() string {
	if a.opts.FundName != "" {
		return a.opts.FundName
	}
	return "OA Fund"
}

// ─── Helpers ────────────────────────────────────────────────────

func verb(s model.Status) string {
	switch s {
	case model.StatusApproved:
		return "Approve"
	case model.StatusDenied:
		return "Deny"
	case model.StatusPaid:
		return "Mark paid"
	case model.StatusPaymentPlanned:
		return "Plan payment for"
	case model.StatusCancelled:
		return "Cancel"
	}
	return string(s)
}

func shortTitle(r model.FundingRequest) string {
	if r.Title == "" {
		return r.Timestamp
	}
	return truncStr(r.Title, 40)
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the same width rules as RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // one-column separator
	}
	return -1
}
