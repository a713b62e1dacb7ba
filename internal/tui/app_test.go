package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/oafund/internal/fund"
	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/tui/components"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

type transitionCall struct {
	ts    string
	to    model.Status
	actor string
}

type fakeBackend struct {
	requests    []model.FundingRequest
	history     []model.LedgerEntry
	summary     model.BudgetSummary
	transitions []transitionCall
	submitted   []fund.RequestInput
}

func (f *fakeBackend) List(context.Context, fund.ListFilter) ([]model.FundingRequest, error) {
	return f.requests, nil
}

func (f *fakeBackend) Summary(context.Context) (model.BudgetSummary, error) {
	return f.summary, nil
}

func (f *fakeBackend) History(context.Context, int) ([]model.LedgerEntry, error) {
	return f.history, nil
}

func (f *fakeBackend) Submit(_ context.Context, in fund.RequestInput) (model.FundingRequest, error) {
	f.submitted = append(f.submitted, in)
	return model.FundingRequest{Title: in.Title, Status: model.StatusSubmitted}, nil
}

func (f *fakeBackend) Transition(_ context.Context, ts string, to model.Status, actor string) (fund.TransitionResult, error) {
	f.transitions = append(f.transitions, transitionCall{ts, to, actor})
	for _, r := range f.requests {
		if r.Timestamp == ts {
			r.Status = to
			return fund.TransitionResult{Request: r}, nil
		}
	}
	return fund.TransitionResult{}, fund.ErrNotFound
}

func newFake() *fakeBackend {
	return &fakeBackend{
		requests: []model.FundingRequest{
			{Timestamp: "2026-03-02T10:00:00.000Z", Title: "Second paper", Email: "b@uni.edu", Amount: decimal.NewFromInt(900), Status: model.StatusApproved},
			{Timestamp: "2026-03-01T10:00:00.000Z", Title: "First paper", Email: "a@uni.edu", Amount: decimal.NewFromInt(1500), Status: model.StatusSubmitted},
		},
		history: []model.LedgerEntry{
			{ID: 2, Timestamp: "2026-03-02T10:00:00.000Z", TotalAmount: decimal.NewFromInt(10000), RunningTotal: decimal.NewFromInt(9100), RunningTotalChange: decimal.NewFromInt(-900), Reason: "approved"},
			{ID: 1, Timestamp: "2026-03-01T09:00:00.000Z", TotalAmount: decimal.NewFromInt(10000), ChangeAmount: decimal.NewFromInt(10000), RunningTotal: decimal.NewFromInt(10000), RunningTotalChange: decimal.NewFromInt(10000), Reason: "initial"},
		},
		summary: model.BudgetSummary{
			Latest:    model.LedgerEntry{TotalAmount: decimal.NewFromInt(10000), RunningTotal: decimal.NewFromInt(9100)},
			Committed: decimal.NewFromInt(900),
			Counts:    map[model.Status]int{model.StatusSubmitted: 1, model.StatusApproved: 1},
			Requested: decimal.NewFromInt(1500),
		},
	}
}

// loadedApp returns an app that has sized itself and received its first load.
func loadedApp(t *testing.T, b *fakeBackend) App {
	t.Helper()
	a := NewApp(b, Options{Actor: "tester"})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	msg := m.(App).loadCmd()()
	m, _ = m.Update(msg)
	app := m.(App)
	require.True(t, app.loaded)
	return app
}

func press(t *testing.T, a App, key string) (App, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	m, cmd := a.Update(msg)
	return m.(App), cmd
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			assert.Equal(t, i, a.tabAtX(pos+w/2), "active=%d tab=%d", active, i)
			pos += w + 1
		}
		assert.Equal(t, -1, a.tabAtX(pos+50))
	}
}

func TestApproveAsksForConfirmation(t *testing.T) {
	b := newFake()
	a := loadedApp(t, b)

	a, _ = press(t, a, "j") // First paper, submitted
	a, cmd := press(t, a, "a")
	assert.Nil(t, cmd)
	require.NotNil(t, a.confirm)
	assert.Equal(t, model.StatusApproved, a.confirm.to)
	assert.Contains(t, a.View(), `Approve "First paper"? [y/N]`)

	a, cmd = press(t, a, "y")
	require.NotNil(t, cmd)
	assert.Nil(t, a.confirm)

	done, ok := cmd().(ActionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)
	assert.Contains(t, done.Text, "First paper")
	require.Len(t, b.transitions, 1)
	assert.Equal(t, transitionCall{"2026-03-01T10:00:00.000Z", model.StatusApproved, "tester"}, b.transitions[0])

	// A finished action triggers a reload.
	m, cmd := a.Update(done)
	assert.True(t, m.(App).loading)
	assert.NotNil(t, cmd)
}

func TestConfirmationCancelledByOtherKey(t *testing.T) {
	b := newFake()
	a := loadedApp(t, b)

	a, _ = press(t, a, "d") // Second paper is approved; deny is not allowed
	assert.Nil(t, a.confirm)
	assert.True(t, a.notice.Error)

	a, _ = press(t, a, "c")
	require.NotNil(t, a.confirm)
	a, cmd := press(t, a, "n")
	assert.Nil(t, cmd)
	assert.Nil(t, a.confirm)
	assert.Empty(t, b.transitions)
}

func TestFilterCyclesStatuses(t *testing.T) {
	a := loadedApp(t, newFake())
	assert.Len(t, a.visibleRequests(), 2)

	a, _ = press(t, a, "f")
	vis := a.visibleRequests()
	require.Len(t, vis, 1)
	assert.Equal(t, "First paper", vis[0].Title)
	assert.Contains(t, a.View(), "filter: submitted")

	a, _ = press(t, a, "f")
	vis = a.visibleRequests()
	require.Len(t, vis, 1)
	assert.Equal(t, "Second paper", vis[0].Title)

	for range len(statusFilters) - 2 {
		a, _ = press(t, a, "f")
	}
	assert.Len(t, a.visibleRequests(), 2)
}

func TestCursorStaysInBounds(t *testing.T) {
	a := loadedApp(t, newFake())
	for range 5 {
		a, _ = press(t, a, "j")
	}
	assert.Equal(t, 1, a.reqs.cursor)
	a, _ = press(t, a, "g")
	assert.Equal(t, 0, a.reqs.cursor)

	a, _ = press(t, a, "tab")
	assert.Equal(t, tabLedger, a.activeTab)
	a, _ = press(t, a, "G")
	assert.Equal(t, 1, a.ledger.cursor)
	a, _ = press(t, a, "1")
	assert.Equal(t, tabRequests, a.activeTab)
}

func TestViewsRender(t *testing.T) {
	a := loadedApp(t, newFake())

	view := a.View()
	assert.Contains(t, view, "Requests (2)")
	assert.Contains(t, view, "Second paper")
	assert.Contains(t, view, "$1,500.00")
	assert.Equal(t, 40, lipgloss.Height(view))

	a, _ = press(t, a, "2")
	view = a.View()
	assert.Contains(t, view, "Available")
	assert.Contains(t, view, "$9,100.00")
	assert.Contains(t, view, "History (2)")
	assert.Contains(t, view, "initial")

	a, _ = press(t, a, "?")
	assert.Contains(t, a.View(), "Keyboard Shortcuts")
}

func TestNarrowTerminal(t *testing.T) {
	a := loadedApp(t, newFake())
	m, _ := a.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Contains(t, m.View(), "Terminal too narrow")
}

func TestRequestFormInput(t *testing.T) {
	v := requestFormValues{
		email:  " a@uni.edu ",
		title:  "Paper",
		amount: "1500.50",
	}
	in, err := v.input()
	require.NoError(t, err)
	assert.Equal(t, "a@uni.edu", in.Email)
	assert.True(t, in.Amount.Equal(decimal.RequireFromString("1500.50")))

	v.amount = "lots"
	_, err = v.input()
	assert.Error(t, err)

	assert.Error(t, validateAmount("-5"))
	assert.NoError(t, validateAmount("0"))
	assert.Error(t, validateEmail("not-an-email"))
	assert.NoError(t, validateSchedule("@daily"))
	assert.Error(t, validateSchedule("every tuesday"))
}

func TestRunningSeriesOldestFirst(t *testing.T) {
	got := runningSeries(newFake().history)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(decimal.NewFromInt(10000)))
	assert.True(t, got[1].Equal(decimal.NewFromInt(9100)))
}

func TestRefreshTickSkipsWhileLoading(t *testing.T) {
	a := NewApp(newFake(), Options{RefreshInterval: time.Minute})
	assert.True(t, a.loading)
	m, cmd := a.Update(refreshTickMsg{})
	assert.NotNil(t, cmd)
	assert.True(t, m.(App).loading)
}
