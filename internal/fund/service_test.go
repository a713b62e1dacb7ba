package fund

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/store"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fakeNotifier struct {
	sent []model.FundingRequest
	err  error
}

func (f *fakeNotifier) NotifyStatus(_ context.Context, r model.FundingRequest) error {
	f.sent = append(f.sent, r)
	return f.err
}

var t0 = time.Date(2025, 8, 6, 18, 47, 6, 370_000_000, time.UTC)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "fund.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	opts = append([]Option{WithClock(func() time.Time { return t0 })}, opts...)
	return New(st, opts...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func input(amount string) RequestInput {
	return RequestInput{
		Email:      "author@example.edu",
		Title:      "A Paper",
		Amount:     dec(amount),
		AuthorName: "A. Author",
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RequestInput
	}{
		{"missing email", RequestInput{Amount: dec("10")}},
		{"email without at", RequestInput{Email: "nobody", Amount: dec("10")}},
		{"negative amount", RequestInput{Email: "a@b.c", Amount: dec("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSubmitRetriesOnCollision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var keys []string
	for i := 0; i < maxSubmitAttempts; i++ {
		r, err := svc.Submit(ctx, input("100"))
		require.NoError(t, err)
		assert.Equal(t, model.StatusSubmitted, r.Status)
		keys = append(keys, r.Timestamp)
	}
	assert.Equal(t, "2025-08-06T18:47:06.370Z", keys[0])
	assert.Equal(t, "2025-08-06T18:47:06.371Z", keys[1])
	assert.Equal(t, "2025-08-06T18:47:06.374Z", keys[4])

	_, err := svc.Submit(ctx, input("100"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestBudgetOperations(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	latest, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, latest.TotalAmount.IsZero())
	assert.True(t, latest.RunningTotal.IsZero())

	e, err := svc.SetTotal(ctx, dec("100000"), "")
	require.NoError(t, err)
	assert.Equal(t, ReasonSetTotal, e.Reason)
	assert.Equal(t, "100000", e.ChangeAmount.String())
	assert.Equal(t, "0", e.RunningTotal.String())

	e, err = svc.SetRunning(ctx, dec("100000"), "")
	require.NoError(t, err)
	assert.Equal(t, ReasonSetRunning, e.Reason)
	assert.Equal(t, "100000", e.RunningTotalChange.String())
	assert.Equal(t, "100000", e.TotalAmount.String())
	assert.True(t, e.ChangeAmount.IsZero())

	e, err = svc.ChangeTotal(ctx, dec("-2500.50"), "mid-year cut")
	require.NoError(t, err)
	assert.Equal(t, "mid-year cut", e.Reason)
	assert.Equal(t, "97499.5", e.TotalAmount.String())
	assert.Equal(t, "100000", e.RunningTotal.String())

	e, err = svc.SetTotal(ctx, dec("90000"), "")
	require.NoError(t, err)
	assert.Equal(t, "-7499.5", e.ChangeAmount.String())

	e, err = svc.ChangeRunning(ctx, dec("-10000"), "")
	require.NoError(t, err)
	assert.Equal(t, ReasonChangeRunning, e.Reason)
	assert.Equal(t, "90000", e.RunningTotal.String())

	hist, err := svc.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, hist, 5)
	assert.Equal(t, e.ID, hist[0].ID)
}

func TestApproveAndCancelMoveRunningTotal(t *testing.T) {
	sink := &recordingSink{}
	notifier := &fakeNotifier{}
	svc := newTestService(t, WithEvents(sink), WithNotifier(notifier))
	ctx := context.Background()

	_, err := svc.SetRunning(ctx, dec("1000"), "")
	require.NoError(t, err)
	r, err := svc.Submit(ctx, input("250.25"))
	require.NoError(t, err)

	res, err := svc.Approve(ctx, r.Timestamp, "staff")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, res.Request.Status)
	require.NotNil(t, res.Ledger)
	assert.Equal(t, "749.75", res.Ledger.RunningTotal.String())
	assert.Equal(t, "-250.25", res.Ledger.RunningTotalChange.String())
	assert.Equal(t, "approved "+r.Timestamp, res.Ledger.Reason)

	res, err = svc.Cancel(ctx, r.Timestamp, "staff")
	require.NoError(t, err)
	require.NotNil(t, res.Ledger)
	assert.Equal(t, "1000", res.Ledger.RunningTotal.String())
	assert.Equal(t, "cancelled "+r.Timestamp, res.Ledger.Reason)

	got, err := svc.Get(ctx, r.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	assert.Equal(t, []string{EventLedger, EventSubmitted, EventStatus, EventStatus}, sink.types())
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, model.StatusCancelled, notifier.sent[1].Status)
}

func TestPaymentPathWritesNoLedger(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	r, err := svc.Submit(ctx, input("10"))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, r.Timestamp, "")
	require.NoError(t, err)

	res, err := svc.PlanPayment(ctx, r.Timestamp, "")
	require.NoError(t, err)
	assert.Nil(t, res.Ledger)

	res, err = svc.Pay(ctx, r.Timestamp, "")
	require.NoError(t, err)
	assert.Nil(t, res.Ledger)
	assert.Equal(t, model.StatusPaid, res.Request.Status)

	hist, err := svc.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, hist, 1, "only the approval touches the ledger")
}

func TestInvalidTransitions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	r, err := svc.Submit(ctx, input("10"))
	require.NoError(t, err)

	_, err = svc.Pay(ctx, r.Timestamp, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Cancel(ctx, r.Timestamp, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Deny(ctx, r.Timestamp, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, r.Timestamp, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Approve(ctx, "2000-01-01T00:00:00.000Z", "")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(ctx, r.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDenied, got.Status)
}

func TestNotifierFailureDoesNotRollBack(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	svc := newTestService(t, WithNotifier(notifier))
	ctx := context.Background()

	r, err := svc.Submit(ctx, input("10"))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, r.Timestamp, "")
	require.NoError(t, err)

	got, err := svc.Get(ctx, r.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
}

func TestUpdateAmountLock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	r, err := svc.Submit(ctx, input("10"))
	require.NoError(t, err)

	amount := dec("20")
	title := "Better Title"
	updated, err := svc.Update(ctx, r.Timestamp, RequestPatch{Amount: &amount, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "20", updated.Amount.String())
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, r.AuthorName, updated.AuthorName)

	_, err = svc.Approve(ctx, r.Timestamp, "")
	require.NoError(t, err)

	more := dec("30")
	_, err = svc.Update(ctx, r.Timestamp, RequestPatch{Amount: &more})
	assert.ErrorIs(t, err, ErrAmountLocked)

	// Same amount is not a change.
	_, err = svc.Update(ctx, r.Timestamp, RequestPatch{Amount: &amount})
	assert.NoError(t, err)

	bad := "not-an-email"
	_, err = svc.Update(ctx, r.Timestamp, RequestPatch{Email: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := svc.Get(ctx, r.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
	assert.Equal(t, "20", got.Amount.String())
}

func TestSummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetTotal(ctx, dec("500"), "")
	require.NoError(t, err)
	_, err = svc.SetRunning(ctx, dec("500"), "")
	require.NoError(t, err)

	a, err := svc.Submit(ctx, input("100"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, input("40"))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, a.Timestamp, "")
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "400", sum.Latest.RunningTotal.String())
	assert.Equal(t, "100", sum.Committed.String())
	assert.Equal(t, "40", sum.Requested.String())
	assert.Equal(t, 1, sum.Counts[model.StatusApproved])
	assert.Equal(t, 1, sum.Counts[model.StatusSubmitted])
}

func TestLedgerTimestampsNeverGoBackwards(t *testing.T) {
	now := t0
	svc := newTestService(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	first, err := svc.SetTotal(ctx, dec("10"), "")
	require.NoError(t, err)

	now = t0.Add(-time.Hour)
	second, err := svc.ChangeTotal(ctx, dec("5"), "")
	require.NoError(t, err)
	assert.Equal(t, first.Timestamp, second.Timestamp)

	latest, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "15", latest.TotalAmount.String())
}

func TestURLsAndFiles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddURL(ctx, "ftp://example.org/x", "a@b.c")
	assert.ErrorIs(t, err, ErrInvalidInput)
	u, err := svc.AddURL(ctx, "https://doi.org/10.1/abc", "a@b.c")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	urls, err := svc.ListURLs(ctx)
	require.NoError(t, err)
	assert.Len(t, urls, 1)

	dir := t.TempDir()
	f, err := svc.AddFile(ctx, dir, Upload{
		Email:            "a@b.c",
		OriginalFilename: "../../Invoice.PDF",
		Body:             strings.NewReader("%PDF-1.4"),
		MaxBytes:         1024,
	})
	require.NoError(t, err)
	assert.Equal(t, "Invoice.PDF", f.OriginalFilename)
	assert.True(t, strings.HasSuffix(f.Filename, ".pdf"))
	assert.Equal(t, int64(8), f.Size)
	assert.Equal(t, dir, filepath.Dir(f.Path))

	got, err := svc.FileByName(ctx, f.Filename)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	_, err = svc.AddFile(ctx, dir, Upload{
		Email:            "a@b.c",
		OriginalFilename: "big.pdf",
		Body:             strings.NewReader(strings.Repeat("x", 20)),
		MaxBytes:         10,
	})
	assert.ErrorIs(t, err, ErrTooLarge)

	files, err := svc.ListFiles(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
