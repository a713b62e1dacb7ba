package fund

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/store"
)

// Default ledger reasons used when the caller gives none.
const (
	ReasonChangeTotal   = "update budget"
	ReasonSetTotal      = "set budget"
	ReasonChangeRunning = "update running total"
	ReasonSetRunning    = "set running total"
)

// ledgerOp derives the next snapshot's figures from the previous one.
// Timestamp, ID and Reason are filled in by appendLedger.
type ledgerOp func(prev model.LedgerEntry) model.LedgerEntry

func changeTotal(amount decimal.Decimal) ledgerOp {
	return func(prev model.LedgerEntry) model.LedgerEntry {
		return model.LedgerEntry{
			TotalAmount:        prev.TotalAmount.Add(amount),
			ChangeAmount:       amount,
			RunningTotal:       prev.RunningTotal,
			RunningTotalChange: decimal.Zero,
		}
	}
}

func setTotal(total decimal.Decimal) ledgerOp {
	return func(prev model.LedgerEntry) model.LedgerEntry {
		return changeTotal(total.Sub(prev.TotalAmount))(prev)
	}
}

func changeRunning(amount decimal.Decimal) ledgerOp {
	return func(prev model.LedgerEntry) model.LedgerEntry {
		return model.LedgerEntry{
			TotalAmount:        prev.TotalAmount,
			ChangeAmount:       decimal.Zero,
			RunningTotal:       prev.RunningTotal.Add(amount),
			RunningTotalChange: amount,
		}
	}
}

func setRunning(running decimal.Decimal) ledgerOp {
	return func(prev model.LedgerEntry) model.LedgerEntry {
		return changeRunning(running.Sub(prev.RunningTotal))(prev)
	}
}

// transitionOp returns the ledger effect of moving a request to a new
// status, or nil when the move does not touch the budget.
func transitionOp(from, to model.Status, amount decimal.Decimal) (ledgerOp, string) {
	switch {
	case to == model.StatusApproved:
		return changeRunning(amount.Neg()), "approved"
	case from == model.StatusApproved && to == model.StatusCancelled:
		return changeRunning(amount), "cancelled"
	}
	return nil, ""
}

// appendLedger reads the latest snapshot inside tx, applies op and appends
// the result. Ledger timestamps never go backwards.
func (s *Service) appendLedger(ctx context.Context, tx *store.Store, reason string, op ledgerOp) (model.LedgerEntry, error) {
	prev, _, err := tx.LatestLedger(ctx)
	if err != nil {
		return model.LedgerEntry{}, err
	}

	next := op(prev)
	next.Reason = reason
	next.Timestamp = model.FormatTimestamp(s.now())
	if next.Timestamp < prev.Timestamp {
		next.Timestamp = prev.Timestamp
	}

	id, err := tx.AppendLedger(ctx, next)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	next.ID = id
	return next, nil
}

func (s *Service) budgetOp(ctx context.Context, reason, fallback string, op ledgerOp) (model.LedgerEntry, error) {
	if reason == "" {
		reason = fallback
	}

	var entry model.LedgerEntry
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		entry, err = s.appendLedger(ctx, tx, reason, op)
		return err
	})
	if err != nil {
		return model.LedgerEntry{}, err
	}

	s.log.WithFields(logrus.Fields{
		"reason":        entry.Reason,
		"total":         entry.TotalAmount.String(),
		"running_total": entry.RunningTotal.String(),
	}).Info("ledger entry appended")
	s.publish(Event{Type: EventLedger, Ledger: &entry})
	return entry, nil
}

// ChangeTotal adds amount (which may be negative) to the budget total.
func (s *Service) ChangeTotal(ctx context.Context, amount decimal.Decimal, reason string) (model.LedgerEntry, error) {
	return s.budgetOp(ctx, reason, ReasonChangeTotal, changeTotal(amount))
}

// SetTotal sets the budget total. The recorded change is the difference
// from the previous total.
func (s *Service) SetTotal(ctx context.Context, total decimal.Decimal, reason string) (model.LedgerEntry, error) {
	return s.budgetOp(ctx, reason, ReasonSetTotal, setTotal(total))
}

// ChangeRunning adds amount (which may be negative) to the available balance.
func (s *Service) ChangeRunning(ctx context.Context, amount decimal.Decimal, reason string) (model.LedgerEntry, error) {
	return s.budgetOp(ctx, reason, ReasonChangeRunning, changeRunning(amount))
}

// SetRunning sets the available balance.
func (s *Service) SetRunning(ctx context.Context, running decimal.Decimal, reason string) (model.LedgerEntry, error) {
	return s.budgetOp(ctx, reason, ReasonSetRunning, setRunning(running))
}

// Latest returns the current snapshot, or the zero snapshot for an
// empty ledger.
func (s *Service) Latest(ctx context.Context) (model.LedgerEntry, error) {
	e, _, err := s.store.LatestLedger(ctx)
	return e, err
}

// History returns up to limit snapshots, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]model.LedgerEntry, error) {
	h, err := s.store.LedgerHistory(ctx, limit)
	return h, err
}

// Summary reports the latest snapshot, the committed amount, and request
// counts per status.
func (s *Service) Summary(ctx context.Context) (model.BudgetSummary, error) {
	latest, err := s.Latest(ctx)
	if err != nil {
		return model.BudgetSummary{}, err
	}
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return model.BudgetSummary{}, err
	}
	open, err := s.store.ListRequests(ctx, store.RequestFilter{Status: model.StatusSubmitted})
	if err != nil {
		return model.BudgetSummary{}, err
	}

	requested := decimal.Zero
	for _, r := range open {
		requested = requested.Add(r.Amount)
	}
	return model.BudgetSummary{
		Latest:    latest,
		Committed: latest.Committed(),
		Counts:    counts,
		Requested: requested,
	}, nil
}
