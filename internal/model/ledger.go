package model

import "github.com/shopspring/decimal"

// LedgerEntry is one append-only budget snapshot.
//
// TotalAmount is the nominal budget; RunningTotal is the available balance.
// Each row stores both figures as they stood after the change, plus the
// delta that produced them.
type LedgerEntry struct {
	ID                 int64           `json:"id"`
	Timestamp          string          `json:"timestamp"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	ChangeAmount       decimal.Decimal `json:"change_amount"`
	Reason             string          `json:"reason,omitempty"`
	RunningTotal       decimal.Decimal `json:"running_total"`
	RunningTotalChange decimal.Decimal `json:"running_total_change"`
}

// Committed returns the part of the budget already promised to requests.
func (e LedgerEntry) Committed() decimal.Decimal {
	return e.TotalAmount.Sub(e.RunningTotal)
}

// BudgetSummary is the dashboard view of the fund.
type BudgetSummary struct {
	Latest    LedgerEntry     `json:"latest"`
	Committed decimal.Decimal `json:"committed"`
	Counts    map[Status]int  `json:"counts"`
	Requested decimal.Decimal `json:"requested_open"`
}
