// Package model defines domain types for OA fund requests and the budget ledger.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the key format for requests and ledger rows
// (millisecond precision, UTC, trailing Z).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in the request key format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Status is the OA fund lifecycle state of a request.
type Status string

const (
	StatusSubmitted      Status = "submitted"
	StatusApproved       Status = "APPROVED"
	StatusDenied         Status = "DENIED"
	StatusPaid           Status = "PAID"
	StatusPaymentPlanned Status = "PAYMENT_PLANNED"
	StatusCancelled      Status = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusSubmitted,
	StatusApproved,
	StatusDenied,
	StatusPaymentPlanned,
	StatusPaid,
	StatusCancelled,
}

var transitions = map[Status][]Status{
	StatusSubmitted:      {StatusApproved, StatusDenied},
	StatusApproved:       {StatusPaid, StatusPaymentPlanned, StatusCancelled},
	StatusPaymentPlanned: {StatusPaid},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to Status) bool {
	from = Status(strings.TrimSpace(string(from)))
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s.
func NextStatuses(s Status) []Status {
	return transitions[Status(strings.TrimSpace(string(s)))]
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(NextStatuses(s)) == 0
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus maps a stored or user-supplied status onto a canonical Status.
// Legacy CSV files carry typos and older names; those are folded in here.
// ok is false when the value is not recognised.
func ParseStatus(raw string) (Status, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch v {
	case "", "SUBMITTED":
		return StatusSubmitted, true
	case "APPROVED":
		return StatusApproved, true
	case "DENIED":
		return StatusDenied, true
	case "PAID":
		return StatusPaid, true
	case "CANCELLED", "CANCELED", "CACNELLED":
		return StatusCancelled, true
	case "PAYMENT_PLANNED", "PAYMENT PLANNED", "TRANSACTIONS_PLANNED",
		"TRANSACTION PLANNED", "TRANSACTIONS PLANNED", "TRANSACTION_PLANNED":
		return StatusPaymentPlanned, true
	}
	return Status(strings.TrimSpace(raw)), false
}

// FundingRequest is one publication-funding request.
type FundingRequest struct {
	Timestamp             string          `json:"timestamp"`
	Email                 string          `json:"email"`
	Title                 string          `json:"title"`
	Amount                decimal.Decimal `json:"amount"`
	AuthorName            string          `json:"author_name"`
	AuthorORCID           string          `json:"author_orcid,omitempty"`
	CollaboratorList      string          `json:"collaborator_list,omitempty"`
	CollaboratorORCIDList string          `json:"collaborator_orcid_list,omitempty"`
	Journal               string          `json:"journal,omitempty"`
	JournalISSN           string          `json:"journal_issn,omitempty"`
	Publisher             string          `json:"publisher,omitempty"`
	ArticleStatus         string          `json:"article_status,omitempty"`
	PublicationType       string          `json:"publication_type,omitempty"`
	DOI                   string          `json:"doi,omitempty"`
	Comment               string          `json:"comment,omitempty"`
	Status                Status          `json:"status"`
}

// SubmittedAt parses the request key back into a time.
func (r FundingRequest) SubmittedAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}
