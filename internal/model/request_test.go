package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusDenied, true},
		{StatusSubmitted, StatusPaid, false},
		{StatusSubmitted, StatusCancelled, false},
		{StatusApproved, StatusPaid, true},
		{StatusApproved, StatusPaymentPlanned, true},
		{StatusApproved, StatusCancelled, true},
		{StatusApproved, StatusDenied, false},
		{StatusPaymentPlanned, StatusPaid, true},
		{StatusPaymentPlanned, StatusCancelled, false},
		{StatusDenied, StatusApproved, false},
		{StatusPaid, StatusCancelled, false},
		{StatusCancelled, StatusApproved, false},
		{" submitted ", StatusApproved, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%q -> %q", tt.from, tt.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusDenied.Terminal())
	assert.True(t, StatusPaid.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusSubmitted.Terminal())
	assert.False(t, StatusPaymentPlanned.Terminal())
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
		ok   bool
	}{
		{"", StatusSubmitted, true},
		{"submitted", StatusSubmitted, true},
		{"approved", StatusApproved, true},
		{" APPROVED\r", StatusApproved, true},
		{"CACNELLED", StatusCancelled, true},
		{"TRANSACTIONS_PLANNED", StatusPaymentPlanned, true},
		{"TRANSACTION PLANNED", StatusPaymentPlanned, true},
		{"paid", StatusPaid, true},
		{"on hold", Status("on hold"), false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.raw)
		assert.Equal(t, tt.want, got, "ParseStatus(%q)", tt.raw)
		assert.Equal(t, tt.ok, ok, "ParseStatus(%q) ok", tt.raw)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2025, 8, 6, 18, 47, 6, 370_000_000, time.UTC)
	assert.Equal(t, "2025-08-06T18:47:06.370Z", FormatTimestamp(ts))

	r := FundingRequest{Timestamp: FormatTimestamp(ts)}
	back, err := r.SubmittedAt()
	assert.NoError(t, err)
	assert.True(t, back.Equal(ts))
}

func TestLedgerEntryCommitted(t *testing.T) {
	e := LedgerEntry{
		TotalAmount:  decimal.NewFromInt(100000),
		RunningTotal: decimal.RequireFromString("87500.50"),
	}
	assert.Equal(t, "12499.5", e.Committed().String())
}
