package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/theirongolddev/oafund/internal/model"
)

const ledgerColumns = `id, timestamp, total_amount, change_amount, reason, running_total, running_total_change`

// AppendLedger inserts a new ledger snapshot and returns its row id.
// Ledger rows are never updated or deleted.
func (s *Store) AppendLedger(ctx context.Context, e model.LedgerEntry) (int64, error) {
	res, err := s.q.ExecContext(ctx, `INSERT INTO budget
		(timestamp, total_amount, change_amount, reason, running_total, running_total_change)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Timestamp, e.TotalAmount.String(), e.ChangeAmount.String(), e.Reason,
		e.RunningTotal.String(), e.RunningTotalChange.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("appending ledger entry: %w", err)
	}
	return res.LastInsertId()
}

// LatestLedger returns the snapshot with the greatest (timestamp, id).
// ok is false when the ledger is empty.
func (s *Store) LatestLedger(ctx context.Context) (e model.LedgerEntry, ok bool, err error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM budget
		ORDER BY timestamp DESC, id DESC LIMIT 1`)
	e, err = scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LedgerEntry{}, false, nil
	}
	if err != nil {
		return model.LedgerEntry{}, false, fmt.Errorf("reading latest ledger entry: %w", err)
	}
	return e, true, nil
}

// LedgerHistory returns up to limit snapshots, newest first.
// A limit of zero or less returns the whole ledger.
func (s *Store) LedgerHistory(ctx context.Context, limit int) ([]model.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM budget ORDER BY timestamp DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanLedger(row rowScanner) (model.LedgerEntry, error) {
	var (
		e                                    model.LedgerEntry
		total, change, running, runningDelta string
	)
	if err := row.Scan(&e.ID, &e.Timestamp, &total, &change, &e.Reason, &running, &runningDelta); err != nil {
		return e, err
	}

	var err error
	if e.TotalAmount, err = parseAmount("total_amount", total); err != nil {
		return e, err
	}
	if e.ChangeAmount, err = parseAmount("change_amount", change); err != nil {
		return e, err
	}
	if e.RunningTotal, err = parseAmount("running_total", running); err != nil {
		return e, err
	}
	if e.RunningTotalChange, err = parseAmount("running_total_change", runningDelta); err != nil {
		return e, err
	}
	return e, nil
}
