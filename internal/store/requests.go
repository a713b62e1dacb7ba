package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/oafund/internal/model"
)

const requestColumns = `timestamp, email_address, title_of_article, amount_requested,
	corresponding_author_name, corresponding_author_orcid,
	collaborating_author_list, collaborating_author_orcid_list,
	title_of_journal, journal_issn, publisher, article_status,
	publication_type, doi, comment, oa_fund_status`

// RequestFilter narrows ListRequests. Zero values match everything.
type RequestFilter struct {
	Status model.Status
	Email  string
}

// InsertRequest stores a new request. It returns ErrDuplicate if the
// timestamp key is already taken.
func (s *Store) InsertRequest(ctx context.Context, r model.FundingRequest) error {
	res, err := s.q.ExecContext(ctx, `INSERT INTO requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(timestamp) DO NOTHING`,
		r.Timestamp, r.Email, r.Title, r.Amount.String(),
		r.AuthorName, r.AuthorORCID,
		r.CollaboratorList, r.CollaboratorORCIDList,
		r.Journal, r.JournalISSN, r.Publisher, r.ArticleStatus,
		r.PublicationType, r.DOI, r.Comment, string(r.Status),
	)
	if err != nil {
		return fmt.Errorf("inserting request %s: %w", r.Timestamp, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("request %s: %w", r.Timestamp, ErrDuplicate)
	}
	return nil
}

// GetRequest loads one request by its timestamp key.
func (s *Store) GetRequest(ctx context.Context, timestamp string) (model.FundingRequest, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE timestamp = ?`, timestamp)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FundingRequest{}, fmt.Errorf("request %s: %w", timestamp, ErrNotFound)
	}
	return r, err
}

// ListRequests returns matching requests, newest first.
func (s *Store) ListRequests(ctx context.Context, f RequestFilter) ([]model.FundingRequest, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "oa_fund_status = ?")
		args = append(args, string(f.Status))
	}
	if f.Email != "" {
		where = append(where, "email_address = ? COLLATE NOCASE")
		args = append(args, f.Email)
	}

	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.FundingRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRequest overwrites the descriptive fields of an existing request.
// The status column is left alone; use SetStatus for that.
func (s *Store) UpdateRequest(ctx context.Context, r model.FundingRequest) error {
	res, err := s.q.ExecContext(ctx, `UPDATE requests SET
		email_address = ?, title_of_article = ?, amount_requested = ?,
		corresponding_author_name = ?, corresponding_author_orcid = ?,
		collaborating_author_list = ?, collaborating_author_orcid_list = ?,
		title_of_journal = ?, journal_issn = ?, publisher = ?, article_status = ?,
		publication_type = ?, doi = ?, comment = ?
		WHERE timestamp = ?`,
		r.Email, r.Title, r.Amount.String(),
		r.AuthorName, r.AuthorORCID,
		r.CollaboratorList, r.CollaboratorORCIDList,
		r.Journal, r.JournalISSN, r.Publisher, r.ArticleStatus,
		r.PublicationType, r.DOI, r.Comment,
		r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("updating request %s: %w", r.Timestamp, err)
	}
	return requireOneRow(res, r.Timestamp)
}

// SetStatus changes the OA fund status of a request.
func (s *Store) SetStatus(ctx context.Context, timestamp string, status model.Status) error {
	res, err := s.q.ExecContext(ctx, `UPDATE requests SET oa_fund_status = ? WHERE timestamp = ?`,
		string(status), timestamp)
	if err != nil {
		return fmt.Errorf("setting status of %s: %w", timestamp, err)
	}
	return requireOneRow(res, timestamp)
}

// CountByStatus returns the number of requests in each status.
func (s *Store) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT oa_fund_status, COUNT(*) FROM requests GROUP BY oa_fund_status`)
	if err != nil {
		return nil, fmt.Errorf("counting requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.Status(strings.TrimSpace(status))] += n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (model.FundingRequest, error) {
	var r model.FundingRequest
	var amount, status string
	err := row.Scan(
		&r.Timestamp, &r.Email, &r.Title, &amount,
		&r.AuthorName, &r.AuthorORCID,
		&r.CollaboratorList, &r.CollaboratorORCIDList,
		&r.Journal, &r.JournalISSN, &r.Publisher, &r.ArticleStatus,
		&r.PublicationType, &r.DOI, &r.Comment, &status,
	)
	if err != nil {
		return r, err
	}
	r.Status = model.Status(strings.TrimSpace(status))
	r.Amount, err = parseAmount("amount_requested", amount)
	return r, err
}

func requireOneRow(res sql.Result, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("request %s: %w", key, ErrNotFound)
	}
	return nil
}
