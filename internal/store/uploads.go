package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/theirongolddev/oafund/internal/model"
)

// AddURL records a link submitted by an author.
func (s *Store) AddURL(ctx context.Context, u model.SubmittedURL) (int64, error) {
	res, err := s.q.ExecContext(ctx, `INSERT INTO urls (timestamp, url, email) VALUES (?, ?, ?)`,
		u.Timestamp, u.URL, u.Email)
	if err != nil {
		return 0, fmt.Errorf("inserting url: %w", err)
	}
	return res.LastInsertId()
}

// ListURLs returns all submitted links, newest first.
func (s *Store) ListURLs(ctx context.Context) ([]model.SubmittedURL, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, timestamp, url, email FROM urls ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing urls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.SubmittedURL
	for rows.Next() {
		var u model.SubmittedURL
		if err := rows.Scan(&u.ID, &u.Timestamp, &u.URL, &u.Email); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AddFile records an uploaded file. The stored filename must be unique.
func (s *Store) AddFile(ctx context.Context, f model.StoredFile) (int64, error) {
	res, err := s.q.ExecContext(ctx, `INSERT INTO files
		(timestamp, filename, original_filename, email, file_size, file_path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO NOTHING`,
		f.Timestamp, f.Filename, f.OriginalFilename, f.Email, f.Size, f.Path)
	if err != nil {
		return 0, fmt.Errorf("inserting file %s: %w", f.Filename, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("file %s: %w", f.Filename, ErrDuplicate)
	}
	return res.LastInsertId()
}

const fileColumns = `id, timestamp, filename, original_filename, email, file_size, file_path`

// ListFiles returns uploaded files, newest first. A non-empty email
// restricts the list to that submitter.
func (s *Store) ListFiles(ctx context.Context, email string) ([]model.StoredFile, error) {
	query := `SELECT ` + fileColumns + ` FROM files`
	var args []any
	if email != "" {
		query += ` WHERE email = ? COLLATE NOCASE`
		args = append(args, email)
	}
	query += ` ORDER BY timestamp DESC, id DESC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.StoredFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FileByName looks up an upload by its stored filename.
func (s *Store) FileByName(ctx context.Context, name string) (model.StoredFile, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE filename = ?`, name)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoredFile{}, fmt.Errorf("file %s: %w", name, ErrNotFound)
	}
	return f, err
}

func scanFile(row rowScanner) (model.StoredFile, error) {
	var f model.StoredFile
	err := row.Scan(&f.ID, &f.Timestamp, &f.Filename, &f.OriginalFilename, &f.Email, &f.Size, &f.Path)
	return f, err
}

// PutCredential creates or replaces a staff login.
func (s *Store) PutCredential(ctx context.Context, c model.Credential) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO credentials (id, pass_hashed) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET pass_hashed = excluded.pass_hashed`,
		c.ID, c.PasswordHash)
	if err != nil {
		return fmt.Errorf("storing credential %s: %w", c.ID, err)
	}
	return nil
}

// GetCredential loads a staff login by id.
func (s *Store) GetCredential(ctx context.Context, id string) (model.Credential, error) {
	var c model.Credential
	err := s.q.QueryRowContext(ctx, `SELECT id, pass_hashed FROM credentials WHERE id = ?`, id).
		Scan(&c.ID, &c.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("credential %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("reading credential %s: %w", id, err)
	}
	return c, nil
}

// ListCredentials returns the ids of all staff logins.
func (s *Store) ListCredentials(ctx context.Context) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id FROM credentials ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
