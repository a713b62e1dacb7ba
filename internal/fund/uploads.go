package fund

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/oafund/internal/model"
)

// ErrTooLarge is returned when an upload exceeds its size limit.
var ErrTooLarge = errors.New("upload too large")

// AddURL records a link sent in by an author.
func (s *Service) AddURL(ctx context.Context, rawURL, email string) (model.SubmittedURL, error) {
	rawURL = strings.TrimSpace(rawURL)
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return model.SubmittedURL{}, err
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return model.SubmittedURL{}, fmt.Errorf("url %q: %w", rawURL, ErrInvalidInput)
	}

	rec := model.SubmittedURL{
		Timestamp: model.FormatTimestamp(s.now()),
		URL:       rawURL,
		Email:     email,
	}
	if rec.ID, err = s.store.AddURL(ctx, rec); err != nil {
		return model.SubmittedURL{}, err
	}
	s.log.WithFields(logrus.Fields{"url": rawURL, "email": email}).Info("url submitted")
	return rec, nil
}

// ListURLs returns all submitted links, newest first.
func (s *Service) ListURLs(ctx context.Context) ([]model.SubmittedURL, error) {
	return s.store.ListURLs(ctx)
}

// Upload describes an incoming file.
type Upload struct {
	Email            string
	OriginalFilename string
	Body             io.Reader
	MaxBytes         int64
}

// AddFile copies an upload into dir under a generated name and records it.
// The original extension is kept so the file opens with the right tool.
func (s *Service) AddFile(ctx context.Context, dir string, up Upload) (model.StoredFile, error) {
	email := strings.TrimSpace(up.Email)
	if err := validateEmail(email); err != nil {
		return model.StoredFile{}, err
	}
	original := filepath.Base(strings.TrimSpace(up.OriginalFilename))
	if original == "." || original == string(filepath.Separator) {
		return model.StoredFile{}, fmt.Errorf("missing filename: %w", ErrInvalidInput)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return model.StoredFile{}, fmt.Errorf("creating upload dir: %w", err)
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(original))
	path := filepath.Join(dir, name)

	//nolint:gosec // path is built from a generated name inside the configured dir
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return model.StoredFile{}, fmt.Errorf("creating %s: %w", name, err)
	}

	body := up.Body
	if up.MaxBytes > 0 {
		body = io.LimitReader(up.Body, up.MaxBytes+1)
	}
	size, err := io.Copy(out, body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && up.MaxBytes > 0 && size > up.MaxBytes {
		err = fmt.Errorf("%s exceeds %d bytes: %w", original, up.MaxBytes, ErrTooLarge)
	}
	if err != nil {
		_ = os.Remove(path)
		return model.StoredFile{}, err
	}

	rec := model.StoredFile{
		Timestamp:        model.FormatTimestamp(s.now()),
		Filename:         name,
		OriginalFilename: original,
		Email:            email,
		Size:             size,
		Path:             path,
	}
	if rec.ID, err = s.store.AddFile(ctx, rec); err != nil {
		_ = os.Remove(path)
		return model.StoredFile{}, err
	}
	s.log.WithFields(logrus.Fields{
		"file":  name,
		"email": email,
		"size":  size,
	}).Info("file uploaded")
	return rec, nil
}

// ListFiles returns uploads, optionally only those from email.
func (s *Service) ListFiles(ctx context.Context, email string) ([]model.StoredFile, error) {
	return s.store.ListFiles(ctx, strings.TrimSpace(email))
}

// FileByName looks up an upload by its stored name.
func (s *Service) FileByName(ctx context.Context, name string) (model.StoredFile, error) {
	return s.store.FileByName(ctx, filepath.Base(name))
}
