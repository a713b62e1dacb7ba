package legacy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/store"
)

var timeNow = time.Now

// FileReport counts what happened to the rows of one legacy file.
type FileReport struct {
	File     string `json:"file"`
	Missing  bool   `json:"missing,omitempty"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Repaired int    `json:"repaired"`
}

// ImportReport covers a whole legacy directory.
type ImportReport struct {
	Requests    FileReport `json:"requests"`
	Budget      FileReport `json:"budget"`
	URLs        FileReport `json:"urls"`
	Credentials FileReport `json:"credentials"`
}

// Files returns the per-file reports in import order.
func (r ImportReport) Files() []FileReport {
	return []FileReport{r.Requests, r.Budget, r.URLs, r.Credentials}
}

// Importer loads legacy CSV files into a store.
type Importer struct {
	store *store.Store
	log   logrus.FieldLogger
}

// NewImporter returns an Importer writing to st.
func NewImporter(st *store.Store, log logrus.FieldLogger) *Importer {
	return &Importer{store: st, log: log}
}

// ImportDir imports requests.csv, budget.csv, urls.csv and cred.csv from
// dir. Missing files are skipped. Row-level failures are counted in the
// report; only unreadable files abort the import.
func (im *Importer) ImportDir(ctx context.Context, dir string) (ImportReport, error) {
	var rep ImportReport
	steps := []struct {
		name string
		out  *FileReport
		fn   func(context.Context, io.Reader) (FileReport, error)
	}{
		{RequestsFile, &rep.Requests, im.ImportRequests},
		{BudgetFile, &rep.Budget, im.ImportLedger},
		{URLsFile, &rep.URLs, im.ImportURLs},
		{CredentialsFile, &rep.Credentials, im.ImportCredentials},
	}

	for _, step := range steps {
		path := filepath.Join(dir, step.name)
		//nolint:gosec // import dir is chosen by the local operator
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			im.log.WithField("file", path).Info("legacy file not found, skipping")
			*step.out = FileReport{File: step.name, Missing: true}
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("opening %s: %w", path, err)
		}

		fr, err := step.fn(ctx, f)
		_ = f.Close()
		fr.File = step.name
		*step.out = fr
		if err != nil {
			return rep, fmt.Errorf("importing %s: %w", path, err)
		}
		im.log.WithFields(logrus.Fields{
			"file":     step.name,
			"imported": fr.Imported,
			"skipped":  fr.Skipped,
			"repaired": fr.Repaired,
		}).Info("legacy file imported")
	}
	return rep, nil
}

// ImportRequests imports a legacy requests.csv.
func (im *Importer) ImportRequests(ctx context.Context, r io.Reader) (FileReport, error) {
	t, err := readTable(r, requestColumns, nil)
	if err != nil {
		return FileReport{}, err
	}

	var rep FileReport
	err = im.store.WithTx(ctx, func(tx *store.Store) error {
		for i, rec := range t.rows {
			req, repaired, err := t.requestRow(rec)
			if err != nil {
				im.skip(&rep, i, err)
				continue
			}
			if err := tx.InsertRequest(ctx, req); err != nil {
				if !errors.Is(err, store.ErrDuplicate) {
					return err
				}
				im.skip(&rep, i, err)
				continue
			}
			rep.Imported++
			if repaired {
				rep.Repaired++
			}
		}
		return nil
	})
	return rep, err
}

// ImportLedger imports a legacy budget.csv, keeping row order.
func (im *Importer) ImportLedger(ctx context.Context, r io.Reader) (FileReport, error) {
	t, err := readTable(r, budgetColumns, map[string]int{
		"total":         budTotal,
		"change amount": budChange,
		"running total": budRunning,
	})
	if err != nil {
		return FileReport{}, err
	}

	var rep FileReport
	err = im.store.WithTx(ctx, func(tx *store.Store) error {
		for i, rec := range t.rows {
			e, repaired, err := t.ledgerRow(rec)
			if err != nil {
				im.skip(&rep, i, err)
				continue
			}
			if _, err := tx.AppendLedger(ctx, e); err != nil {
				return err
			}
			rep.Imported++
			if repaired {
				rep.Repaired++
			}
		}
		return nil
	})
	return rep, err
}

// ImportURLs imports a legacy urls.csv. Rows without a url or email are
// skipped. Rows without a timestamp get the import time.
func (im *Importer) ImportURLs(ctx context.Context, r io.Reader) (FileReport, error) {
	t, err := readTable(r, urlColumns, map[string]int{"email address": 2})
	if err != nil {
		return FileReport{}, err
	}

	var rep FileReport
	err = im.store.WithTx(ctx, func(tx *store.Store) error {
		for i, rec := range t.rows {
			u := model.SubmittedURL{
				Timestamp: t.field(rec, 0),
				URL:       t.field(rec, 1),
				Email:     t.field(rec, 2),
			}
			if u.URL == "" || u.Email == "" {
				im.skip(&rep, i, errors.New("missing url or email"))
				continue
			}
			if u.Timestamp == "" {
				u.Timestamp = model.FormatTimestamp(timeNow())
				rep.Repaired++
			}
			if _, err := tx.AddURL(ctx, u); err != nil {
				return err
			}
			rep.Imported++
		}
		return nil
	})
	return rep, err
}

// ImportCredentials imports a legacy cred.csv of id,pass_hashed rows.
func (im *Importer) ImportCredentials(ctx context.Context, r io.Reader) (FileReport, error) {
	t, err := readTable(r, credentialColumns, nil)
	if err != nil {
		return FileReport{}, err
	}

	var rep FileReport
	err = im.store.WithTx(ctx, func(tx *store.Store) error {
		for i, rec := range t.rows {
			c := model.Credential{ID: t.field(rec, 0), PasswordHash: t.field(rec, 1)}
			if c.ID == "" || c.PasswordHash == "" {
				im.skip(&rep, i, errors.New("missing id or hash"))
				continue
			}
			if err := tx.PutCredential(ctx, c); err != nil {
				return err
			}
			rep.Imported++
		}
		return nil
	})
	return rep, err
}

func (im *Importer) skip(rep *FileReport, i int, err error) {
	rep.Skipped++
	// +2: one for the header, one for 1-based line numbers.
	im.log.WithError(err).WithField("row", i+2).Warn("skipping legacy row")
}
