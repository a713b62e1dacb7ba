package legacy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/theirongolddev/oafund/internal/store"
)

// ExportDir writes requests.csv and budget.csv into dir. Requests are
// written oldest first, as the legacy app appended them; the ledger
// likewise.
func ExportDir(ctx context.Context, st *store.Store, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	reqs, err := st.ListRequests(ctx, store.RequestFilter{})
	if err != nil {
		return err
	}
	slices.Reverse(reqs)
	if err := writeFile(filepath.Join(dir, RequestsFile), func(f *os.File) error {
		return WriteRequests(f, reqs)
	}); err != nil {
		return err
	}

	ledger, err := st.LedgerHistory(ctx, 0)
	if err != nil {
		return err
	}
	slices.Reverse(ledger)
	return writeFile(filepath.Join(dir, BudgetFile), func(f *os.File) error {
		return WriteLedger(f, ledger)
	})
}

func writeFile(path string, fn func(*os.File) error) error {
	//nolint:gosec // export dir is chosen by the local operator
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
