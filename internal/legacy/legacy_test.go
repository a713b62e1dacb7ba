package legacy

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/store"
)

const requestsHeader = "Timestamp,Email Address,Title of Article / Chapter / Book,Amount requested," +
	"Corresponding Author Name,Corresponding Author ORCiD,Collaborating Author List," +
	"Collaborating Author ORCiD List (Optional),Title of Journal,Journal ISSN,Publisher," +
	"Article Status,Publication Type,DOI (if applicable),Comment to library publishing team,OA fund status"

func newImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewImporter(st, log), st
}

func TestImportRequestsRepairs(t *testing.T) {
	im, st := newImporter(t)
	ctx := context.Background()

	csv := strings.Join([]string{
		requestsHeader,
		// Clean row.
		"2025-01-01T00:00:00.000Z,a@x.edu,Paper A,1500,Ann,,,,J1,1234-5678,Pub,Accepted,Article,10.1/a,none,APPROVED\r",
		// Comment split by a naive join, typo'd status.
		"2025-01-02T00:00:00.000Z,b@x.edu,Paper B,200,Bob,,,,J2,,Pub,Accepted,Article,,thanks, see you, soon,CACNELLED",
		"",
		// Short row, bad amount.
		"2025-01-03T00:00:00.000Z,c@x.edu,Paper C,lots",
		// No timestamp.
		",d@x.edu,Paper D,10,Dee,,,,,,,,,,,submitted",
		// Duplicate key.
		"2025-01-01T00:00:00.000Z,a@x.edu,Paper A,1500,Ann,,,,J1,1234-5678,Pub,Accepted,Article,10.1/a,none,APPROVED",
	}, "\n")

	rep, err := im.ImportRequests(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Imported)
	assert.Equal(t, 2, rep.Skipped)
	assert.Equal(t, 2, rep.Repaired)

	a, err := st.GetRequest(ctx, "2025-01-01T00:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, a.Status)
	assert.Equal(t, "1500", a.Amount.String())

	b, err := st.GetRequest(ctx, "2025-01-02T00:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, "thanks, see you, soon", b.Comment)
	assert.Equal(t, model.StatusCancelled, b.Status)

	c, err := st.GetRequest(ctx, "2025-01-03T00:00:00.000Z")
	require.NoError(t, err)
	assert.True(t, c.Amount.IsZero())
	assert.Equal(t, model.StatusSubmitted, c.Status)
}

func TestImportLedgerRepairsReason(t *testing.T) {
	im, st := newImporter(t)
	ctx := context.Background()

	csv := "Timestamp,Total Amount,Change,Reason,RunningTotal,RunningTotalChange\n" +
		"2025-01-01T00:00:00.000Z,100000,100000,set budget,100000,100000\n" +
		"2025-01-02T00:00:00.000Z,100000,0,approved, paper B, finally,99800,-200\n" +
		"2025-01-03T00:00:00.000Z,$1x,0\n"

	rep, err := im.ImportLedger(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Imported)
	assert.Equal(t, 2, rep.Repaired)

	hist, err := st.LedgerHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, "approved, paper B, finally", hist[1].Reason)
	assert.Equal(t, "99800", hist[1].RunningTotal.String())
	assert.Equal(t, "-200", hist[1].RunningTotalChange.String())
	assert.True(t, hist[0].TotalAmount.IsZero())
}

func TestImportShortLedgerHeaderKeepsCommaReason(t *testing.T) {
	im, st := newImporter(t)
	ctx := context.Background()

	csv := "Timestamp,Total Amount,Change,Reason\n" +
		"2025-01-01T00:00:00.000Z,100000,100000,set budget\n" +
		"2025-01-02T00:00:00.000Z,99000,-1000,coffee, snacks\n"

	rep, err := im.ImportLedger(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Imported)
	assert.Equal(t, 0, rep.Skipped)
	assert.Equal(t, 1, rep.Repaired)

	hist, err := st.LedgerHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "coffee, snacks", hist[0].Reason)
	assert.Equal(t, "99000", hist[0].TotalAmount.String())
	assert.Equal(t, "-1000", hist[0].ChangeAmount.String())
	assert.Equal(t, "set budget", hist[1].Reason)
}

func TestImportSnakeCaseHeaders(t *testing.T) {
	im, st := newImporter(t)
	ctx := context.Background()

	csv := "oa_fund_status,timestamp,email_address,amount_requested\n" +
		"PAID,2025-01-01T00:00:00.000Z,a@x.edu,42.50\n"
	rep, err := im.ImportRequests(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Imported)
	assert.Equal(t, 0, rep.Repaired)

	r, err := st.GetRequest(ctx, "2025-01-01T00:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, r.Status)
	assert.Equal(t, "42.5", r.Amount.String())
}

func TestImportUnknownHeader(t *testing.T) {
	im, _ := newImporter(t)
	_, err := im.ImportRequests(context.Background(), strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, errBadHeader)
}

func TestImportDir(t *testing.T) {
	im, st := newImporter(t)
	ctx := context.Background()
	dir := t.TempDir()

	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	write(URLsFile, "Timestamp,Url,Email Address\n,https://doi.org/10.1/x,a@x.edu\n2025-01-01T00:00:00.000Z,,b@x.edu\n")
	write(CredentialsFile, "id,pass_hashed\nstaff,aa:bb\n,cc:dd\n")

	rep, err := im.ImportDir(ctx, dir)
	require.NoError(t, err)
	assert.True(t, rep.Requests.Missing)
	assert.True(t, rep.Budget.Missing)
	assert.Equal(t, 1, rep.URLs.Imported)
	assert.Equal(t, 1, rep.URLs.Skipped)
	assert.Equal(t, 1, rep.URLs.Repaired)
	assert.Equal(t, 1, rep.Credentials.Imported)
	assert.Equal(t, 1, rep.Credentials.Skipped)
	assert.Len(t, rep.Files(), 4)

	c, err := st.GetCredential(ctx, "staff")
	require.NoError(t, err)
	assert.Equal(t, "aa:bb", c.PasswordHash)
}

func TestExportRoundTrip(t *testing.T) {
	im, st := newImporter(t)
	ctx := context.Background()

	src := requestsHeader + "\n" +
		"2025-01-01T00:00:00.000Z,a@x.edu,Paper A,1500,Ann,,,,J1,,Pub,,,,\"quoted, comma\",submitted\n" +
		"2025-01-02T00:00:00.000Z,b@x.edu,Paper B,20,Bob,,,,J2,,Pub,,,,,DENIED\n"
	_, err := im.ImportRequests(ctx, strings.NewReader(src))
	require.NoError(t, err)
	_, err = im.ImportLedger(ctx, strings.NewReader(
		"Timestamp,Total Amount,Change,Reason,RunningTotal,RunningTotalChange\n"+
			"2025-01-01T00:00:00.000Z,10,10,set budget,10,10\n"))
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, ExportDir(ctx, st, dir))

	data, err := os.ReadFile(filepath.Join(dir, RequestsFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, requestsHeader, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2025-01-01T00:00:00.000Z,"), "oldest first")
	assert.Contains(t, lines[1], `"quoted, comma"`)

	// A fresh store reads the export back unchanged.
	im2, st2 := newImporter(t)
	rep, err := im2.ImportDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Requests.Imported)
	assert.Equal(t, 0, rep.Requests.Repaired)
	assert.Equal(t, 1, rep.Budget.Imported)

	r, err := st2.GetRequest(ctx, "2025-01-01T00:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, "quoted, comma", r.Comment)
}

func TestWriteLedgerHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLedger(&buf, nil))
	assert.Equal(t, "Timestamp,Total Amount,Change,Reason,RunningTotal,RunningTotalChange\n", buf.String())
}
