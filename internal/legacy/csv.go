// Package legacy reads and writes the flat CSV files the fund used before
// the SQLite database, repairing the malformed rows they tend to contain.
package legacy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/oafund/internal/model"
)

// Legacy file names inside an import/export directory.
const (
	RequestsFile    = "requests.csv"
	BudgetFile      = "budget.csv"
	URLsFile        = "urls.csv"
	CredentialsFile = "cred.csv"
)

// column pairs a legacy display header with its database column name.
type column struct {
	display string
	key     string
}

var requestColumns = []column{
	{"Timestamp", "timestamp"},
	{"Email Address", "email_address"},
	{"Title of Article / Chapter / Book", "title_of_article"},
	{"Amount requested", "amount_requested"},
	{"Corresponding Author Name", "corresponding_author_name"},
	{"Corresponding Author ORCiD", "corresponding_author_orcid"},
	{"Collaborating Author List", "collaborating_author_list"},
	{"Collaborating Author ORCiD List (Optional)", "collaborating_author_orcid_list"},
	{"Title of Journal", "title_of_journal"},
	{"Journal ISSN", "journal_issn"},
	{"Publisher", "publisher"},
	{"Article Status", "article_status"},
	{"Publication Type", "publication_type"},
	{"DOI (if applicable)", "doi"},
	{"Comment to library publishing team", "comment"},
	{"OA fund status", "oa_fund_status"},
}

const (
	reqTimestamp = iota
	reqEmail
	reqTitle
	reqAmount
	reqAuthor
	reqAuthorORCID
	reqCollaborators
	reqCollaboratorORCIDs
	reqJournal
	reqISSN
	reqPublisher
	reqArticleStatus
	reqPubType
	reqDOI
	reqComment
	reqStatus
)

var budgetColumns = []column{
	{"Timestamp", "timestamp"},
	{"Total Amount", "total_amount"},
	{"Change", "change_amount"},
	{"Reason", "reason"},
	{"RunningTotal", "running_total"},
	{"RunningTotalChange", "running_total_change"},
}

const (
	budTimestamp = iota
	budTotal
	budChange
	budReason
	budRunning
	budRunningChange
)

var urlColumns = []column{
	{"Timestamp", "timestamp"},
	{"URL", "url"},
	{"Email", "email"},
}

var credentialColumns = []column{
	{"id", "id"},
	{"pass_hashed", "pass_hashed"},
}

// errBadHeader is returned when a file's header names none of the
// expected columns.
var errBadHeader = errors.New("unrecognised header")

// table is a parsed legacy file: header positions plus raw rows. Fields
// are cleaned when read, so overflow repairs can re-join the original text.
type table struct {
	// index[i] is the position of columns[i] in each row, or -1.
	index []int
	// canonical is true when the header lists the columns in their
	// original order, which is what the overflow repair relies on.
	canonical bool
	width     int
	rows      [][]string
}

// readTable parses r leniently. Rows keep whatever field count they had.
func readTable(r io.Reader, cols []column, aliases map[string]int) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &table{index: make([]int, len(cols))}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	t := &table{index: make([]int, len(cols)), width: len(header), canonical: true}
	for i := range t.index {
		t.index[i] = -1
	}
	found := 0
	for pos, h := range header {
		i, ok := matchHeader(cleanField(h), cols, aliases)
		if !ok || t.index[i] >= 0 {
			continue
		}
		t.index[i] = pos
		found++
	}
	if found == 0 {
		return nil, fmt.Errorf("%w: %q", errBadHeader, strings.Join(header, ","))
	}
	for i, pos := range t.index {
		if pos != i {
			t.canonical = false
			break
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if blank(rec) {
			continue
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func matchHeader(h string, cols []column, aliases map[string]int) (int, bool) {
	h = strings.ToLower(h)
	for i, c := range cols {
		if h == strings.ToLower(c.display) || h == c.key {
			return i, true
		}
	}
	i, ok := aliases[h]
	return i, ok
}

// cleanField trims whitespace, stray carriage returns and a UTF-8 BOM.
func cleanField(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(s)
}

func blank(rec []string) bool {
	for _, f := range rec {
		if cleanField(f) != "" {
			return false
		}
	}
	return true
}

// field returns column i of rec, or "" when the column is absent.
func (t *table) field(rec []string, i int) string {
	pos := t.index[i]
	if pos < 0 || pos >= len(rec) {
		return ""
	}
	return cleanField(rec[pos])
}

// joinOverflow rebuilds free text that a naive comma join split apart.
func joinOverflow(parts []string) string {
	return cleanField(strings.Join(parts, ","))
}

// requestRow maps one legacy row onto a FundingRequest. repaired is true
// when the row needed fixing: overflow folded into the comment, padding,
// an unknown status, or an unreadable amount.
func (t *table) requestRow(rec []string) (r model.FundingRequest, repaired bool, err error) {
	n := len(requestColumns)
	switch {
	case len(rec) > t.width && t.canonical && t.width == n:
		// Naive comma joins split free text. Fields before the comment
		// are fixed, the last field is the status, the rest is comment.
		fixed := make([]string, n)
		copy(fixed, rec[:reqComment])
		fixed[reqComment] = joinOverflow(rec[reqComment : len(rec)-1])
		fixed[reqStatus] = rec[len(rec)-1]
		rec = fixed
		repaired = true
	case len(rec) > t.width:
		return r, false, fmt.Errorf("row has %d fields, header has %d", len(rec), t.width)
	case len(rec) < t.width:
		repaired = true
	}

	r = model.FundingRequest{
		Timestamp:             t.field(rec, reqTimestamp),
		Email:                 t.field(rec, reqEmail),
		Title:                 t.field(rec, reqTitle),
		AuthorName:            t.field(rec, reqAuthor),
		AuthorORCID:           t.field(rec, reqAuthorORCID),
		CollaboratorList:      t.field(rec, reqCollaborators),
		CollaboratorORCIDList: t.field(rec, reqCollaboratorORCIDs),
		Journal:               t.field(rec, reqJournal),
		JournalISSN:           t.field(rec, reqISSN),
		Publisher:             t.field(rec, reqPublisher),
		ArticleStatus:         t.field(rec, reqArticleStatus),
		PublicationType:       t.field(rec, reqPubType),
		DOI:                   t.field(rec, reqDOI),
		Comment:               t.field(rec, reqComment),
	}
	if r.Timestamp == "" {
		return r, false, errors.New("missing timestamp")
	}

	status, ok := model.ParseStatus(t.field(rec, reqStatus))
	if !ok {
		status = model.StatusSubmitted
		repaired = true
	}
	r.Status = status

	var fixedAmount bool
	r.Amount, fixedAmount = parseMoney(t.field(rec, reqAmount))
	return r, repaired || fixedAmount, nil
}

// ledgerRow maps one legacy budget row onto a LedgerEntry. Overflow
// fields belong to the free-text reason.
func (t *table) ledgerRow(rec []string) (e model.LedgerEntry, repaired bool, err error) {
	n := len(budgetColumns)
	reasonPos := t.index[budReason]
	switch {
	case len(rec) > t.width && t.canonical && t.width == n:
		fixed := make([]string, n)
		copy(fixed, rec[:budReason])
		fixed[budReason] = joinOverflow(rec[budReason : len(rec)-2])
		fixed[budRunning] = rec[len(rec)-2]
		fixed[budRunningChange] = rec[len(rec)-1]
		rec = fixed
		repaired = true
	case len(rec) > t.width && reasonPos == t.width-1:
		// Older files stop at the reason column, so the whole tail is reason.
		fixed := make([]string, t.width)
		copy(fixed, rec[:reasonPos])
		fixed[reasonPos] = joinOverflow(rec[reasonPos:])
		rec = fixed
		repaired = true
	case len(rec) > t.width:
		return e, false, fmt.Errorf("row has %d fields, header has %d", len(rec), t.width)
	case len(rec) < t.width:
		repaired = true
	}

	e.Timestamp = t.field(rec, budTimestamp)
	if e.Timestamp == "" {
		return e, false, errors.New("missing timestamp")
	}
	e.Reason = t.field(rec, budReason)

	var bad [4]bool
	e.TotalAmount, bad[0] = parseMoney(t.field(rec, budTotal))
	e.ChangeAmount, bad[1] = parseMoney(t.field(rec, budChange))
	e.RunningTotal, bad[2] = parseMoney(t.field(rec, budRunning))
	e.RunningTotalChange, bad[3] = parseMoney(t.field(rec, budRunningChange))
	for _, b := range bad {
		repaired = repaired || b
	}
	return e, repaired, nil
}

// parseMoney reads an amount like "1500", "$1,500.00" or "". Unreadable
// values become zero and report fixed=true. Empty is zero and not a fix.
func parseMoney(raw string) (d decimal.Decimal, fixed bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, true
	}
	return d, false
}

func requestRecord(r model.FundingRequest) []string {
	rec := make([]string, len(requestColumns))
	rec[reqTimestamp] = r.Timestamp
	rec[reqEmail] = r.Email
	rec[reqTitle] = r.Title
	rec[reqAmount] = r.Amount.String()
	rec[reqAuthor] = r.AuthorName
	rec[reqAuthorORCID] = r.AuthorORCID
	rec[reqCollaborators] = r.CollaboratorList
	rec[reqCollaboratorORCIDs] = r.CollaboratorORCIDList
	rec[reqJournal] = r.Journal
	rec[reqISSN] = r.JournalISSN
	rec[reqPublisher] = r.Publisher
	rec[reqArticleStatus] = r.ArticleStatus
	rec[reqPubType] = r.PublicationType
	rec[reqDOI] = r.DOI
	rec[reqComment] = r.Comment
	rec[reqStatus] = string(r.Status)
	return rec
}

func ledgerRecord(e model.LedgerEntry) []string {
	rec := make([]string, len(budgetColumns))
	rec[budTimestamp] = e.Timestamp
	rec[budTotal] = e.TotalAmount.String()
	rec[budChange] = e.ChangeAmount.String()
	rec[budReason] = e.Reason
	rec[budRunning] = e.RunningTotal.String()
	rec[budRunningChange] = e.RunningTotalChange.String()
	return rec
}

func headerOf(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.display
	}
	return out
}

// WriteRequests writes requests as a legacy requests.csv, header included.
func WriteRequests(w io.Writer, reqs []model.FundingRequest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headerOf(requestColumns)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range reqs {
		if err := cw.Write(requestRecord(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLedger writes ledger entries as a legacy budget.csv, header included.
// Entries are written in the order given.
func WriteLedger(w io.Writer, entries []model.LedgerEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headerOf(budgetColumns)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write(ledgerRecord(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
