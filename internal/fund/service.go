// Package fund implements the OA fund request workflow and budget ledger rules
// on top of the store.
package fund

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/store"
)

var (
	ErrNotFound          = store.ErrNotFound
	ErrDuplicate         = store.ErrDuplicate
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAmountLocked      = errors.New("amount can only change while a request is submitted")
)

// maxSubmitAttempts bounds the +1ms retries when two submissions land on
// the same millisecond.
const maxSubmitAttempts = 5

// Event types published by the service.
const (
	EventSubmitted = "request_submitted"
	EventUpdated   = "request_updated"
	EventStatus    = "status_changed"
	EventLedger    = "ledger_appended"
)

// Event describes a change to a request or the ledger.
type Event struct {
	ID        int64                 `json:"id"`
	Type      string                `json:"type"`
	Timestamp time.Time             `json:"timestamp"`
	Actor     string                `json:"actor,omitempty"`
	Request   *model.FundingRequest `json:"request,omitempty"`
	Ledger    *model.LedgerEntry    `json:"ledger,omitempty"`
}

// EventSink receives events after they are committed.
type EventSink interface {
	Publish(Event)
}

// Notifier tells a submitter that their request changed status.
type Notifier interface {
	NotifyStatus(ctx context.Context, r model.FundingRequest) error
}

// RequestInput is the author-supplied part of a new request.
type RequestInput struct {
	Email                 string          `json:"email"`
	Title                 string          `json:"title"`
	Amount                decimal.Decimal `json:"amount"`
	AuthorName            string          `json:"author_name"`
	AuthorORCID           string          `json:"author_orcid"`
	CollaboratorList      string          `json:"collaborator_list"`
	CollaboratorORCIDList string          `json:"collaborator_orcid_list"`
	Journal               string          `json:"journal"`
	JournalISSN           string          `json:"journal_issn"`
	Publisher             string          `json:"publisher"`
	ArticleStatus         string          `json:"article_status"`
	PublicationType       string          `json:"publication_type"`
	DOI                   string          `json:"doi"`
	Comment               string          `json:"comment"`
}

// RequestPatch is a partial update. Nil fields are left unchanged.
type RequestPatch struct {
	Email                 *string          `json:"email"`
	Title                 *string          `json:"title"`
	Amount                *decimal.Decimal `json:"amount"`
	AuthorName            *string          `json:"author_name"`
	AuthorORCID           *string          `json:"author_orcid"`
	CollaboratorList      *string          `json:"collaborator_list"`
	CollaboratorORCIDList *string          `json:"collaborator_orcid_list"`
	Journal               *string          `json:"journal"`
	JournalISSN           *string          `json:"journal_issn"`
	Publisher             *string          `json:"publisher"`
	ArticleStatus         *string          `json:"article_status"`
	PublicationType       *string          `json:"publication_type"`
	DOI                   *string          `json:"doi"`
	Comment               *string          `json:"comment"`
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Status model.Status
	Email  string
}

// TransitionResult is the outcome of a status change. Ledger is nil when
// the transition did not move the budget.
type TransitionResult struct {
	Request model.FundingRequest `json:"request"`
	Ledger  *model.LedgerEntry   `json:"ledger,omitempty"`
}

// Service applies the workflow and ledger rules.
type Service struct {
	store    *store.Store
	log      logrus.FieldLogger
	events   EventSink
	notifier Notifier
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithEvents sets where committed changes are published.
func WithEvents(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// WithNotifier sets the status-change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service backed by st.
func New(st *store.Store, opts ...Option) *Service {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	s := &Service{
		store: st,
		log:   quiet,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for maintenance commands.
func (s *Service) Store() *store.Store {
	return s.store
}

// Submit validates and stores a new request with status submitted.
func (s *Service) Submit(ctx context.Context, in RequestInput) (model.FundingRequest, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateEmail(in.Email); err != nil {
		return model.FundingRequest{}, err
	}
	if in.Amount.IsNegative() {
		return model.FundingRequest{}, fmt.Errorf("amount %s is negative: %w", in.Amount, ErrInvalidInput)
	}

	r := model.FundingRequest{
		Email:                 in.Email,
		Title:                 in.Title,
		Amount:                in.Amount,
		AuthorName:            in.AuthorName,
		AuthorORCID:           in.AuthorORCID,
		CollaboratorList:      in.CollaboratorList,
		CollaboratorORCIDList: in.CollaboratorORCIDList,
		Journal:               in.Journal,
		JournalISSN:           in.JournalISSN,
		Publisher:             in.Publisher,
		ArticleStatus:         in.ArticleStatus,
		PublicationType:       in.PublicationType,
		DOI:                   in.DOI,
		Comment:               in.Comment,
		Status:                model.StatusSubmitted,
	}

	at := s.now()
	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		r.Timestamp = model.FormatTimestamp(at.Add(time.Duration(attempt) * time.Millisecond))
		err := s.store.InsertRequest(ctx, r)
		if err == nil {
			s.log.WithFields(logrus.Fields{
				"timestamp": r.Timestamp,
				"email":     r.Email,
				"amount":    r.Amount.String(),
			}).Info("request submitted")
			s.publish(Event{Type: EventSubmitted, Request: &r})
			return r, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return model.FundingRequest{}, err
		}
	}
	return model.FundingRequest{}, fmt.Errorf("no free timestamp after %d attempts: %w", maxSubmitAttempts, ErrDuplicate)
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, timestamp string) (model.FundingRequest, error) {
	return s.store.GetRequest(ctx, timestamp)
}

// List returns matching requests, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]model.FundingRequest, error) {
	return s.store.ListRequests(ctx, store.RequestFilter{Status: f.Status, Email: strings.TrimSpace(f.Email)})
}

// Update applies a partial edit to the descriptive fields of a request.
// The status is never changed here.
func (s *Service) Update(ctx context.Context, timestamp string, p RequestPatch) (model.FundingRequest, error) {
	var updated model.FundingRequest
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		r, err := tx.GetRequest(ctx, timestamp)
		if err != nil {
			return err
		}
		if err := applyPatch(&r, p); err != nil {
			return err
		}
		if err := tx.UpdateRequest(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return model.FundingRequest{}, err
	}

	s.log.WithField("timestamp", timestamp).Info("request updated")
	s.publish(Event{Type: EventUpdated, Request: &updated})
	return updated, nil
}

func applyPatch(r *model.FundingRequest, p RequestPatch) error {
	if p.Amount != nil && !p.Amount.Equal(r.Amount) {
		if strings.TrimSpace(string(r.Status)) != string(model.StatusSubmitted) {
			return fmt.Errorf("request %s is %s: %w", r.Timestamp, r.Status, ErrAmountLocked)
		}
		if p.Amount.IsNegative() {
			return fmt.Errorf("amount %s is negative: %w", p.Amount, ErrInvalidInput)
		}
		r.Amount = *p.Amount
	}
	if p.Email != nil {
		email := strings.TrimSpace(*p.Email)
		if err := validateEmail(email); err != nil {
			return err
		}
		r.Email = email
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&r.Title, p.Title)
	set(&r.AuthorName, p.AuthorName)
	set(&r.AuthorORCID, p.AuthorORCID)
	set(&r.CollaboratorList, p.CollaboratorList)
	set(&r.CollaboratorORCIDList, p.CollaboratorORCIDList)
	set(&r.Journal, p.Journal)
	set(&r.JournalISSN, p.JournalISSN)
	set(&r.Publisher, p.Publisher)
	set(&r.ArticleStatus, p.ArticleStatus)
	set(&r.PublicationType, p.PublicationType)
	set(&r.DOI, p.DOI)
	set(&r.Comment, p.Comment)
	return nil
}

// Transition moves a request to a new status and applies its ledger effect
// in the same transaction. Events and notifications follow the commit.
func (s *Service) Transition(ctx context.Context, timestamp string, to model.Status, actor string) (TransitionResult, error) {
	var res TransitionResult
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		r, err := tx.GetRequest(ctx, timestamp)
		if err != nil {
			return err
		}
		from := model.Status(strings.TrimSpace(string(r.Status)))
		if !model.CanTransition(from, to) {
			return fmt.Errorf("request %s: %s -> %s: %w", timestamp, from, to, ErrInvalidTransition)
		}
		if err := tx.SetStatus(ctx, timestamp, to); err != nil {
			return err
		}
		r.Status = to
		res.Request = r

		op, verb := transitionOp(from, to, r.Amount)
		if op == nil {
			return nil
		}
		entry, err := s.appendLedger(ctx, tx, verb+" "+timestamp, op)
		if err != nil {
			return err
		}
		res.Ledger = &entry
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	fields := logrus.Fields{
		"timestamp": timestamp,
		"status":    string(to),
		"actor":     actor,
	}
	if res.Ledger != nil {
		fields["running_total"] = res.Ledger.RunningTotal.String()
	}
	s.log.WithFields(fields).Info("request status changed")

	s.publish(Event{Type: EventStatus, Actor: actor, Request: &res.Request, Ledger: res.Ledger})
	if s.notifier != nil {
		if err := s.notifier.NotifyStatus(ctx, res.Request); err != nil {
			s.log.WithError(err).WithField("timestamp", timestamp).Warn("status notification failed")
		}
	}
	return res, nil
}

// Approve moves a submitted request to APPROVED and reserves its amount.
func (s *Service) Approve(ctx context.Context, timestamp, actor string) (TransitionResult, error) {
	return s.Transition(ctx, timestamp, model.StatusApproved, actor)
}

// Deny moves a submitted request to DENIED.
func (s *Service) Deny(ctx context.Context, timestamp, actor string) (TransitionResult, error) {
	return s.Transition(ctx, timestamp, model.StatusDenied, actor)
}

// Pay records payment of an approved or planned request.
func (s *Service) Pay(ctx context.Context, timestamp, actor string) (TransitionResult, error) {
	return s.Transition(ctx, timestamp, model.StatusPaid, actor)
}

// PlanPayment marks an approved request as scheduled for payment.
func (s *Service) PlanPayment(ctx context.Context, timestamp, actor string) (TransitionResult, error) {
	return s.Transition(ctx, timestamp, model.StatusPaymentPlanned, actor)
}

// Cancel cancels an approved request and returns its amount to the balance.
func (s *Service) Cancel(ctx context.Context, timestamp, actor string) (TransitionResult, error) {
	return s.Transition(ctx, timestamp, model.StatusCancelled, actor)
}

func (s *Service) publish(ev Event) {
	if s.events == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	s.events.Publish(ev)
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required: %w", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email %q is not an address: %w", email, ErrInvalidInput)
	}
	return nil
}
