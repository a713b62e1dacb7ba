package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/oafund/internal/fund"
	"github.com/theirongolddev/oafund/internal/model"
)

// actions maps transition path segments onto target statuses.
var actions = map[string]model.Status{
	"approve": model.StatusApproved,
	"deny":    model.StatusDenied,
	"pay":     model.StatusPaid,
	"plan":    model.StatusPaymentPlanned,
	"cancel":  model.StatusCancelled,
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	tok, exp, err := s.tokens.Login(r.Context(), s.fund.Store(), in.ID, in.Password)
	if err != nil {
		s.log.WithFields(logrus.Fields{"user": in.ID, "trace_id": traceID(r.Context())}).Warn("login failed")
		s.writeError(w, r, err)
		return
	}
	s.log.WithField("user", in.ID).Info("login")
	writeJSON(w, http.StatusOK, loginResponse{Token: tok, ExpiresAt: exp})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in fund.RequestInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := s.fund.Submit(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

type urlRequest struct {
	URL   string `json:"url"`
	Email string `json:"email"`
}

func (s *Server) handleAddURL(w http.ResponseWriter, r *http.Request) {
	var in urlRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.fund.AddURL(r.Context(), in.URL, in.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Allow room for the multipart envelope and the email field.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+64<<10)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, fmt.Errorf("upload: %w", fund.ErrTooLarge))
			return
		}
		s.writeError(w, r, fmt.Errorf("parsing form: %v: %w", err, fund.ErrInvalidInput))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("missing file field: %w", fund.ErrInvalidInput))
		return
	}
	defer func() { _ = f.Close() }()

	rec, err := s.fund.AddFile(r.Context(), s.cfg.UploadDir, fund.Upload{
		Email:            r.FormValue("email"),
		OriginalFilename: hdr.Filename,
		Body:             f,
		MaxBytes:         s.cfg.MaxUploadBytes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := fund.ListFilter{Email: q.Get("email")}
	if raw := q.Get("status"); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			s.writeError(w, r, fmt.Errorf("status %q: %w", raw, fund.ErrInvalidInput))
			return
		}
		f.Status = st
	}
	reqs, err := s.fund.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if reqs == nil {
		reqs = []model.FundingRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.fund.Get(r.Context(), mux.Vars(r)["ts"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handlePatchRequest(w http.ResponseWriter, r *http.Request) {
	var p fund.RequestPatch
	if err := decodeJSON(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := s.fund.Update(r.Context(), mux.Vars(r)["ts"], p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	to, ok := actions[vars["action"]]
	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown action %q", vars["action"]))
		return
	}
	res, err := s.fund.Transition(r.Context(), vars["ts"], to, subject(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	e, err := s.fund.Latest(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleBudgetHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("limit %q: %w", raw, fund.ErrInvalidInput))
			return
		}
		limit = n
	}
	hist, err := s.fund.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if hist == nil {
		hist = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.fund.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type budgetChange struct {
	Mode   string          `json:"mode"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func (s *Server) handleBudgetChange(w http.ResponseWriter, r *http.Request) {
	which := mux.Vars(r)["which"]
	if which != "total" && which != "running" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	var in budgetChange
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	var (
		e   model.LedgerEntry
		err error
	)
	switch which + "/" + in.Mode {
	case "total/set":
		e, err = s.fund.SetTotal(ctx, in.Amount, in.Reason)
	case "total/change":
		e, err = s.fund.ChangeTotal(ctx, in.Amount, in.Reason)
	case "running/set":
		e, err = s.fund.SetRunning(ctx, in.Amount, in.Reason)
	case "running/change":
		e, err = s.fund.ChangeRunning(ctx, in.Amount, in.Reason)
	default:
		err = fmt.Errorf("mode %q must be set or change: %w", in.Mode, fund.ErrInvalidInput)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleListURLs(w http.ResponseWriter, r *http.Request) {
	urls, err := s.fund.ListURLs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if urls == nil {
		urls = []model.SubmittedURL{}
	}
	writeJSON(w, http.StatusOK, urls)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.fund.ListFiles(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if files == nil {
		files = []model.StoredFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	rec, err := s.fund.FileByName(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	path := rec.Path
	if path == "" {
		path = filepath.Join(s.cfg.UploadDir, rec.Filename)
	}
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": rec.OriginalFilename}))
	http.ServeFile(w, r, path)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var after int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("since %q: %w", raw, fund.ErrInvalidInput))
			return
		}
		after = n
	}
	writeJSON(w, http.StatusOK, s.hub.Since(after))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.hub.Subscribe(16)
	defer unsubscribe()

	// Replay what the client missed when it reconnects.
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if after, err := strconv.ParseInt(last, 10, 64); err == nil {
			for _, ev := range s.hub.Since(after) {
				writeSSE(w, ev)
			}
		}
	}
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev fund.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
