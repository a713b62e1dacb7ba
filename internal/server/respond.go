package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/theirongolddev/oafund/internal/auth"
	"github.com/theirongolddev/oafund/internal/fund"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps service errors onto status codes. Unknown errors are
// logged and reported as 500 without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fund.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, fund.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fund.ErrInvalidTransition),
		errors.Is(err, fund.ErrAmountLocked),
		errors.Is(err, fund.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, fund.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, auth.ErrBadCredentials), errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		s.log.WithError(err).WithField("trace_id", traceID(r.Context())).Error("handler failed")
		writeJSONError(w, status, "internal error")
		return
	}
	writeJSONError(w, status, err.Error())
}

// decodeJSON reads one JSON object. Unknown fields are rejected so a
// misspelled or read-only field is not silently ignored.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding body: %v: %w", err, fund.ErrInvalidInput)
	}
	return nil
}
