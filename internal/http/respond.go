package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/madalinagriza/flashfinance/internal/core"
)

const maxRequestBody = 1 << 20 // 1MB

type errorResponse struct {
	Error string   `json:"error"`
	Keys  []string `json:"conflicting_keys,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps the domain error taxonomy onto HTTP statuses. Domain
// errors carry offending ids and are safe to return verbatim.
func writeError(w http.ResponseWriter, err error) {
	var conflict *core.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: conflict.Error(), Keys: conflict.Keys})
		return
	}
	var suggestion *core.SuggestionError
	if errors.As(err, &suggestion) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: suggestion.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidID),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, core.ErrNoCategories):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrCategoryNotFound),
		errors.Is(err, core.ErrBucketNotFound),
		errors.Is(err, core.ErrTxNotFound),
		errors.Is(err, core.ErrDestinationNotFound),
		errors.Is(err, core.ErrLabelNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateName),
		errors.Is(err, core.ErrDuplicateTx),
		errors.Is(err, core.ErrAlreadyStaged),
		errors.Is(err, core.ErrAlreadyCommitted),
		errors.Is(err, core.ErrCategoryNotEmpty):
		status = http.StatusConflict
	case errors.Is(err, core.ErrSuggestionUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
