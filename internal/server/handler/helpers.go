package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/poolbet/poolbet/internal/domain"
	"github.com/poolbet/poolbet/internal/server/middleware"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a wrapped domain error onto an HTTP status and sends
// the sentinel's message. Unknown errors become an opaque 500.
func writeDomainError(w http.ResponseWriter, err error) {
	status, msg := domainStatus(err)
	writeError(w, status, msg)
}

// domainStatus translates domain sentinels into HTTP status codes. State
// machine rejections are conflicts: the request was well formed but the
// record is not in a state that permits it.
func domainStatus(err error) (int, string) {
	for _, m := range domainStatusMap {
		if errors.Is(err, m.sentinel) {
			return m.status, m.sentinel.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

var domainStatusMap = []struct {
	sentinel error
	status   int
}{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrAlreadyExists, http.StatusConflict},
	{domain.ErrInvalidOutcome, http.StatusBadRequest},
	{domain.ErrInvalidMarket, http.StatusBadRequest},
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusForbidden},
	{domain.ErrInsufficientFunds, http.StatusPaymentRequired},
	{domain.ErrMarketClosed, http.StatusConflict},
	{domain.ErrMarketResolved, http.StatusConflict},
	{domain.ErrGameNotComplete, http.StatusConflict},
	{domain.ErrAlreadyResolved, http.StatusConflict},
	{domain.ErrNotResolved, http.StatusConflict},
	{domain.ErrAlreadyClaimed, http.StatusConflict},
	{domain.ErrNotWinner, http.StatusConflict},
	{domain.ErrNoWinningPool, http.StatusConflict},
	{domain.ErrTooLateToCancel, http.StatusConflict},
	{domain.ErrOutcomeLocked, http.StatusConflict},
	{domain.ErrOverflow, http.StatusConflict},
	{domain.ErrUnderflow, http.StatusConflict},
	{domain.ErrLockHeld, http.StatusServiceUnavailable},
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// caller returns the signed-in address, writing a 401 when the request was
// not signed. Handlers gate every mutation on it.
func caller(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	addr, ok := middleware.Caller(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "request must be signed")
		return "", false
	}
	return addr, true
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
