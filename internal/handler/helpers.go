package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/stridehq/stride/internal/apperr"
	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/streak"
)

// localDay resolves the caller's current calendar day in their stored
// timezone. Day-keyed facts (check-ins, sign-ins) are recorded against this,
// never against the server's clock.
func localDay(ctx context.Context, now time.Time) string {
	loc, err := time.LoadLocation(auth.Timezone(ctx))
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc).Format(streak.DayFormat)
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error kinds from apperr onto HTTP statuses. Anything
// unrecognized is an internal error and its detail stays out of the response.
func writeError(w http.ResponseWriter, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "validation failed",
			"violations": verr.Violations,
		})
		return
	}

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, apperr.ErrInvalidState):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invalid state"})
	case errors.Is(err, apperr.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
