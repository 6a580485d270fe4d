package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	dailyTotalsDays     = 30
)

type LedgerHandler struct {
	ledger *store.LedgerStore
	logger *slog.Logger
}

func NewLedgerHandler(ls *store.LedgerStore, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ls, logger: logger}
}

// Summary returns the lifetime balance plus the rolling day, week, and month
// totals.
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.Summary(auth.UserID(r.Context()), time.Now().UTC())
	if err != nil {
		h.logger.Error("points summary failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to summarize points"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// History pages through the user's ledger entries, newest first.
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "offset must not be negative"})
			return
		}
		offset = n
	}

	entries, err := h.ledger.ListByUser(auth.UserID(r.Context()), limit, offset)
	if err != nil {
		h.logger.Error("points history failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list points"})
		return
	}
	if entries == nil {
		entries = []model.PointEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Daily returns per-day totals for the last thirty days.
func (h *LedgerHandler) Daily(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().AddDate(0, 0, -dailyTotalsDays)
	totals, err := h.ledger.DailyTotals(auth.UserID(r.Context()), since)
	if err != nil {
		h.logger.Error("daily totals failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list daily totals"})
		return
	}
	if totals == nil {
		totals = []model.DayTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}
