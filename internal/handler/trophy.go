package handler

import (
	"log/slog"
	"net/http"

	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
)

type TrophyHandler struct {
	trophies *store.TrophyStore
	logger   *slog.Logger
}

func NewTrophyHandler(ts *store.TrophyStore, logger *slog.Logger) *TrophyHandler {
	return &TrophyHandler{trophies: ts, logger: logger}
}

// List returns the trophies the user has earned, most recent first.
func (h *TrophyHandler) List(w http.ResponseWriter, r *http.Request) {
	awarded, err := h.trophies.ListAwarded(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list awarded trophies failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list trophies"})
		return
	}
	if awarded == nil {
		awarded = []model.AwardedTrophy{}
	}
	writeJSON(w, http.StatusOK, awarded)
}

// Catalog returns the full trophy catalog for one family.
func (h *TrophyHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	family := model.TrophyFamily(r.URL.Query().Get("family"))
	switch family {
	case model.TrophyFamilyHabitStreak, model.TrophyFamilyHabitTotal, model.TrophyFamilySignin:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "family must be habit_streak, habit_total, or signin"})
		return
	}

	trophies, err := h.trophies.ListFamily(family)
	if err != nil {
		h.logger.Error("list trophy catalog failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list trophies"})
		return
	}
	if trophies == nil {
		trophies = []model.Trophy{}
	}
	writeJSON(w, http.StatusOK, trophies)
}
