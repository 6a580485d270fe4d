package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stridehq/stride/internal/achievement"
	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/push"
	"github.com/stridehq/stride/internal/store"
	"github.com/stridehq/stride/internal/streak"
	"github.com/stridehq/stride/internal/websocket"
)

const signinBonusPoints = 5

// signinMilestones doubles the daily bonus when the streak reaches one of
// the sign-in trophy thresholds.
var signinMilestones = map[int]bool{3: true, 7: true, 30: true, 365: true}

type SigninHandler struct {
	streaks  *store.StreakStore
	tracker  *streak.Tracker
	engine   *achievement.Engine
	hub      *websocket.Hub
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewSigninHandler(
	ss *store.StreakStore,
	tracker *streak.Tracker,
	engine *achievement.Engine,
	hub *websocket.Hub,
	notifier *push.Notifier,
	logger *slog.Logger,
) *SigninHandler {
	return &SigninHandler{
		streaks:  ss,
		tracker:  tracker,
		engine:   engine,
		hub:      hub,
		notifier: notifier,
		logger:   logger,
	}
}

type signinResponse struct {
	Recorded bool           `json:"recorded"`
	Points   int64          `json:"points"`
	Streak   *model.Streak  `json:"streak"`
	Trophies []model.Trophy `json:"trophies"`
}

// Signin records the user's daily sign-in. The first call on a given local
// day credits a point bonus and advances the sign-in streak; repeats are
// acknowledged without effect.
func (h *SigninHandler) Signin(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	day := localDay(r.Context(), time.Now())

	st, changed, err := h.tracker.Next(userID, nil, day)
	if err != nil {
		h.logger.Error("advance signin streak failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sign-in failed"})
		return
	}
	var save *model.Streak
	if changed {
		save = st
	}

	points := int64(signinBonusPoints)
	if signinMilestones[st.Current] {
		points *= 2
	}
	desc := fmt.Sprintf("Daily sign-in (day %d)", st.Current)

	// The sign-in fact, the bonus credit, and the streak row land in one
	// transaction so a retry never finds a recorded day without its points.
	recorded, err := h.streaks.Signin(userID, day, points, desc, save)
	if err != nil {
		h.logger.Error("record signin failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sign-in failed"})
		return
	}

	if !recorded {
		current, err := h.tracker.Get(userID, nil, day)
		if err != nil {
			h.logger.Error("get signin streak failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sign-in failed"})
			return
		}
		writeJSON(w, http.StatusOK, signinResponse{Recorded: false, Streak: current, Trophies: []model.Trophy{}})
		return
	}

	trophies := h.engine.CheckSignin(userID)
	if trophies == nil {
		trophies = []model.Trophy{}
	}

	if h.hub != nil {
		h.hub.BroadcastTo(userID, websocket.NewMessage("signin", "recorded", 0, map[string]any{
			"date":   day,
			"streak": st.Current,
		}))
		for _, t := range trophies {
			h.hub.BroadcastTo(userID, websocket.NewMessage("trophy", "awarded", t.ID, map[string]any{
				"name":      t.Name,
				"threshold": t.Threshold,
			}))
		}
	}
	if h.notifier != nil {
		for _, t := range trophies {
			h.notifier.TrophyAwarded(userID, t)
		}
	}

	writeJSON(w, http.StatusCreated, signinResponse{
		Recorded: true,
		Points:   points,
		Streak:   st,
		Trophies: trophies,
	})
}

// Streak reads the user's sign-in streak as of today.
func (h *SigninHandler) Streak(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	st, err := h.tracker.Get(userID, nil, localDay(r.Context(), time.Now()))
	if err != nil {
		h.logger.Error("get signin streak failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get streak"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}
