package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stridehq/stride/internal/achievement"
	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/push"
	"github.com/stridehq/stride/internal/store"
	"github.com/stridehq/stride/internal/streak"
	"github.com/stridehq/stride/internal/websocket"
)

const defaultHabitPoints = 5

type HabitHandler struct {
	habits   *store.HabitStore
	tracker  *streak.Tracker
	engine   *achievement.Engine
	hub      *websocket.Hub
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewHabitHandler(
	hs *store.HabitStore,
	tracker *streak.Tracker,
	engine *achievement.Engine,
	hub *websocket.Hub,
	notifier *push.Notifier,
	logger *slog.Logger,
) *HabitHandler {
	return &HabitHandler{
		habits:   hs,
		tracker:  tracker,
		engine:   engine,
		hub:      hub,
		notifier: notifier,
		logger:   logger,
	}
}

func (h *HabitHandler) broadcast(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.BroadcastTo(userID, msg)
	}
}

func (h *HabitHandler) announceTrophies(userID int64, trophies []model.Trophy) {
	for _, t := range trophies {
		h.broadcast(userID, websocket.NewMessage("trophy", "awarded", t.ID, map[string]any{
			"name":      t.Name,
			"threshold": t.Threshold,
		}))
		if h.notifier != nil {
			h.notifier.TrophyAwarded(userID, t)
		}
	}
}

type habitRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      *int   `json:"points"`
	IsActive    *bool  `json:"is_active"`
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	points := defaultHabitPoints
	if req.Points != nil {
		if *req.Points < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must not be negative"})
			return
		}
		points = *req.Points
	}

	userID := auth.UserID(r.Context())
	habit, err := h.habits.Create(userID, req.Title, req.Description, points)
	if err != nil {
		h.logger.Error("create habit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create habit"})
		return
	}

	h.broadcast(userID, websocket.NewMessage("habit", "created", habit.ID, nil))
	writeJSON(w, http.StatusCreated, habit)
}

func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	habits, err := h.habits.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list habits failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list habits"})
		return
	}
	if habits == nil {
		habits = []model.Habit{}
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.habits.GetByID(id, userID)
	if err != nil {
		h.logger.Error("get habit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get habit"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	var req habitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	points := existing.Points
	if req.Points != nil {
		if *req.Points < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must not be negative"})
			return
		}
		points = *req.Points
	}
	active := existing.IsActive
	if req.IsActive != nil {
		active = *req.IsActive
	}

	habit, err := h.habits.Update(id, userID, req.Title, req.Description, points, active)
	if err != nil {
		h.logger.Error("update habit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update habit"})
		return
	}

	h.broadcast(userID, websocket.NewMessage("habit", "updated", habit.ID, nil))
	writeJSON(w, http.StatusOK, habit)
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.habits.Delete(id, userID); err != nil {
		h.logger.Error("delete habit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete habit"})
		return
	}

	h.broadcast(userID, websocket.NewMessage("habit", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type checkInRequest struct {
	Date string `json:"date"`
}

type checkInResponse struct {
	Completion  *model.HabitCompletion `json:"completion,omitempty"`
	AlreadyDone bool                   `json:"already_done"`
	Streak      *model.Streak          `json:"streak"`
	Trophies    []model.Trophy         `json:"trophies"`
}

// CheckIn records today's completion for a habit. The completion fact is the
// idempotence anchor: a repeat check-in on the same day earns nothing extra,
// while a fresh one credits points, advances the streak, and runs the
// trophy checks.
func (h *HabitHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req checkInRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	}

	day := req.Date
	if day == "" {
		day = localDay(r.Context(), time.Now())
	} else if _, err := time.ParseInLocation(streak.DayFormat, day, time.UTC); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be a YYYY-MM-DD date"})
		return
	}

	userID := auth.UserID(r.Context())
	habit, err := h.habits.GetByID(id, userID)
	if err != nil {
		h.logger.Error("get habit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "check-in failed"})
		return
	}
	if habit == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if !habit.IsActive {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "habit is inactive"})
		return
	}

	// Compute the advanced streak first, then land the completion fact, the
	// ledger credit, and the streak row in one transaction: either the whole
	// check-in happens or the day stays open for a clean retry.
	st, changed, err := h.tracker.Next(userID, &id, day)
	if err != nil {
		writeError(w, err)
		return
	}
	var save *model.Streak
	if changed {
		save = st
	}

	var points int64
	if habit.Points > 0 {
		points = int64(habit.Points)
	}
	desc := fmt.Sprintf("Completed habit %q", habit.Title)
	completion, err := h.habits.CheckIn(id, userID, day, points, desc, save)
	if err != nil {
		h.logger.Error("check-in failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "check-in failed"})
		return
	}

	if completion == nil {
		// Already checked in today; report current state without crediting.
		current, err := h.tracker.Get(userID, &id, day)
		if err != nil {
			h.logger.Error("get streak failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "check-in failed"})
			return
		}
		writeJSON(w, http.StatusOK, checkInResponse{AlreadyDone: true, Streak: current, Trophies: []model.Trophy{}})
		return
	}

	trophies := h.engine.CheckHabit(userID, id)
	if trophies == nil {
		trophies = []model.Trophy{}
	}

	h.broadcast(userID, websocket.NewMessage("habit", "checked_in", id, map[string]any{"date": day}))
	h.announceTrophies(userID, trophies)

	writeJSON(w, http.StatusCreated, checkInResponse{
		Completion: completion,
		Streak:     st,
		Trophies:   trophies,
	})
}

// Streak reads the habit's streak as of today in the caller's timezone.
func (h *HabitHandler) Streak(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	habit, err := h.habits.GetByID(id, userID)
	if err != nil {
		h.logger.Error("get habit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get streak"})
		return
	}
	if habit == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	st, err := h.tracker.Get(userID, &id, localDay(r.Context(), time.Now()))
	if err != nil {
		h.logger.Error("get streak failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get streak"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}
