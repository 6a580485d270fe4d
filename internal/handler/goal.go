package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/progress"
	"github.com/stridehq/stride/internal/store"
	"github.com/stridehq/stride/internal/websocket"
)

type GoalHandler struct {
	goals      *store.GoalStore
	reconciler *progress.Reconciler
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewGoalHandler(gs *store.GoalStore, rec *progress.Reconciler, hub *websocket.Hub, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{goals: gs, reconciler: rec, hub: hub, logger: logger}
}

func (h *GoalHandler) broadcast(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.BroadcastTo(userID, msg)
	}
}

var validStatuses = map[model.GoalStatus]bool{
	model.GoalStatusActive:    true,
	model.GoalStatusCompleted: true,
	model.GoalStatusPaused:    true,
	model.GoalStatusCancelled: true,
}

type goalRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	TargetValue int64            `json:"target_value"`
	Status      model.GoalStatus `json:"status"`
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.TargetValue < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target_value must not be negative"})
		return
	}

	userID := auth.UserID(r.Context())
	goal, err := h.goals.Create(userID, req.Title, req.Description, req.TargetValue)
	if err != nil {
		h.logger.Error("create goal failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create goal"})
		return
	}

	h.broadcast(userID, websocket.NewMessage("goal", "created", goal.ID, nil))
	writeJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goals.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list goals failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list goals"})
		return
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	goal, err := h.goals.GetByID(id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get goal failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get goal"})
		return
	}
	if goal == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Status == "" {
		req.Status = model.GoalStatusActive
	}
	if !validStatuses[req.Status] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be active, completed, paused, or cancelled"})
		return
	}

	userID := auth.UserID(r.Context())
	goal, err := h.goals.Update(id, userID, req.Title, req.Description, req.TargetValue, req.Status)
	if err != nil {
		h.logger.Error("update goal failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update goal"})
		return
	}
	if goal == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	h.broadcast(userID, websocket.NewMessage("goal", "updated", goal.ID, nil))
	writeJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.goals.Delete(id, userID); err != nil {
		h.logger.Error("delete goal failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete goal"})
		return
	}

	h.broadcast(userID, websocket.NewMessage("goal", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type progressRequest struct {
	Percent float64 `json:"percent"`
}

// Progress reconciles a percent report against the goal's cached value and
// the points ledger.
func (h *GoalHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	userID := auth.UserID(r.Context())
	goal, err := h.reconciler.SetProgress(userID, id, req.Percent)
	if err != nil {
		writeError(w, err)
		return
	}

	extra := map[string]any{"current_value": goal.CurrentValue, "status": string(goal.Status)}
	h.broadcast(userID, websocket.NewMessage("goal", "updated", goal.ID, extra))
	writeJSON(w, http.StatusOK, goal)
}
