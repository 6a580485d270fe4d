package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
	"github.com/stridehq/stride/internal/websocket"
)

type TaskHandler struct {
	tasks  *store.TaskStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.BroadcastTo(userID, msg)
	}
}

type taskRequest struct {
	GoalID *int64 `json:"goal_id"`
	Title  string `json:"title"`
	Points int    `json:"points"`
}

func (r *taskRequest) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title is required"
	}
	if r.Points < 0 {
		return "points must not be negative"
	}
	return ""
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	userID := auth.UserID(r.Context())
	task, err := h.tasks.Create(userID, req.GoalID, req.Title, req.Points)
	if err != nil {
		h.logger.Error("create task failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	h.broadcast(userID, websocket.NewMessage("task", "created", task.ID, nil))
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list tasks failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	userID := auth.UserID(r.Context())
	task, err := h.tasks.Update(id, userID, req.GoalID, req.Title, req.Points)
	if err != nil {
		h.logger.Error("update task failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	h.broadcast(userID, websocket.NewMessage("task", "updated", task.ID, nil))
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.tasks.Delete(id, userID); err != nil {
		h.logger.Error("delete task failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
		return
	}

	h.broadcast(userID, websocket.NewMessage("task", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Complete marks the task done and credits its points. Completing an
// already-completed task conflicts rather than crediting twice.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "completed", func(id, userID int64) (*model.Task, error) {
		return h.tasks.Complete(id, userID, time.Now().UTC())
	})
}

// Uncomplete reverts a completion with a compensating negative entry.
func (h *TaskHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "uncompleted", func(id, userID int64) (*model.Task, error) {
		return h.tasks.Uncomplete(id, userID)
	})
}

func (h *TaskHandler) transition(w http.ResponseWriter, r *http.Request, action string, fn func(id, userID int64) (*model.Task, error)) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	task, err := fn(id, userID)
	if err != nil {
		h.logger.Error("task transition failed", "action", action, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}
	if task == nil {
		// The guard missed: either absent or already in the target state.
		existing, err := h.tasks.GetByID(id, userID)
		if err != nil {
			h.logger.Error("get task failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
			return
		}
		if existing == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invalid state"})
		return
	}

	h.broadcast(userID, websocket.NewMessage("task", action, task.ID, nil))
	writeJSON(w, http.StatusOK, task)
}
