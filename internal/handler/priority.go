package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/priority"
	"github.com/stridehq/stride/internal/websocket"
)

type PriorityHandler struct {
	priorities *priority.Manager
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewPriorityHandler(m *priority.Manager, hub *websocket.Hub, logger *slog.Logger) *PriorityHandler {
	return &PriorityHandler{priorities: m, hub: hub, logger: logger}
}

func (h *PriorityHandler) broadcast(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.BroadcastTo(userID, msg)
	}
}

type priorityRequest struct {
	Title        string  `json:"title"`
	PriorityType string  `json:"priority_type"`
	Score        float64 `json:"score"`
	OrderIndex   int     `json:"order_index"`
}

func (h *PriorityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	userID := auth.UserID(r.Context())
	p, err := h.priorities.Create(userID, req.Title, model.PriorityType(req.PriorityType), req.Score, req.OrderIndex)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(userID, websocket.NewMessage("priority", "created", p.ID, nil))
	writeJSON(w, http.StatusCreated, p)
}

func (h *PriorityHandler) List(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	priorities, err := h.priorities.List(auth.UserID(r.Context()), includeDeleted)
	if err != nil {
		writeError(w, err)
		return
	}
	if priorities == nil {
		priorities = []model.Priority{}
	}
	writeJSON(w, http.StatusOK, priorities)
}

func (h *PriorityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	p, err := h.priorities.Get(auth.UserID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PriorityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req priorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	userID := auth.UserID(r.Context())
	p, err := h.priorities.Update(userID, id, req.Title, model.PriorityType(req.PriorityType), req.Score)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(userID, websocket.NewMessage("priority", "updated", p.ID, nil))
	writeJSON(w, http.StatusOK, p)
}

type priorityCompleteRequest struct {
	Completed bool `json:"completed"`
}

func (h *PriorityHandler) SetCompleted(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req priorityCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	userID := auth.UserID(r.Context())
	p, err := h.priorities.SetCompleted(userID, id, req.Completed)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(userID, websocket.NewMessage("priority", "updated", p.ID, nil))
	writeJSON(w, http.StatusOK, p)
}

// Delete moves a priority to the trash. The row survives for the retention
// period and can be restored until it is purged.
func (h *PriorityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.priorities.SoftDelete(userID, id, time.Now().UTC()); err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(userID, websocket.NewMessage("priority", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *PriorityHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	p, err := h.priorities.Restore(userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(userID, websocket.NewMessage("priority", "restored", p.ID, nil))
	writeJSON(w, http.StatusOK, p)
}

func (h *PriorityHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.priorities.Purge(userID, id); err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(userID, websocket.NewMessage("priority", "purged", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

func (h *PriorityHandler) Deduplicate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	removed, err := h.priorities.Deduplicate(userID, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}

	if removed > 0 {
		h.broadcast(userID, websocket.NewMessage("priority", "deduplicated", 0, map[string]any{"removed": removed}))
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

type reorderRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *PriorityHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids must not be empty"})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.priorities.Reorder(userID, req.IDs); err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(userID, websocket.NewMessage("priority", "reordered", 0, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}
