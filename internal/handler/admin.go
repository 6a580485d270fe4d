package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/stridehq/stride/internal/backup"
	"github.com/stridehq/stride/internal/maintenance"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
)

// AdminHandler serves the operator-only endpoints: backups and the
// maintenance sweep.
type AdminHandler struct {
	backups     *backup.Manager
	backupStore *store.BackupStore
	maintenance *maintenance.Scheduler
	logger      *slog.Logger
}

func NewAdminHandler(bm *backup.Manager, bs *store.BackupStore, ms *maintenance.Scheduler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{backups: bm, backupStore: bs, maintenance: ms, logger: logger}
}

func (h *AdminHandler) backupsEnabled(w http.ResponseWriter) bool {
	if h.backups == nil || !h.backups.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"})
		return false
	}
	return true
}

func (h *AdminHandler) RunBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupsEnabled(w) {
		return
	}

	id, err := h.backups.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual backup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backup failed"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"backup_id": id})
}

func (h *AdminHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backupStore.List(50)
	if err != nil {
		h.logger.Error("list backups failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list backups"})
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

func (h *AdminHandler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, h.backups.Status())
}

// RestoreBackup replaces the live database with the named snapshot. On
// success the process exits so the supervisor restarts it against the
// restored file; a response is only written on failure.
func (h *AdminHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupsEnabled(w) {
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.backups.Restore(r.Context(), id); err != nil {
		h.logger.Error("restore backup failed", "backup_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "restore failed"})
		return
	}
}

// RunMaintenance triggers the expired-item sweep outside its schedule.
func (h *AdminHandler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	h.maintenance.Cleanup(time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]string{"status": "maintenance complete"})
}
