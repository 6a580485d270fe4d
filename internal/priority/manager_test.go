package priority

import (
	"errors"
	"testing"
	"time"

	"github.com/stridehq/stride/internal/apperr"
	"github.com/stridehq/stride/internal/database"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
)

func setupManagerTest(t *testing.T) (*Manager, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	users := store.NewUserStore(db)
	u, err := users.Create("priority@example.com", "Priority", "hash")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return NewManager(store.NewPriorityStore(db)), u.ID
}

func TestCreateValidation(t *testing.T) {
	m, userID := setupManagerTest(t)

	tests := []struct {
		name  string
		title string
		ptype model.PriorityType
		score float64
	}{
		{"empty title", "", model.PriorityTypeManual, 50},
		{"unknown type", "Ship it", "urgent", 50},
		{"score too low", "Ship it", model.PriorityTypeManual, -1},
		{"score too high", "Ship it", model.PriorityTypeManual, 101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(userID, tt.title, tt.ptype, tt.score, 0)
			var verr *apperr.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestSoftDeleteLifecycle(t *testing.T) {
	m, userID := setupManagerTest(t)
	now := time.Now()

	p, err := m.Create(userID, "Write review", model.PriorityTypeManual, 70, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := m.SoftDelete(userID, p.ID, now); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	// Deleted rows leave the default list but appear in the trash view.
	visible, err := m.List(userID, false)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("expected deleted priority hidden, got %d rows", len(visible))
	}
	all, err := m.List(userID, true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 || !all[0].IsDeleted {
		t.Errorf("expected 1 deleted row in trash view, got %+v", all)
	}

	// Deleting again must not reset the retention clock.
	if err := m.SoftDelete(userID, p.ID, now.Add(time.Hour)); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on double delete, got %v", err)
	}

	restored, err := m.Restore(userID, p.ID)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.IsDeleted || restored.DeletedAt != nil {
		t.Errorf("expected restored priority active with deleted_at cleared, got %+v", restored)
	}

	if _, err := m.Restore(userID, p.ID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState restoring an active priority, got %v", err)
	}
}

func TestPurgeRequiresSoftDelete(t *testing.T) {
	m, userID := setupManagerTest(t)

	p, err := m.Create(userID, "Write review", model.PriorityTypeManual, 70, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := m.Purge(userID, p.ID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState purging an active priority, got %v", err)
	}

	if err := m.SoftDelete(userID, p.ID, time.Now()); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if err := m.Purge(userID, p.ID); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	if _, err := m.Get(userID, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after purge, got %v", err)
	}
	if err := m.Purge(userID, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound purging a purged priority, got %v", err)
	}
}

func TestLifecycleNotFound(t *testing.T) {
	m, userID := setupManagerTest(t)

	if err := m.SoftDelete(userID, 999, time.Now()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Restore(userID, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLifecycleScopedToOwner(t *testing.T) {
	m, userID := setupManagerTest(t)

	p, err := m.Create(userID, "Mine", model.PriorityTypeManual, 50, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Another user sees someone else's priority as nonexistent.
	if err := m.SoftDelete(userID+1, p.ID, time.Now()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign priority, got %v", err)
	}
}

func TestDeduplicateKeepsEarliest(t *testing.T) {
	m, userID := setupManagerTest(t)

	keeper, err := m.Create(userID, "Inbox zero", model.PriorityTypeManual, 50, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := m.Create(userID, "Inbox zero", model.PriorityTypeManual, 60, i+1); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	// Same title, different type: not a duplicate.
	if _, err := m.Create(userID, "Inbox zero", model.PriorityTypeAIRecommended, 80, 3); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	removed, err := m.Deduplicate(userID, time.Now())
	if err != nil {
		t.Fatalf("Deduplicate failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 duplicates removed, got %d", removed)
	}

	active, err := m.List(userID, false)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active priorities, got %d", len(active))
	}
	foundKeeper := false
	for _, p := range active {
		if p.ID == keeper.ID {
			foundKeeper = true
		}
	}
	if !foundKeeper {
		t.Error("expected the earliest-created duplicate to survive")
	}

	// A second run finds nothing to remove.
	removed, err = m.Deduplicate(userID, time.Now())
	if err != nil {
		t.Fatalf("Deduplicate failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected idempotent re-run to remove 0, got %d", removed)
	}
}

func TestCleanupExpired(t *testing.T) {
	m, userID := setupManagerTest(t)
	now := time.Now()

	old, err := m.Create(userID, "Old", model.PriorityTypeManual, 50, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	fresh, err := m.Create(userID, "Fresh", model.PriorityTypeManual, 50, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := m.SoftDelete(userID, old.ID, now.Add(-25*time.Hour)); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if err := m.SoftDelete(userID, fresh.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	purged, err := m.CleanupExpired(now)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 priority purged, got %d", purged)
	}

	// The fresh deletion is still restorable.
	if _, err := m.Restore(userID, fresh.ID); err != nil {
		t.Errorf("expected fresh deletion restorable, got %v", err)
	}
	if _, err := m.Restore(userID, old.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected expired deletion gone, got %v", err)
	}
}
