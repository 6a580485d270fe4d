package store

import (
	"testing"
	"time"

	"github.com/stridehq/stride/internal/database"
	"github.com/stridehq/stride/internal/model"
)

func setupPriorityTestDB(t *testing.T) (*PriorityStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPriorityStore(db), NewUserStore(db)
}

func TestPriorityCreateAndGet(t *testing.T) {
	ps, us := setupPriorityTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")

	p, err := ps.Create(u.ID, "Ship the report", model.PriorityTypeManual, 80, 0)
	if err != nil {
		t.Fatalf("create priority: %v", err)
	}
	if p.Title != "Ship the report" {
		t.Errorf("title = %q, want %q", p.Title, "Ship the report")
	}
	if p.IsDeleted {
		t.Error("new priority should not be deleted")
	}
	if p.DeletedAt != nil {
		t.Error("new priority should have nil deleted_at")
	}
}

func TestPriorityUserScoping(t *testing.T) {
	ps, us := setupPriorityTestDB(t)

	alice, _ := us.Create("alice@example.com", "Alice", "hash")
	bob, _ := us.Create("bob@example.com", "Bob", "hash")

	p, _ := ps.Create(alice.ID, "Alice's item", model.PriorityTypeManual, 50, 0)

	got, err := ps.GetByID(p.ID, bob.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil when reading another user's priority")
	}

	// Mutations from the wrong user are no-ops.
	changed, err := ps.SoftDelete(p.ID, bob.ID, time.Now())
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if changed {
		t.Error("expected no change for foreign user")
	}
}

func TestPrioritySoftDeleteRestore(t *testing.T) {
	ps, us := setupPriorityTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	p, _ := ps.Create(u.ID, "Item", model.PriorityTypeManual, 50, 0)

	changed, err := ps.SoftDelete(p.ID, u.ID, time.Now())
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if !changed {
		t.Fatal("expected soft delete to apply")
	}

	got, _ := ps.GetByID(p.ID, u.ID)
	if !got.IsDeleted {
		t.Error("expected is_deleted = true")
	}
	if got.DeletedAt == nil {
		t.Error("expected deleted_at set")
	}

	// Soft delete again is a no-op.
	changed, _ = ps.SoftDelete(p.ID, u.ID, time.Now())
	if changed {
		t.Error("expected repeat soft delete to be a no-op")
	}

	changed, err = ps.Restore(p.ID, u.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !changed {
		t.Fatal("expected restore to apply")
	}

	got, _ = ps.GetByID(p.ID, u.ID)
	if got.IsDeleted {
		t.Error("expected is_deleted = false after restore")
	}
	if got.DeletedAt != nil {
		t.Error("expected deleted_at cleared after restore")
	}
}

func TestPriorityRestoreNeverDeleted(t *testing.T) {
	ps, us := setupPriorityTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	p, _ := ps.Create(u.ID, "Item", model.PriorityTypeManual, 50, 0)

	changed, err := ps.Restore(p.ID, u.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if changed {
		t.Error("expected restore of active priority to be rejected")
	}
}

func TestPriorityPurgeRequiresSoftDeleted(t *testing.T) {
	ps, us := setupPriorityTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	p, _ := ps.Create(u.ID, "Item", model.PriorityTypeManual, 50, 0)

	changed, err := ps.Purge(p.ID, u.ID)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if changed {
		t.Error("expected purge of active priority to be rejected")
	}

	ps.SoftDelete(p.ID, u.ID, time.Now())

	changed, err = ps.Purge(p.ID, u.ID)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if !changed {
		t.Fatal("expected purge to apply")
	}

	got, _ := ps.GetByID(p.ID, u.ID)
	if got != nil {
		t.Error("expected nil after purge")
	}
}

func TestPriorityListExcludesDeleted(t *testing.T) {
	ps, us := setupPriorityTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	ps.Create(u.ID, "Keep", model.PriorityTypeManual, 50, 0)
	gone, _ := ps.Create(u.ID, "Gone", model.PriorityTypeManual, 50, 1)
	ps.SoftDelete(gone.ID, u.ID, time.Now())

	visible, err := ps.ListByUser(u.ID, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("expected 1 visible priority, got %d", len(visible))
	}
	if visible[0].Title != "Keep" {
		t.Errorf("title = %q, want %q", visible[0].Title, "Keep")
	}

	all, err := ps.ListByUser(u.ID, true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 priorities with deleted, got %d", len(all))
	}
}

func TestPriorityListExpired(t *testing.T) {
	ps, us := setupPriorityTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	now := time.Now().UTC()

	old, _ := ps.Create(u.ID, "Old", model.PriorityTypeManual, 50, 0)
	recent, _ := ps.Create(u.ID, "Recent", model.PriorityTypeManual, 50, 1)

	ps.SoftDelete(old.ID, u.ID, now.Add(-25*time.Hour))
	ps.SoftDelete(recent.ID, u.ID, now.Add(-23*time.Hour))

	expired, err := ps.ListExpired(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired priority, got %d", len(expired))
	}
	if expired[0].Title != "Old" {
		t.Errorf("title = %q, want %q", expired[0].Title, "Old")
	}
}

func TestPriorityUpdateOrder(t *testing.T) {
	ps, us := setupPriorityTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	a, _ := ps.Create(u.ID, "A", model.PriorityTypeManual, 50, 0)
	b, _ := ps.Create(u.ID, "B", model.PriorityTypeManual, 50, 1)
	c, _ := ps.Create(u.ID, "C", model.PriorityTypeManual, 50, 2)

	if err := ps.UpdateOrder(u.ID, []int64{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("update order: %v", err)
	}

	list, _ := ps.ListByUser(u.ID, false)
	if len(list) != 3 {
		t.Fatalf("expected 3 priorities, got %d", len(list))
	}
	if list[0].Title != "C" || list[1].Title != "A" || list[2].Title != "B" {
		t.Errorf("order = %q,%q,%q, want C,A,B", list[0].Title, list[1].Title, list[2].Title)
	}
}
