package store

import (
	"testing"
	"time"

	"github.com/stridehq/stride/internal/database"
)

func setupTaskTestDB(t *testing.T) (*TaskStore, *LedgerStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTaskStore(db), NewLedgerStore(db), NewUserStore(db)
}

func TestTaskCompleteWritesLedger(t *testing.T) {
	ts, ls, us := setupTaskTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	task, _ := ts.Create(u.ID, nil, "Write report", 15)

	done, err := ts.Complete(task.ID, u.ID, time.Now())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done == nil {
		t.Fatal("expected completed task")
	}
	if !done.IsCompleted {
		t.Error("expected is_completed = true")
	}
	if done.CompletedAt == nil {
		t.Error("expected completed_at set")
	}

	sum, _ := ls.SumForTask(task.ID, u.ID)
	if sum != 15 {
		t.Errorf("ledger sum = %d, want 15", sum)
	}
}

func TestTaskCompleteTwice(t *testing.T) {
	ts, ls, us := setupTaskTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	task, _ := ts.Create(u.ID, nil, "Write report", 15)

	ts.Complete(task.ID, u.ID, time.Now())

	again, err := ts.Complete(task.ID, u.ID, time.Now())
	if err != nil {
		t.Fatalf("complete twice: %v", err)
	}
	if again != nil {
		t.Error("expected nil for already-completed task")
	}

	// No double ledger credit.
	sum, _ := ls.SumForTask(task.ID, u.ID)
	if sum != 15 {
		t.Errorf("ledger sum = %d, want 15", sum)
	}
}

func TestTaskUncompleteCompensates(t *testing.T) {
	ts, ls, us := setupTaskTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	task, _ := ts.Create(u.ID, nil, "Write report", 15)

	ts.Complete(task.ID, u.ID, time.Now())

	reverted, err := ts.Uncomplete(task.ID, u.ID)
	if err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if reverted == nil {
		t.Fatal("expected reverted task")
	}
	if reverted.IsCompleted {
		t.Error("expected is_completed = false")
	}

	// The original entry stays; a compensating entry zeroes the balance.
	entries, _ := ls.ListByUser(u.ID, 10, 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	sum, _ := ls.SumForTask(task.ID, u.ID)
	if sum != 0 {
		t.Errorf("ledger sum = %d, want 0", sum)
	}
}

func TestTaskUncompleteNotCompleted(t *testing.T) {
	ts, _, us := setupTaskTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	task, _ := ts.Create(u.ID, nil, "Write report", 15)

	got, err := ts.Uncomplete(task.ID, u.ID)
	if err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if got != nil {
		t.Error("expected nil for never-completed task")
	}
}

func TestTaskCompleteZeroPoints(t *testing.T) {
	ts, ls, us := setupTaskTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	task, _ := ts.Create(u.ID, nil, "Free chore", 0)

	done, err := ts.Complete(task.ID, u.ID, time.Now())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done == nil || !done.IsCompleted {
		t.Fatal("expected completion to apply")
	}

	entries, _ := ls.ListByUser(u.ID, 10, 0)
	if len(entries) != 0 {
		t.Errorf("expected no ledger entries for zero-point task, got %d", len(entries))
	}
}

func TestTaskCompleteDoesNotAttributeGoal(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ts, ls, us := NewTaskStore(db), NewLedgerStore(db), NewUserStore(db)
	gs := NewGoalStore(db)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	goal, _ := gs.Create(u.ID, "Read 12 books", "", 12)
	task, _ := ts.Create(u.ID, &goal.ID, "Finish chapter", 15)

	if _, err := ts.Complete(task.ID, u.ID, time.Now()); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Per-goal sums track only reconciler entries, so a goal-linked task
	// completion credits the user without touching the goal's total.
	goalSum, _ := ls.SumForGoal(goal.ID, u.ID)
	if goalSum != 0 {
		t.Errorf("goal sum = %d, want 0", goalSum)
	}
	userSum, _ := ls.SumForUser(u.ID)
	if userSum != 15 {
		t.Errorf("user sum = %d, want 15", userSum)
	}
	taskSum, _ := ls.SumForTask(task.ID, u.ID)
	if taskSum != 15 {
		t.Errorf("task sum = %d, want 15", taskSum)
	}
}
