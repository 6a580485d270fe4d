package store

import (
	"testing"
	"time"

	"github.com/stridehq/stride/internal/database"
)

func setupLedgerTestDB(t *testing.T) (*LedgerStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewLedgerStore(db), NewUserStore(db)
}

func TestLedgerAppendAndSum(t *testing.T) {
	ls, us := setupLedgerTestDB(t)

	u, err := us.Create("alice@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	entry, err := ls.Append(u.ID, 50, nil, nil, "Completed task")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.Points != 50 {
		t.Errorf("points = %d, want 50", entry.Points)
	}
	if entry.GoalID != nil || entry.TaskID != nil {
		t.Error("expected no attribution")
	}

	// Negative entries are accepted without question.
	if _, err := ls.Append(u.ID, -20, nil, nil, "Progress reduced"); err != nil {
		t.Fatalf("append negative: %v", err)
	}

	total, err := ls.SumForUser(u.ID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total != 30 {
		t.Errorf("total = %d, want 30", total)
	}
}

func TestLedgerSumScopes(t *testing.T) {
	ls, us := setupLedgerTestDB(t)

	alice, _ := us.Create("alice@example.com", "Alice", "hash")
	bob, _ := us.Create("bob@example.com", "Bob", "hash")

	ls.Append(alice.ID, 10, nil, nil, "")
	ls.Append(bob.ID, 99, nil, nil, "")

	total, err := ls.SumForUser(alice.ID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total != 10 {
		t.Errorf("alice total = %d, want 10", total)
	}
}

func TestLedgerSumEmptyScope(t *testing.T) {
	ls, us := setupLedgerTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")

	total, err := ls.SumForUser(u.ID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}

	goalTotal, err := ls.SumForGoal(999, u.ID)
	if err != nil {
		t.Fatalf("sum for goal: %v", err)
	}
	if goalTotal != 0 {
		t.Errorf("goal total = %d, want 0", goalTotal)
	}
}

func TestLedgerListNewestFirst(t *testing.T) {
	ls, us := setupLedgerTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	ls.Append(u.ID, 1, nil, nil, "first")
	ls.Append(u.ID, 2, nil, nil, "second")
	ls.Append(u.ID, 3, nil, nil, "third")

	entries, err := ls.ListByUser(u.ID, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Description != "third" {
		t.Errorf("entries[0].Description = %q, want %q", entries[0].Description, "third")
	}
	if entries[2].Description != "first" {
		t.Errorf("entries[2].Description = %q, want %q", entries[2].Description, "first")
	}

	limited, err := ls.ListByUser(u.ID, 2, 0)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 entries, got %d", len(limited))
	}
}

func TestLedgerSummary(t *testing.T) {
	ls, us := setupLedgerTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	ls.Append(u.ID, 25, nil, nil, "")
	ls.Append(u.ID, 5, nil, nil, "")

	summary, err := ls.Summary(u.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 30 {
		t.Errorf("total = %d, want 30", summary.Total)
	}
	if summary.Today != 30 {
		t.Errorf("today = %d, want 30", summary.Today)
	}
	if summary.Last7Days != 30 {
		t.Errorf("last 7 days = %d, want 30", summary.Last7Days)
	}
}

func TestLedgerDailyTotals(t *testing.T) {
	ls, us := setupLedgerTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	ls.Append(u.ID, 10, nil, nil, "")
	ls.Append(u.ID, 15, nil, nil, "")

	totals, err := ls.DailyTotals(u.ID, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("daily totals: %v", err)
	}
	if len(totals) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(totals))
	}
	if totals[0].Points != 25 {
		t.Errorf("bucket points = %d, want 25", totals[0].Points)
	}
}
