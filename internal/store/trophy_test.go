package store

import (
	"testing"

	"github.com/stridehq/stride/internal/database"
	"github.com/stridehq/stride/internal/model"
)

func setupTrophyTestDB(t *testing.T) (*TrophyStore, *UserStore, *HabitStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTrophyStore(db), NewUserStore(db), NewHabitStore(db)
}

func TestTrophyListEligibleAscending(t *testing.T) {
	ts, _, _ := setupTrophyTestDB(t)

	// Seeded thresholds for sign-in trophies: 3, 7, 30, 365.
	eligible, err := ts.ListEligible(model.TrophyFamilySignin, 10)
	if err != nil {
		t.Fatalf("list eligible: %v", err)
	}
	if len(eligible) != 2 {
		t.Fatalf("expected 2 eligible trophies, got %d", len(eligible))
	}
	if eligible[0].Threshold != 3 || eligible[1].Threshold != 7 {
		t.Errorf("thresholds = %d,%d, want 3,7", eligible[0].Threshold, eligible[1].Threshold)
	}
}

func TestTrophyListEligibleNone(t *testing.T) {
	ts, _, _ := setupTrophyTestDB(t)

	eligible, err := ts.ListEligible(model.TrophyFamilySignin, 2)
	if err != nil {
		t.Fatalf("list eligible: %v", err)
	}
	if len(eligible) != 0 {
		t.Errorf("expected no eligible trophies, got %d", len(eligible))
	}
}

func TestTrophyUnknownFamily(t *testing.T) {
	ts, _, _ := setupTrophyTestDB(t)

	if _, err := ts.ListEligible(model.TrophyFamily("bogus"), 10); err == nil {
		t.Error("expected error for unknown family")
	}
}

func TestTrophyAwardOnce(t *testing.T) {
	ts, us, _ := setupTrophyTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	trophies, _ := ts.ListFamily(model.TrophyFamilySignin)

	awarded, err := ts.Award(u.ID, model.TrophyFamilySignin, trophies[0].ID, nil)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if awarded == nil {
		t.Fatal("expected first award to succeed")
	}

	// Duplicate insert is rejected by the unique index, not an error.
	dup, err := ts.Award(u.ID, model.TrophyFamilySignin, trophies[0].ID, nil)
	if err != nil {
		t.Fatalf("duplicate award: %v", err)
	}
	if dup != nil {
		t.Error("expected duplicate award to return nil")
	}

	ids, err := ts.AwardedIDs(u.ID, model.TrophyFamilySignin, nil)
	if err != nil {
		t.Fatalf("awarded ids: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("expected 1 awarded id, got %d", len(ids))
	}
}

func TestTrophyAwardScopedPerHabit(t *testing.T) {
	ts, us, hs := setupTrophyTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	reading, _ := hs.Create(u.ID, "Reading", "", 5)
	running, _ := hs.Create(u.ID, "Running", "", 5)
	trophies, _ := ts.ListFamily(model.TrophyFamilyHabitStreak)

	first, err := ts.Award(u.ID, model.TrophyFamilyHabitStreak, trophies[0].ID, &reading.ID)
	if err != nil {
		t.Fatalf("award reading: %v", err)
	}
	if first == nil {
		t.Fatal("expected award for reading habit")
	}

	// Same trophy for a different habit is a distinct award.
	second, err := ts.Award(u.ID, model.TrophyFamilyHabitStreak, trophies[0].ID, &running.ID)
	if err != nil {
		t.Fatalf("award running: %v", err)
	}
	if second == nil {
		t.Fatal("expected award for running habit")
	}

	// Repeat for the same habit is not.
	dup, err := ts.Award(u.ID, model.TrophyFamilyHabitStreak, trophies[0].ID, &reading.ID)
	if err != nil {
		t.Fatalf("duplicate award: %v", err)
	}
	if dup != nil {
		t.Error("expected duplicate per-habit award to return nil")
	}

	readingIDs, _ := ts.AwardedIDs(u.ID, model.TrophyFamilyHabitStreak, &reading.ID)
	if len(readingIDs) != 1 {
		t.Errorf("expected 1 reading award, got %d", len(readingIDs))
	}
}

func TestTrophyListAwardedWithDetails(t *testing.T) {
	ts, us, _ := setupTrophyTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	signin, _ := ts.ListFamily(model.TrophyFamilySignin)
	totals, _ := ts.ListFamily(model.TrophyFamilyHabitTotal)

	ts.Award(u.ID, model.TrophyFamilySignin, signin[0].ID, nil)
	ts.Award(u.ID, model.TrophyFamilyHabitTotal, totals[0].ID, nil)

	awarded, err := ts.ListAwarded(u.ID)
	if err != nil {
		t.Fatalf("list awarded: %v", err)
	}
	if len(awarded) != 2 {
		t.Fatalf("expected 2 awards, got %d", len(awarded))
	}
	for _, a := range awarded {
		if a.Name == "" {
			t.Errorf("award %d has empty name", a.ID)
		}
		if a.Threshold == 0 {
			t.Errorf("award %d has zero threshold", a.ID)
		}
	}
}
