package achievement

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stridehq/stride/internal/database"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
	"github.com/stridehq/stride/internal/streak"
)

type engineFixture struct {
	engine  *Engine
	habits  *store.HabitStore
	streaks *store.StreakStore
	tracker *streak.Tracker
	trophy  *store.TrophyStore
	userID  int64
}

func setupEngineTest(t *testing.T) *engineFixture {
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
	u, err := users.Create("engine@example.com", "Engine", "hash")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	habits := store.NewHabitStore(db)
	streaks := store.NewStreakStore(db)
	trophies := store.NewTrophyStore(db)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &engineFixture{
		engine:  NewEngine(trophies, habits, streaks, log),
		habits:  habits,
		streaks: streaks,
		tracker: streak.NewTracker(streaks),
		trophy:  trophies,
		userID:  u.ID,
	}
}

// checkIn runs the full habit check-in path the handlers use: record the
// completion, fold it into the streak, then run the awarders.
func (f *engineFixture) checkIn(t *testing.T, habitID int64, day string) []model.Trophy {
	t.Helper()
	if _, err := f.habits.CreateCompletion(habitID, f.userID, day); err != nil {
		t.Fatalf("failed to record completion: %v", err)
	}
	if _, err := f.tracker.RecordEvent(f.userID, &habitID, day); err != nil {
		t.Fatalf("failed to advance streak: %v", err)
	}
	return f.engine.CheckHabit(f.userID, habitID)
}

func TestCheckHabitAwardsFirstCompletion(t *testing.T) {
	f := setupEngineTest(t)
	habit, err := f.habits.Create(f.userID, "Stretch", "", 5)
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	awarded := f.checkIn(t, habit.ID, "2026-03-01")

	// One completion reaches only the total-family threshold of 1.
	if len(awarded) != 1 {
		t.Fatalf("expected 1 trophy, got %d", len(awarded))
	}
	if awarded[0].Threshold != 1 {
		t.Errorf("expected threshold-1 trophy, got threshold %d", awarded[0].Threshold)
	}
}

func TestCheckHabitStreakThreshold(t *testing.T) {
	f := setupEngineTest(t)
	habit, err := f.habits.Create(f.userID, "Stretch", "", 5)
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	f.checkIn(t, habit.ID, "2026-03-01")
	f.checkIn(t, habit.ID, "2026-03-02")
	awarded := f.checkIn(t, habit.ID, "2026-03-03")

	// Day 3 crosses the 3-day streak threshold.
	found := false
	for _, tr := range awarded {
		if tr.Threshold == 3 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a threshold-3 streak trophy on day 3, got %+v", awarded)
	}
}

func TestCheckHabitAwardOnce(t *testing.T) {
	f := setupEngineTest(t)
	habit, err := f.habits.Create(f.userID, "Stretch", "", 5)
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	f.checkIn(t, habit.ID, "2026-03-01")
	awarded := f.checkIn(t, habit.ID, "2026-03-02")

	for _, tr := range awarded {
		if tr.Threshold == 1 {
			t.Error("expected the threshold-1 total trophy to be awarded only once")
		}
	}
}

func TestStreakTrophiesScopedPerHabit(t *testing.T) {
	f := setupEngineTest(t)
	first, err := f.habits.Create(f.userID, "Stretch", "", 5)
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	second, err := f.habits.Create(f.userID, "Journal", "", 5)
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	for _, day := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		f.checkIn(t, first.ID, day)
		f.checkIn(t, second.ID, day)
	}

	firstHeld, err := f.trophy.AwardedIDs(f.userID, model.TrophyFamilyHabitStreak, &first.ID)
	if err != nil {
		t.Fatalf("AwardedIDs failed: %v", err)
	}
	secondHeld, err := f.trophy.AwardedIDs(f.userID, model.TrophyFamilyHabitStreak, &second.ID)
	if err != nil {
		t.Fatalf("AwardedIDs failed: %v", err)
	}
	if len(firstHeld) != 1 || len(secondHeld) != 1 {
		t.Errorf("expected each habit to hold its own streak trophy, got %d and %d", len(firstHeld), len(secondHeld))
	}
}

func TestCheckSigninMultiAwardCatchUp(t *testing.T) {
	f := setupEngineTest(t)

	// A streak that was never checked until day 7: both the 3-day and the
	// 7-day trophies issue in one call, ascending by threshold.
	days := []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07"}
	for _, day := range days {
		if _, err := f.tracker.RecordEvent(f.userID, nil, day); err != nil {
			t.Fatalf("failed to advance streak: %v", err)
		}
	}

	awarded := f.engine.CheckSignin(f.userID)
	if len(awarded) != 2 {
		t.Fatalf("expected 2 trophies, got %d", len(awarded))
	}
	if awarded[0].Threshold != 3 || awarded[1].Threshold != 7 {
		t.Errorf("expected thresholds [3 7], got [%d %d]", awarded[0].Threshold, awarded[1].Threshold)
	}

	// Re-check awards nothing new.
	if again := f.engine.CheckSignin(f.userID); len(again) != 0 {
		t.Errorf("expected no trophies on re-check, got %d", len(again))
	}
}

func TestCheckSigninBelowThreshold(t *testing.T) {
	f := setupEngineTest(t)

	if _, err := f.tracker.RecordEvent(f.userID, nil, "2026-03-01"); err != nil {
		t.Fatalf("failed to advance streak: %v", err)
	}
	if awarded := f.engine.CheckSignin(f.userID); len(awarded) != 0 {
		t.Errorf("expected no trophies below the first threshold, got %d", len(awarded))
	}
}
