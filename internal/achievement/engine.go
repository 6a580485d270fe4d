package achievement

import (
	"log/slog"

	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
)

// Engine wires the three trophy families to their count sources:
// habit streaks (per habit), lifetime habit completions, and the sign-in
// streak. Callers invoke it after the triggering write has committed.
type Engine struct {
	habitStreak *Awarder
	habitTotal  *Awarder
	signin      *Awarder
	log         *slog.Logger
}

func NewEngine(trophies *store.TrophyStore, habits *store.HabitStore, streaks *store.StreakStore, log *slog.Logger) *Engine {
	streakCount := func(userID int64, scopeID *int64) (int, error) {
		st, err := streaks.Get(userID, scopeID)
		if err != nil || st == nil {
			return 0, err
		}
		return st.Current, nil
	}

	return &Engine{
		habitStreak: NewAwarder(model.TrophyFamilyHabitStreak, trophies, streakCount),
		habitTotal: NewAwarder(model.TrophyFamilyHabitTotal, trophies, func(userID int64, _ *int64) (int, error) {
			return habits.CountAllCompletions(userID)
		}),
		signin: NewAwarder(model.TrophyFamilySignin, trophies, streakCount),
		log:    log,
	}
}

// CheckHabit runs the per-habit streak family and the lifetime total family
// after a habit check-in. Award failures are logged, not propagated: the
// check-in already committed and the next check-in retries naturally.
func (e *Engine) CheckHabit(userID, habitID int64) []model.Trophy {
	var awarded []model.Trophy

	got, err := e.habitStreak.CheckAndAward(userID, &habitID)
	if err != nil {
		e.log.Error("habit streak award check failed", "user_id", userID, "habit_id", habitID, "error", err)
	}
	awarded = append(awarded, got...)

	got, err = e.habitTotal.CheckAndAward(userID, nil)
	if err != nil {
		e.log.Error("habit total award check failed", "user_id", userID, "error", err)
	}
	return append(awarded, got...)
}

// CheckSignin runs the sign-in streak family after a daily sign-in.
func (e *Engine) CheckSignin(userID int64) []model.Trophy {
	awarded, err := e.signin.CheckAndAward(userID, nil)
	if err != nil {
		e.log.Error("signin award check failed", "user_id", userID, "error", err)
	}
	return awarded
}
