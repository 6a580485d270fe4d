// Package progress reconciles percentage progress reports against a goal's
// cached absolute value and the points ledger.
package progress

import (
	"fmt"
	"math"

	"github.com/stridehq/stride/internal/apperr"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
)

// Reconciler turns percent reports into absolute goal values and ledger
// deltas. Reports are absolute positions, not increments: reporting 50 twice
// credits the user once.
type Reconciler struct {
	goals *store.GoalStore
}

func NewReconciler(goals *store.GoalStore) *Reconciler {
	return &Reconciler{goals: goals}
}

// SetProgress moves the goal to percent of its target. The cached value,
// status transition, and ledger delta are committed atomically; a regression
// writes a compensating negative entry so lifetime sums stay honest.
func (r *Reconciler) SetProgress(userID, goalID int64, percent float64) (*model.Goal, error) {
	if percent < 0 || percent > 100 {
		return nil, apperr.Invalid("percent", "must be between 0 and 100")
	}

	goal, err := r.goals.GetByID(goalID, userID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, apperr.ErrNotFound
	}

	newValue := int64(math.Round(percent / 100 * float64(goal.TargetValue)))
	delta := newValue - goal.CurrentValue

	status := model.GoalStatusActive
	if percent >= 100 {
		status = model.GoalStatusCompleted
	}

	description := fmt.Sprintf("Progress on %q", goal.Title)
	if delta < 0 {
		description = fmt.Sprintf("Progress reduced on %q", goal.Title)
	}

	updated, err := r.goals.ApplyProgress(goalID, userID, newValue, status, delta, description)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.ErrNotFound
	}
	return updated, nil
}
