// Package achievement awards threshold trophies from user activity counts.
// Awarding is an at-most-once side effect: the unique index on user_trophies
// is the source of truth, so concurrent checks can race freely.
package achievement

import (
	"fmt"

	"github.com/stridehq/stride/internal/apperr"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
)

// CountFunc reports the metric an awarder thresholds against. scopeID is the
// habit id for per-habit families and nil for user-wide ones.
type CountFunc func(userID int64, scopeID *int64) (int, error)

// Awarder checks one trophy family against its count source.
type Awarder struct {
	family   model.TrophyFamily
	trophies *store.TrophyStore
	count    CountFunc
}

func NewAwarder(family model.TrophyFamily, trophies *store.TrophyStore, count CountFunc) *Awarder {
	return &Awarder{family: family, trophies: trophies, count: count}
}

// CheckAndAward issues every trophy in the family whose threshold the current
// count has reached and that the user does not already hold, ascending by
// threshold. It returns the trophies newly awarded by this call. Individual
// insert failures do not stop the batch; they come back combined in a
// BatchError alongside whatever did land.
func (a *Awarder) CheckAndAward(userID int64, scopeID *int64) ([]model.Trophy, error) {
	count, err := a.count(userID, scopeID)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", a.family, err)
	}

	eligible, err := a.trophies.ListEligible(a.family, count)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	held, err := a.trophies.AwardedIDs(userID, a.family, scopeID)
	if err != nil {
		return nil, err
	}

	var awarded []model.Trophy
	var errs []error
	for _, trophy := range eligible {
		if held[trophy.ID] {
			continue
		}
		ut, err := a.trophies.Award(userID, a.family, trophy.ID, scopeID)
		if err != nil {
			errs = append(errs, fmt.Errorf("award %s trophy %d: %w", a.family, trophy.ID, err))
			continue
		}
		if ut == nil {
			// A concurrent check got there first.
			continue
		}
		awarded = append(awarded, trophy)
	}
	return awarded, apperr.Batch(len(awarded), errs...)
}
