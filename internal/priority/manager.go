// Package priority implements the focus-list lifecycle: create, reorder,
// soft-delete with a retention window, restore, purge, and deduplication.
package priority

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stridehq/stride/internal/apperr"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
)

// RetentionPeriod is how long a soft-deleted priority stays restorable before
// the maintenance sweep purges it.
const RetentionPeriod = 24 * time.Hour

// dedupeWorkers bounds the concurrent soft-deletes issued by Deduplicate.
const dedupeWorkers = 4

type Manager struct {
	priorities *store.PriorityStore
}

func NewManager(priorities *store.PriorityStore) *Manager {
	return &Manager{priorities: priorities}
}

func validate(title string, priorityType model.PriorityType, score float64) error {
	var violations []apperr.FieldViolation
	if title == "" {
		violations = append(violations, apperr.FieldViolation{Field: "title", Message: "must not be empty"})
	}
	switch priorityType {
	case model.PriorityTypeAIRecommended, model.PriorityTypeManual, model.PriorityTypeFireAuto:
	default:
		violations = append(violations, apperr.FieldViolation{Field: "priority_type", Message: "must be one of ai_recommended, manual, fire_auto"})
	}
	if score < 0 || score > 100 {
		violations = append(violations, apperr.FieldViolation{Field: "priority_score", Message: "must be between 0 and 100"})
	}
	if len(violations) > 0 {
		return &apperr.ValidationError{Violations: violations}
	}
	return nil
}

func (m *Manager) Create(userID int64, title string, priorityType model.PriorityType, score float64, orderIndex int) (*model.Priority, error) {
	if err := validate(title, priorityType, score); err != nil {
		return nil, err
	}
	return m.priorities.Create(userID, title, priorityType, score, orderIndex)
}

func (m *Manager) Get(userID, id int64) (*model.Priority, error) {
	p, err := m.priorities.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

// List returns the user's priorities; deleted rows are included only on
// request so the trash view can show them.
func (m *Manager) List(userID int64, includeDeleted bool) ([]model.Priority, error) {
	return m.priorities.ListByUser(userID, includeDeleted)
}

func (m *Manager) Update(userID, id int64, title string, priorityType model.PriorityType, score float64) (*model.Priority, error) {
	if err := validate(title, priorityType, score); err != nil {
		return nil, err
	}
	p, err := m.priorities.Update(id, userID, title, priorityType, score)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

func (m *Manager) SetCompleted(userID, id int64, completed bool) (*model.Priority, error) {
	p, err := m.priorities.SetCompleted(id, userID, completed)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

// resolveGuardMiss maps a guarded update that touched no rows to the right
// error kind: the row either does not exist for this user or is in the wrong
// lifecycle state.
func (m *Manager) resolveGuardMiss(userID, id int64) error {
	p, err := m.priorities.GetByID(id, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return apperr.ErrNotFound
	}
	return apperr.ErrInvalidState
}

// SoftDelete hides the priority and starts its retention clock. Deleting an
// already-deleted priority reports ErrInvalidState, not success: the repeat
// call must not reset deleted_at and silently extend the window.
func (m *Manager) SoftDelete(userID, id int64, now time.Time) error {
	ok, err := m.priorities.SoftDelete(id, userID, now)
	if err != nil {
		return err
	}
	if !ok {
		return m.resolveGuardMiss(userID, id)
	}
	return nil
}

// Restore returns a soft-deleted priority to the active list.
func (m *Manager) Restore(userID, id int64) (*model.Priority, error) {
	ok, err := m.priorities.Restore(id, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, m.resolveGuardMiss(userID, id)
	}
	return m.priorities.GetByID(id, userID)
}

// Purge permanently removes a soft-deleted priority. Active priorities must
// go through SoftDelete first.
func (m *Manager) Purge(userID, id int64) error {
	ok, err := m.priorities.Purge(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return m.resolveGuardMiss(userID, id)
	}
	return nil
}

// Reorder rewrites the manual ordering to match ids.
func (m *Manager) Reorder(userID int64, ids []int64) error {
	return m.priorities.UpdateOrder(userID, ids)
}

// Deduplicate soft-deletes active priorities that share a title and type with
// an earlier-created one, keeping the earliest. It returns how many were
// removed. Duplicates are removed concurrently; running it again on a clean
// list removes nothing.
func (m *Manager) Deduplicate(userID int64, now time.Time) (int, error) {
	active, err := m.priorities.ListActive(userID)
	if err != nil {
		return 0, err
	}

	// ListActive orders by created_at, so the first occurrence of each
	// title+type pair is the keeper.
	seen := make(map[string]bool, len(active))
	var duplicates []int64
	for _, p := range active {
		key := p.Title + "\x00" + string(p.PriorityType)
		if seen[key] {
			duplicates = append(duplicates, p.ID)
			continue
		}
		seen[key] = true
	}
	if len(duplicates) == 0 {
		return 0, nil
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		removed int
		errs    []error
	)
	g.SetLimit(dedupeWorkers)
	for _, id := range duplicates {
		g.Go(func() error {
			ok, err := m.priorities.SoftDelete(id, userID, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("deduplicate priority %d: %w", id, err))
				return nil
			}
			if ok {
				removed++
			}
			return nil
		})
	}
	g.Wait()

	return removed, apperr.Batch(removed, errs...)
}

// CleanupExpired purges every soft-deleted priority, across all users, whose
// retention window has elapsed as of now. It returns how many were removed.
func (m *Manager) CleanupExpired(now time.Time) (int, error) {
	expired, err := m.priorities.ListExpired(now.Add(-RetentionPeriod))
	if err != nil {
		return 0, err
	}

	purged := 0
	var errs []error
	for _, p := range expired {
		ok, err := m.priorities.Purge(p.ID, p.UserID)
		if err != nil {
			errs = append(errs, fmt.Errorf("purge priority %d: %w", p.ID, err))
			continue
		}
		if ok {
			purged++
		}
	}
	return purged, apperr.Batch(purged, errs...)
}
