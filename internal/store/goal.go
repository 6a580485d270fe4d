package store

import (
	"database/sql"
	"fmt"

	"github.com/stridehq/stride/internal/model"
)

type GoalStore struct {
	db *sql.DB
}

func NewGoalStore(db *sql.DB) *GoalStore {
	return &GoalStore{db: db}
}

func scanGoal(scanner interface{ Scan(...any) error }) (*model.Goal, error) {
	var g model.Goal
	err := scanner.Scan(
		&g.ID, &g.UserID, &g.Title, &g.Description,
		&g.TargetValue, &g.CurrentValue, &g.Status,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

const goalCols = `id, user_id, title, description, target_value, current_value, status, created_at, updated_at`

func (s *GoalStore) Create(userID int64, title, description string, targetValue int64) (*model.Goal, error) {
	result, err := s.db.Exec(
		`INSERT INTO goals (user_id, title, description, target_value) VALUES (?, ?, ?, ?)`,
		userID, title, description, targetValue,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

// GetByID is scoped to the owning user; a goal owned by someone else reads
// the same as one that does not exist.
func (s *GoalStore) GetByID(id, userID int64) (*model.Goal, error) {
	row := s.db.QueryRow(`SELECT `+goalCols+` FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (s *GoalStore) ListByUser(userID int64) ([]model.Goal, error) {
	rows, err := s.db.Query(
		`SELECT `+goalCols+` FROM goals WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func (s *GoalStore) Update(id, userID int64, title, description string, targetValue int64, status model.GoalStatus) (*model.Goal, error) {
	_, err := s.db.Exec(
		`UPDATE goals SET title = ?, description = ?, target_value = ?, status = ?, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ?`,
		title, description, targetValue, status, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return s.GetByID(id, userID)
}

// Delete removes the goal. Its ledger entries survive with the goal
// attribution nulled out: the ledger is audit history.
func (s *GoalStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

// ApplyProgress persists a reconciled progress update: the new cached value,
// the status transition, and the ledger delta land in one transaction so the
// cache-coherence invariant cannot be broken by a partial write.
func (s *GoalStore) ApplyProgress(id, userID, newValue int64, status model.GoalStatus, delta int64, description string) (*model.Goal, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE goals SET current_value = ?, status = ?, updated_at = datetime('now') WHERE id = ? AND user_id = ?`,
		newValue, status, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update goal progress: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	if delta != 0 {
		if _, err := insertEntry(tx, userID, delta, &id, nil, description); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit progress: %w", err)
	}
	return s.GetByID(id, userID)
}
