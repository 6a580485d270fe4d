package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/stridehq/stride/internal/model"
)

type PriorityStore struct {
	db *sql.DB
}

func NewPriorityStore(db *sql.DB) *PriorityStore {
	return &PriorityStore{db: db}
}

func scanPriority(scanner interface{ Scan(...any) error }) (*model.Priority, error) {
	var p model.Priority
	var completed, deleted int
	var deletedAt sql.NullTime

	err := scanner.Scan(
		&p.ID, &p.UserID, &p.Title, &p.PriorityType, &p.PriorityScore,
		&p.OrderIndex, &completed, &deleted, &deletedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.IsCompleted = completed != 0
	p.IsDeleted = deleted != 0
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Time
	}
	return &p, nil
}

const priorityCols = `id, user_id, title, priority_type, priority_score, order_index, is_completed, is_deleted, deleted_at, created_at, updated_at`

func (s *PriorityStore) Create(userID int64, title string, priorityType model.PriorityType, score float64, orderIndex int) (*model.Priority, error) {
	result, err := s.db.Exec(
		`INSERT INTO priorities (user_id, title, priority_type, priority_score, order_index) VALUES (?, ?, ?, ?, ?)`,
		userID, title, priorityType, score, orderIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("insert priority: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *PriorityStore) GetByID(id, userID int64) (*model.Priority, error) {
	row := s.db.QueryRow(`SELECT `+priorityCols+` FROM priorities WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanPriority(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get priority: %w", err)
	}
	return p, nil
}

// ListByUser returns the user's priorities; soft-deleted rows are excluded
// unless includeDeleted is set.
func (s *PriorityStore) ListByUser(userID int64, includeDeleted bool) ([]model.Priority, error) {
	query := `SELECT ` + priorityCols + ` FROM priorities WHERE user_id = ?`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}
	query += ` ORDER BY is_deleted ASC, order_index ASC, priority_score DESC, created_at ASC`

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("list priorities: %w", err)
	}
	defer rows.Close()
	return collectPriorities(rows)
}

// ListActive returns non-deleted priorities oldest first; deduplication
// depends on this ordering to keep the earliest-created duplicate.
func (s *PriorityStore) ListActive(userID int64) ([]model.Priority, error) {
	rows, err := s.db.Query(
		`SELECT `+priorityCols+` FROM priorities WHERE user_id = ? AND is_deleted = 0 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active priorities: %w", err)
	}
	defer rows.Close()
	return collectPriorities(rows)
}

func collectPriorities(rows *sql.Rows) ([]model.Priority, error) {
	var priorities []model.Priority
	for rows.Next() {
		p, err := scanPriority(rows)
		if err != nil {
			return nil, fmt.Errorf("scan priority: %w", err)
		}
		priorities = append(priorities, *p)
	}
	return priorities, rows.Err()
}

func (s *PriorityStore) Update(id, userID int64, title string, priorityType model.PriorityType, score float64) (*model.Priority, error) {
	_, err := s.db.Exec(
		`UPDATE priorities SET title = ?, priority_type = ?, priority_score = ?, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ?`,
		title, priorityType, score, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update priority: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *PriorityStore) SetCompleted(id, userID int64, completed bool) (*model.Priority, error) {
	var c int
	if completed {
		c = 1
	}
	_, err := s.db.Exec(
		`UPDATE priorities SET is_completed = ?, updated_at = datetime('now') WHERE id = ? AND user_id = ?`,
		c, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("set priority completed: %w", err)
	}
	return s.GetByID(id, userID)
}

// SoftDelete hides an active priority. The guard on is_deleted makes the
// returned bool a reliable state-transition signal: false means the row was
// missing, foreign, or already deleted.
func (s *PriorityStore) SoftDelete(id, userID int64, now time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE priorities SET is_deleted = 1, deleted_at = ?, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ? AND is_deleted = 0`,
		now.UTC(), id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("soft delete priority: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Restore returns a soft-deleted priority to the active state.
func (s *PriorityStore) Restore(id, userID int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE priorities SET is_deleted = 0, deleted_at = NULL, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ? AND is_deleted = 1`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("restore priority: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Purge permanently removes a soft-deleted priority.
func (s *PriorityStore) Purge(id, userID int64) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM priorities WHERE id = ? AND user_id = ? AND is_deleted = 1`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("purge priority: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListExpired returns soft-deleted priorities across all users whose
// deleted_at is at or before the cutoff. The scheduled sweep purges these.
func (s *PriorityStore) ListExpired(cutoff time.Time) ([]model.Priority, error) {
	rows, err := s.db.Query(
		`SELECT `+priorityCols+` FROM priorities WHERE is_deleted = 1 AND deleted_at <= ? ORDER BY user_id ASC, id ASC`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list expired priorities: %w", err)
	}
	defer rows.Close()
	return collectPriorities(rows)
}

// UpdateOrder rewrites order_index to match the given id sequence. Rows not
// owned by the user are silently skipped by the scoped update.
func (s *PriorityStore) UpdateOrder(userID int64, ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.Exec(
			`UPDATE priorities SET order_index = ?, updated_at = datetime('now') WHERE id = ? AND user_id = ?`,
			i, id, userID,
		); err != nil {
			return fmt.Errorf("update order index: %w", err)
		}
	}
	return tx.Commit()
}
