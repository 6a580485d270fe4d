package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/stridehq/stride/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var goalID sql.NullInt64
	var completed int
	var completedAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.UserID, &goalID, &t.Title, &t.Points,
		&completed, &completedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.IsCompleted = completed != 0
	if goalID.Valid {
		t.GoalID = &goalID.Int64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

const taskCols = `id, user_id, goal_id, title, points, is_completed, completed_at, created_at, updated_at`

func (s *TaskStore) Create(userID int64, goalID *int64, title string, points int) (*model.Task, error) {
	var gID sql.NullInt64
	if goalID != nil {
		gID = sql.NullInt64{Int64: *goalID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (user_id, goal_id, title, points) VALUES (?, ?, ?, ?)`,
		userID, gID, title, points,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *TaskStore) GetByID(id, userID int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByUser(userID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE user_id = ? ORDER BY is_completed ASC, created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id, userID int64, goalID *int64, title string, points int) (*model.Task, error) {
	var gID sql.NullInt64
	if goalID != nil {
		gID = sql.NullInt64{Int64: *goalID, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET goal_id = ?, title = ?, points = ?, updated_at = datetime('now') WHERE id = ? AND user_id = ?`,
		gID, title, points, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *TaskStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// Complete marks the task done and appends its points to the ledger in one
// transaction. The update is guarded on is_completed = 0; a task that was
// already completed (or is missing) returns (nil, nil) with nothing written.
func (s *TaskStore) Complete(id, userID int64, now time.Time) (*model.Task, error) {
	task, err := s.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE tasks SET is_completed = 1, completed_at = ?, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ? AND is_completed = 0`,
		now.UTC(), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	if task.Points != 0 {
		// Task entries carry only the task id. Goal attribution is reserved
		// for reconciler entries so per-goal sums mirror goal current_value.
		desc := fmt.Sprintf("Completed task %q", task.Title)
		if _, err := insertEntry(tx, userID, int64(task.Points), nil, &id, desc); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}
	return s.GetByID(id, userID)
}

// Uncomplete reverts a completion and appends a compensating negative entry;
// the original entry stays in the ledger.
func (s *TaskStore) Uncomplete(id, userID int64) (*model.Task, error) {
	task, err := s.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE tasks SET is_completed = 0, completed_at = NULL, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ? AND is_completed = 1`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("uncomplete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	if task.Points != 0 {
		desc := fmt.Sprintf("Reverted completion of task %q", task.Title)
		if _, err := insertEntry(tx, userID, -int64(task.Points), nil, &id, desc); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit revert: %w", err)
	}
	return s.GetByID(id, userID)
}
