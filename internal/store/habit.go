package store

import (
	"database/sql"
	"fmt"

	"github.com/stridehq/stride/internal/model"
)

type HabitStore struct {
	db *sql.DB
}

func NewHabitStore(db *sql.DB) *HabitStore {
	return &HabitStore{db: db}
}

func scanHabit(scanner interface{ Scan(...any) error }) (*model.Habit, error) {
	var h model.Habit
	var active int

	err := scanner.Scan(&h.ID, &h.UserID, &h.Title, &h.Description, &h.Points, &active, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}

	h.IsActive = active != 0
	return &h, nil
}

const habitCols = `id, user_id, title, description, points, is_active, created_at, updated_at`

func (s *HabitStore) Create(userID int64, title, description string, points int) (*model.Habit, error) {
	result, err := s.db.Exec(
		`INSERT INTO habits (user_id, title, description, points) VALUES (?, ?, ?, ?)`,
		userID, title, description, points,
	)
	if err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *HabitStore) GetByID(id, userID int64) (*model.Habit, error) {
	row := s.db.QueryRow(`SELECT `+habitCols+` FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

func (s *HabitStore) ListByUser(userID int64) ([]model.Habit, error) {
	rows, err := s.db.Query(
		`SELECT `+habitCols+` FROM habits WHERE user_id = ? ORDER BY is_active DESC, title ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

func (s *HabitStore) Update(id, userID int64, title, description string, points int, active bool) (*model.Habit, error) {
	var a int
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE habits SET title = ?, description = ?, points = ?, is_active = ?, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ?`,
		title, description, points, a, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *HabitStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

// --- Completion facts ---

func scanHabitCompletion(scanner interface{ Scan(...any) error }) (*model.HabitCompletion, error) {
	var c model.HabitCompletion
	err := scanner.Scan(&c.ID, &c.HabitID, &c.UserID, &c.CompletedOn, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const habitCompletionCols = `id, habit_id, user_id, completed_on, created_at`

// CreateCompletion records the habit as done on the given calendar day
// (YYYY-MM-DD). Days are unique per habit; a repeat for the same day returns
// (nil, nil) so callers can treat check-ins as idempotent.
func (s *HabitStore) CreateCompletion(habitID, userID int64, day string) (*model.HabitCompletion, error) {
	result, err := s.db.Exec(
		`INSERT INTO habit_completions (habit_id, user_id, completed_on) VALUES (?, ?, ?)`,
		habitID, userID, day,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("insert habit completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+habitCompletionCols+` FROM habit_completions WHERE id = ?`, id)
	return scanHabitCompletion(row)
}

// CheckIn records the completion fact, the points ledger entry, and the
// advanced streak (when st is non-nil) in one transaction. Nothing lands
// unless everything does, so a failed attempt leaves the day free to retry.
// A repeat for the day rolls back and returns (nil, nil).
func (s *HabitStore) CheckIn(habitID, userID int64, day string, points int64, description string, st *model.Streak) (*model.HabitCompletion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO habit_completions (habit_id, user_id, completed_on) VALUES (?, ?, ?)`,
		habitID, userID, day,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("insert habit completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if points != 0 {
		if _, err := insertEntry(tx, userID, points, nil, nil, description); err != nil {
			return nil, err
		}
	}
	if st != nil {
		if err := saveStreak(tx, *st); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit check-in: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+habitCompletionCols+` FROM habit_completions WHERE id = ?`, id)
	return scanHabitCompletion(row)
}

// CountCompletions counts completion facts for one habit.
func (s *HabitStore) CountCompletions(habitID, userID int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM habit_completions WHERE habit_id = ? AND user_id = ?`,
		habitID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count habit completions: %w", err)
	}
	return n, nil
}

// CountAllCompletions counts completion facts across all of the user's habits.
func (s *HabitStore) CountAllCompletions(userID int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM habit_completions WHERE user_id = ?`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count all habit completions: %w", err)
	}
	return n, nil
}

func (s *HabitStore) ListCompletions(habitID, userID int64, limit int) ([]model.HabitCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+habitCompletionCols+` FROM habit_completions
		 WHERE habit_id = ? AND user_id = ? ORDER BY completed_on DESC LIMIT ?`,
		habitID, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list habit completions: %w", err)
	}
	defer rows.Close()

	var completions []model.HabitCompletion
	for rows.Next() {
		c, err := scanHabitCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}
