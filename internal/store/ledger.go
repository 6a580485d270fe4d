package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/stridehq/stride/internal/model"
)

// LedgerStore is the append-only points ledger. Entries are never updated or
// deleted; every balance is a sum over entries in scope.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func scanEntry(scanner interface{ Scan(...any) error }) (*model.PointEntry, error) {
	var e model.PointEntry
	var goalID, taskID sql.NullInt64

	err := scanner.Scan(&e.ID, &e.UserID, &e.Points, &goalID, &taskID, &e.Description, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if goalID.Valid {
		e.GoalID = &goalID.Int64
	}
	if taskID.Valid {
		e.TaskID = &taskID.Int64
	}
	return &e, nil
}

const entryCols = `id, user_id, points, goal_id, task_id, description, created_at`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// insertEntry writes one ledger row on any execer so callers holding a
// transaction (goal progress, task completion) can append atomically with
// their own writes.
func insertEntry(e execer, userID, points int64, goalID, taskID *int64, description string) (int64, error) {
	var gID, tID sql.NullInt64
	if goalID != nil {
		gID = sql.NullInt64{Int64: *goalID, Valid: true}
	}
	if taskID != nil {
		tID = sql.NullInt64{Int64: *taskID, Valid: true}
	}

	result, err := e.Exec(
		`INSERT INTO point_entries (user_id, points, goal_id, task_id, description) VALUES (?, ?, ?, ?, ?)`,
		userID, points, gID, tID, description,
	)
	if err != nil {
		return 0, fmt.Errorf("insert point entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Append records a signed point delta. The sign is never validated here;
// negative entries represent rollbacks and spend.
func (s *LedgerStore) Append(userID, points int64, goalID, taskID *int64, description string) (*model.PointEntry, error) {
	id, err := insertEntry(s.db, userID, points, goalID, taskID, description)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`SELECT `+entryCols+` FROM point_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("get point entry: %w", err)
	}
	return entry, nil
}

func (s *LedgerStore) SumForUser(userID int64) (int64, error) {
	var total int64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM point_entries WHERE user_id = ?`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum points for user: %w", err)
	}
	return total, nil
}

func (s *LedgerStore) SumForGoal(goalID, userID int64) (int64, error) {
	var total int64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM point_entries WHERE goal_id = ? AND user_id = ?`,
		goalID, userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum points for goal: %w", err)
	}
	return total, nil
}

func (s *LedgerStore) SumForTask(taskID, userID int64) (int64, error) {
	var total int64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM point_entries WHERE task_id = ? AND user_id = ?`,
		taskID, userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum points for task: %w", err)
	}
	return total, nil
}

func (s *LedgerStore) SumForUserBetween(userID int64, start, end time.Time) (int64, error) {
	var total int64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM point_entries WHERE user_id = ? AND created_at >= ? AND created_at < ?`,
		userID, start.UTC(), end.UTC(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum points in window: %w", err)
	}
	return total, nil
}

// ListByUser returns entries newest first for history display.
func (s *LedgerStore) ListByUser(userID int64, limit, offset int) ([]model.PointEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+entryCols+` FROM point_entries WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list point entries: %w", err)
	}
	defer rows.Close()

	var entries []model.PointEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan point entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DailyTotals buckets the user's entries by calendar day since the given time.
func (s *LedgerStore) DailyTotals(userID int64, since time.Time) ([]model.DayTotal, error) {
	rows, err := s.db.Query(
		`SELECT date(created_at), COALESCE(SUM(points), 0)
		 FROM point_entries WHERE user_id = ? AND created_at >= ?
		 GROUP BY date(created_at) ORDER BY date(created_at) DESC`,
		userID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	var totals []model.DayTotal
	for rows.Next() {
		var d model.DayTotal
		if err := rows.Scan(&d.Day, &d.Points); err != nil {
			return nil, fmt.Errorf("scan day total: %w", err)
		}
		totals = append(totals, d)
	}
	return totals, rows.Err()
}

// Summary reports the lifetime total plus today's and the trailing week's sums.
func (s *LedgerStore) Summary(userID int64, now time.Time) (*model.PointsSummary, error) {
	total, err := s.SumForUser(userID)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.SumForUserBetween(userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	week, err := s.SumForUserBetween(userID, dayStart.Add(-6*24*time.Hour), dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	return &model.PointsSummary{Total: total, Last7Days: week, Today: today}, nil
}
