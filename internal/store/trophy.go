package store

import (
	"database/sql"
	"fmt"

	"github.com/stridehq/stride/internal/model"
)

// TrophyStore reads the per-family trophy reference tables and records awards.
type TrophyStore struct {
	db *sql.DB
}

func NewTrophyStore(db *sql.DB) *TrophyStore {
	return &TrophyStore{db: db}
}

// familyTable maps a trophy family to its reference table. The whitelist
// keeps family names out of SQL by construction.
func familyTable(family model.TrophyFamily) (string, error) {
	switch family {
	case model.TrophyFamilyHabitStreak:
		return "habit_streak_trophies", nil
	case model.TrophyFamilyHabitTotal:
		return "habit_total_trophies", nil
	case model.TrophyFamilySignin:
		return "signin_trophies", nil
	}
	return "", fmt.Errorf("unknown trophy family %q", family)
}

func scanTrophy(scanner interface{ Scan(...any) error }) (*model.Trophy, error) {
	var t model.Trophy
	err := scanner.Scan(&t.ID, &t.Threshold, &t.Name, &t.Description)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const trophyCols = `id, threshold, name, description`

// ListFamily returns every trophy in the family, ascending by threshold.
func (s *TrophyStore) ListFamily(family model.TrophyFamily) ([]model.Trophy, error) {
	table, err := familyTable(family)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT ` + trophyCols + ` FROM ` + table + ` ORDER BY threshold ASC`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()
	return collectTrophies(rows, table)
}

// ListEligible returns trophies whose threshold the count has reached,
// ascending by threshold so multi-award batches issue in order.
func (s *TrophyStore) ListEligible(family model.TrophyFamily, count int) ([]model.Trophy, error) {
	table, err := familyTable(family)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT `+trophyCols+` FROM `+table+` WHERE threshold <= ? ORDER BY threshold ASC`,
		count,
	)
	if err != nil {
		return nil, fmt.Errorf("list eligible %s: %w", table, err)
	}
	defer rows.Close()
	return collectTrophies(rows, table)
}

func collectTrophies(rows *sql.Rows, table string) ([]model.Trophy, error) {
	var trophies []model.Trophy
	for rows.Next() {
		t, err := scanTrophy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		trophies = append(trophies, *t)
	}
	return trophies, rows.Err()
}

// AwardedIDs returns the set of trophy ids already awarded to the user within
// a family, optionally scoped to one habit.
func (s *TrophyStore) AwardedIDs(userID int64, family model.TrophyFamily, habitID *int64) (map[int64]bool, error) {
	var hID sql.NullInt64
	if habitID != nil {
		hID = sql.NullInt64{Int64: *habitID, Valid: true}
	}

	rows, err := s.db.Query(
		`SELECT trophy_id FROM user_trophies WHERE user_id = ? AND family = ? AND COALESCE(habit_id, 0) = COALESCE(?, 0)`,
		userID, family, hID,
	)
	if err != nil {
		return nil, fmt.Errorf("list awarded trophy ids: %w", err)
	}
	defer rows.Close()

	awarded := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan awarded trophy id: %w", err)
		}
		awarded[id] = true
	}
	return awarded, rows.Err()
}

// Award inserts one user trophy. A duplicate (same user, family, trophy and
// scope) is rejected by the unique index and reported as (nil, nil): the
// award already exists and idempotence holds even across concurrent checks.
func (s *TrophyStore) Award(userID int64, family model.TrophyFamily, trophyID int64, habitID *int64) (*model.UserTrophy, error) {
	var hID sql.NullInt64
	if habitID != nil {
		hID = sql.NullInt64{Int64: *habitID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO user_trophies (user_id, family, trophy_id, habit_id) VALUES (?, ?, ?, ?)`,
		userID, family, trophyID, hID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("insert user trophy: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT id, user_id, family, trophy_id, habit_id, awarded_at FROM user_trophies WHERE id = ?`, id,
	)
	return scanUserTrophy(row)
}

func scanUserTrophy(scanner interface{ Scan(...any) error }) (*model.UserTrophy, error) {
	var ut model.UserTrophy
	var habitID sql.NullInt64

	err := scanner.Scan(&ut.ID, &ut.UserID, &ut.Family, &ut.TrophyID, &habitID, &ut.AwardedAt)
	if err != nil {
		return nil, err
	}

	if habitID.Valid {
		ut.HabitID = &habitID.Int64
	}
	return &ut, nil
}

// ListAwarded returns all of the user's awards joined with their reference
// rows, newest first.
func (s *TrophyStore) ListAwarded(userID int64) ([]model.AwardedTrophy, error) {
	rows, err := s.db.Query(
		`SELECT ut.id, ut.user_id, ut.family, ut.trophy_id, ut.habit_id, ut.awarded_at, t.threshold, t.name, t.description
		 FROM user_trophies ut JOIN habit_streak_trophies t ON ut.trophy_id = t.id AND ut.family = ?
		 WHERE ut.user_id = ?
		 UNION ALL
		 SELECT ut.id, ut.user_id, ut.family, ut.trophy_id, ut.habit_id, ut.awarded_at, t.threshold, t.name, t.description
		 FROM user_trophies ut JOIN habit_total_trophies t ON ut.trophy_id = t.id AND ut.family = ?
		 WHERE ut.user_id = ?
		 UNION ALL
		 SELECT ut.id, ut.user_id, ut.family, ut.trophy_id, ut.habit_id, ut.awarded_at, t.threshold, t.name, t.description
		 FROM user_trophies ut JOIN signin_trophies t ON ut.trophy_id = t.id AND ut.family = ?
		 WHERE ut.user_id = ?
		 ORDER BY awarded_at DESC, id DESC`,
		model.TrophyFamilyHabitStreak, userID,
		model.TrophyFamilyHabitTotal, userID,
		model.TrophyFamilySignin, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list awarded trophies: %w", err)
	}
	defer rows.Close()

	var awarded []model.AwardedTrophy
	for rows.Next() {
		var at model.AwardedTrophy
		var habitID sql.NullInt64

		err := rows.Scan(
			&at.ID, &at.UserID, &at.Family, &at.TrophyID, &habitID, &at.AwardedAt,
			&at.Threshold, &at.Name, &at.Description,
		)
		if err != nil {
			return nil, fmt.Errorf("scan awarded trophy: %w", err)
		}
		if habitID.Valid {
			at.HabitID = &habitID.Int64
		}
		awarded = append(awarded, at)
	}
	return awarded, rows.Err()
}
