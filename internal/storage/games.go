package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mathblast/mathblast/internal/profile"
)

// NewGameRecord converts a result recorded for name into a history row.
func NewGameRecord(name string, r profile.GameResult) GameRecord {
	return GameRecord{
		Profile:   name,
		Level:     r.Level,
		Correct:   r.Correct,
		Wrong:     r.Wrong,
		Outcome:   string(r.Outcome),
		MaxStreak: r.MaxStreak,
		TotalTime: r.TotalTime,
		XP:        r.XPGain,
	}
}

// SaveGameResult appends r to the history. Missing ID and CreatedAt are
// filled in.
func (s *Store) SaveGameResult(r GameRecord) (GameRecord, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Second)
	_, err := s.db.Exec(`
		INSERT INTO game_results (id, profile, level, correct, wrong, outcome, max_streak, total_time, xp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Profile, r.Level, r.Correct, r.Wrong, r.Outcome, r.MaxStreak, r.TotalTime, r.XP,
		r.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return GameRecord{}, fmt.Errorf("saving game result: %w", err)
	}
	return r, nil
}

// ListGameResults returns up to limit games for profile, newest first.
func (s *Store) ListGameResults(profile string, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, profile, level, correct, wrong, outcome, max_streak, total_time, xp, created_at
		FROM game_results WHERE profile = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, profile, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []GameRecord
	for rows.Next() {
		var r GameRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Profile, &r.Level, &r.Correct, &r.Wrong, &r.Outcome,
			&r.MaxStreak, &r.TotalTime, &r.XP, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		r.CreatedAt = t
		results = append(results, r)
	}
	return results, rows.Err()
}

// ProfileTotals aggregates the full history of profile. A profile with no
// games returns zero totals.
func (s *Store) ProfileTotals(profile string) (Totals, error) {
	var t Totals
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(correct), 0), COALESCE(SUM(wrong), 0),
		       COALESCE(MAX(level), 0), COALESCE(SUM(total_time), 0)
		FROM game_results WHERE profile = ?`, profile,
	).Scan(&t.Games, &t.Correct, &t.Wrong, &t.BestLevel, &t.TotalTime)
	if err != nil {
		return Totals{}, fmt.Errorf("aggregating games for %q: %w", profile, err)
	}
	return t, nil
}

// DeleteGameResults removes the history of profile and returns the number
// of rows removed.
func (s *Store) DeleteGameResults(profile string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM game_results WHERE profile = ?`, profile)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
