package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// GameRecord is one finished game in the history table.
type GameRecord struct {
	ID        string    `json:"id"`
	Profile   string    `json:"profile"`
	Level     int       `json:"level"`
	Correct   int       `json:"correct"`
	Wrong     int       `json:"wrong"`
	Outcome   string    `json:"outcome"`
	MaxStreak int       `json:"max_streak"`
	TotalTime float64   `json:"total_time"` // seconds
	XP        int       `json:"xp"`
	CreatedAt time.Time `json:"created_at"`
}

// Totals aggregates a profile's game history.
type Totals struct {
	Games     int     `json:"games"`
	Correct   int     `json:"correct"`
	Wrong     int     `json:"wrong"`
	BestLevel int     `json:"best_level"`
	TotalTime float64 `json:"total_time"`
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
