package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/mathblast/mathblast/internal/profile"
)

// MaxLevel is the level that counts as full progress.
const MaxLevel = 6

// Status classifies a student's standing.
type Status string

const (
	StatusAdvanced   Status = "Advanced"
	StatusOnTrack    Status = "On Track"
	StatusNeedsHelp  Status = "Needs Help"
	StatusStruggling Status = "Struggling"
	StatusNotStarted Status = "Not Started"
)

// ProfileGetter looks up a profile by name.
type ProfileGetter interface {
	Get(name string) (profile.Profile, error)
}

// Row is one student's line in a report.
type Row struct {
	Name     string  `json:"name"`
	Level    int     `json:"level"`
	Accuracy float64 `json:"accuracy"` // percent
	Progress int     `json:"progress"` // percent
	Games    int     `json:"games"`
	Status   Status  `json:"status"`
}

// ClassReport is the progress of every student on a roster.
type ClassReport struct {
	Class       string    `json:"class"`
	Generated   time.Time `json:"generated"`
	Rows        []Row     `json:"rows"`
	AvgLevel    float64   `json:"avg_level"`
	AvgAccuracy float64   `json:"avg_accuracy"`
	NotStarted  int       `json:"not_started"`
}

// BuildClassReport looks up each student on the roster. Students without
// a profile are listed as not started and left out of the averages.
func BuildClassReport(r Roster, profiles ProfileGetter, now time.Time) (ClassReport, error) {
	rep := ClassReport{Class: r.Class, Generated: now}

	var sumLevel, sumAcc float64
	started := 0
	for _, name := range r.Students {
		p, err := profiles.Get(name)
		if errors.Is(err, profile.ErrNotFound) {
			rep.Rows = append(rep.Rows, Row{Name: name, Status: StatusNotStarted})
			rep.NotStarted++
			continue
		}
		if err != nil {
			return ClassReport{}, fmt.Errorf("loading profile %q: %w", name, err)
		}

		row := Row{
			Name:     name,
			Level:    p.Level,
			Accuracy: p.Accuracy(),
			Progress: Progress(p.Level),
			Games:    p.GamesPlayed,
		}
		row.Status = Classify(row.Accuracy, row.Level)
		rep.Rows = append(rep.Rows, row)

		sumLevel += float64(row.Level)
		sumAcc += row.Accuracy
		started++
	}
	if started > 0 {
		rep.AvgLevel = sumLevel / float64(started)
		rep.AvgAccuracy = sumAcc / float64(started)
	}
	return rep, nil
}

// Classify maps accuracy (percent) and level to a status.
func Classify(accuracy float64, level int) Status {
	switch {
	case accuracy >= 90 && level >= MaxLevel:
		return StatusAdvanced
	case accuracy >= 80:
		return StatusOnTrack
	case accuracy >= 75:
		return StatusNeedsHelp
	default:
		return StatusStruggling
	}
}

// Progress is the level as a percentage of MaxLevel, capped at 100.
func Progress(level int) int {
	return max(0, min(100, level*100/MaxLevel))
}

// Counts returns how many students have each status.
func (r ClassReport) Counts() map[Status]int {
	out := make(map[Status]int)
	for _, row := range r.Rows {
		out[row.Status]++
	}
	return out
}
