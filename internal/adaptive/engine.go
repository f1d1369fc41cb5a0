// Package adaptive tracks recent answers and turns them into a difficulty
// multiplier for problem generation.
package adaptive

import "time"

const (
	// WindowSize is the number of recent attempts the skill score considers.
	WindowSize = 20

	InitialSkill = 50
	MinSkill     = 10
	MaxSkill     = 100
)

type attempt struct {
	seconds float64
	correct bool
	level   int
}

// Engine keeps a sliding window of attempts and a skill score in
// [MinSkill, MaxSkill]. An Engine belongs to one game session and is not
// safe for concurrent use.
type Engine struct {
	history []attempt
	skill   int
	streak  int
}

// New returns an engine at the initial skill.
func New() *Engine {
	return &Engine{
		history: make([]attempt, 0, WindowSize),
		skill:   InitialSkill,
	}
}

// Update records one attempt and recomputes the skill score.
func (e *Engine) Update(timeTaken time.Duration, correct bool, level int) {
	if len(e.history) == WindowSize {
		copy(e.history, e.history[1:])
		e.history = e.history[:WindowSize-1]
	}
	e.history = append(e.history, attempt{seconds: timeTaken.Seconds(), correct: correct, level: level})

	var right int
	var total float64
	for _, a := range e.history {
		if a.correct {
			right++
		}
		total += a.seconds
	}
	n := float64(len(e.history))
	accuracy := float64(right) / n
	speed := max(0, 100-(total/n)*10)

	// The streak counts answers before this one.
	bonus := -10.0
	if correct {
		bonus = float64(e.streak * 5)
	}

	skill := int(0.4*accuracy*100 + 0.4*speed + 0.2*bonus)
	e.skill = min(MaxSkill, max(MinSkill, skill))

	if correct {
		e.streak++
	} else {
		e.streak = 0
	}
}

// Multiplier maps the skill score onto [0.65, 2.0]; the initial value is 1.25.
func (e *Engine) Multiplier() float64 {
	return 0.5 + float64(e.skill)/100*1.5
}

// Skill returns the current skill score.
func (e *Engine) Skill() int { return e.skill }

// Snapshot is a read-only view of the engine state.
type Snapshot struct {
	Skill      int     `json:"skill"`
	Streak     int     `json:"streak"`
	Window     int     `json:"window"`
	Multiplier float64 `json:"multiplier"`
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Skill:      e.skill,
		Streak:     e.streak,
		Window:     len(e.history),
		Multiplier: e.Multiplier(),
	}
}
