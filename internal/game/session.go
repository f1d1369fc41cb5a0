// Package game drives a single play-through: problems, answers, levels and
// the result that is merged into the player's profile.
package game

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/mathblast/mathblast/internal/adaptive"
	"github.com/mathblast/mathblast/internal/problem"
	"github.com/mathblast/mathblast/internal/profile"
)

const (
	// StartGoal is the number of correct answers needed to clear level 1.
	StartGoal = 10
	// GoalStep is added to the goal after each level.
	GoalStep = 5
	// MaxWrong ends the game.
	MaxWrong = 3

	XPPerCorrect = 10
	XPPerLevel   = 50

	// extendedTimeFactor stretches the answer window in extended time mode.
	extendedTimeFactor = 1.5
)

var (
	ErrFinished  = errors.New("game is over")
	ErrNoProblem = errors.New("no problem in play")
)

// LevelHook receives the progress made since the previous checkpoint each
// time a level is cleared.
type LevelHook func(profile.GameResult)

// Options configures a Session. Zero values pick sensible defaults.
type Options struct {
	Rand         *rand.Rand
	Now          func() time.Time
	ExtendedTime bool
	OnLevel      LevelHook
}

// Outcome describes the effect of one submitted answer.
type Outcome struct {
	Correct    bool    `json:"correct"`
	Expected   string  `json:"expected"`
	LevelUp    bool    `json:"level_up"`
	GameOver   bool    `json:"game_over"`
	Level      int     `json:"level"`
	Multiplier float64 `json:"multiplier"`
}

// State is a snapshot for rendering.
type State struct {
	Level    int
	Score    int
	Goal     int
	Wrong    int
	Total    int
	Streak   int
	Over     bool
	Problem  *problem.Problem
	Adaptive adaptive.Snapshot
}

// tally is the progress accumulated since the last checkpoint.
type tally struct {
	correct  int
	wrong    int
	cleared  int
	fastest  float64
	started  time.Time
	problems map[string]int
}

// Session is one game. It is not safe for concurrent use.
type Session struct {
	rng      *rand.Rand
	now      func() time.Time
	extended bool
	onLevel  LevelHook
	engine   *adaptive.Engine

	level     int
	goal      int
	score     int
	wrong     int
	total     int
	streak    int
	maxStreak int
	over      bool

	current    *problem.Problem
	askedAt    time.Time
	levelStart time.Time
	pending    tally
}

// New starts a session at level 1.
func New(opts Options) *Session {
	s := &Session{
		rng:      opts.Rand,
		now:      opts.Now,
		extended: opts.ExtendedTime,
		onLevel:  opts.OnLevel,
		engine:   adaptive.New(),
		level:    1,
		goal:     StartGoal,
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if s.now == nil {
		s.now = time.Now
	}
	start := s.now()
	s.levelStart = start
	s.pending = tally{started: start, problems: map[string]int{}}
	return s
}

// Next generates the next problem and starts its answer timer.
func (s *Session) Next() (problem.Problem, error) {
	if s.over {
		return problem.Problem{}, ErrFinished
	}
	p := problem.Generate(s.rng, s.level, s.engine.Multiplier())
	s.current = &p
	s.askedAt = s.now()
	s.pending.problems[string(p.Op)]++
	return p, nil
}

// Submit answers the current problem.
func (s *Session) Submit(input string) (Outcome, error) {
	if s.over {
		return Outcome{}, ErrFinished
	}
	if s.current == nil {
		return Outcome{}, ErrNoProblem
	}
	p := *s.current
	s.current = nil

	now := s.now()
	elapsed := now.Sub(s.askedAt)
	if s.extended {
		elapsed = time.Duration(float64(elapsed) / extendedTimeFactor)
	}
	correct := problem.Check(p, input)
	s.engine.Update(elapsed, correct, s.level)

	out := Outcome{Correct: correct, Expected: p.Answer}
	if correct {
		s.score++
		s.total++
		s.streak++
		s.maxStreak = max(s.maxStreak, s.streak)
		s.pending.correct++
		if s.score >= s.goal {
			s.levelUp(now)
			out.LevelUp = true
		}
	} else {
		s.streak = 0
		s.wrong++
		s.pending.wrong++
		if s.wrong >= MaxWrong {
			s.over = true
			out.GameOver = true
		}
	}
	out.Level = s.level
	out.Multiplier = s.engine.Multiplier()
	return out, nil
}

func (s *Session) levelUp(now time.Time) {
	levelTime := now.Sub(s.levelStart).Seconds()
	s.levelStart = now
	s.level++
	s.goal += GoalStep
	s.score = 0
	s.wrong = 0

	s.pending.cleared++
	if s.pending.fastest == 0 || levelTime < s.pending.fastest {
		s.pending.fastest = levelTime
	}

	if s.onLevel != nil {
		s.onLevel(s.resultAt(now, profile.OutcomeNone))
		s.pending = tally{started: now, problems: map[string]int{}}
	}
}

// Quit ends the session early.
func (s *Session) Quit() {
	s.over = true
	s.current = nil
}

// Over reports whether the session has ended.
func (s *Session) Over() bool { return s.over }

// Result returns the progress not yet reported through the level hook.
// The outcome is lose after three wrong answers, win when the player quit
// having cleared at least one level, and empty otherwise.
func (s *Session) Result() profile.GameResult {
	outcome := profile.OutcomeNone
	switch {
	case s.wrong >= MaxWrong:
		outcome = profile.OutcomeLose
	case s.over && s.level > 1:
		outcome = profile.OutcomeWin
	}
	return s.resultAt(s.now(), outcome)
}

func (s *Session) resultAt(now time.Time, outcome profile.Outcome) profile.GameResult {
	t := s.pending
	byOp := make(map[string]int, len(t.problems))
	for k, v := range t.problems {
		byOp[k] = v
	}
	return profile.GameResult{
		Level:        s.level,
		Correct:      t.correct,
		Wrong:        t.wrong,
		Outcome:      outcome,
		MaxStreak:    s.maxStreak,
		NoMistakes:   t.cleared > 0 && t.wrong == 0,
		LevelTime:    t.fastest,
		TotalTime:    now.Sub(t.started).Seconds(),
		ProblemsByOp: byOp,
		XPGain:       t.correct*XPPerCorrect + t.cleared*XPPerLevel,
	}
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	st := State{
		Level:    s.level,
		Score:    s.score,
		Goal:     s.goal,
		Wrong:    s.wrong,
		Total:    s.total,
		Streak:   s.streak,
		Over:     s.over,
		Adaptive: s.engine.Snapshot(),
	}
	if s.current != nil {
		p := *s.current
		st.Problem = &p
	}
	return st
}
