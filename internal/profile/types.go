package profile

// Profile is the persisted state of one player. Profiles are stored in a
// single JSON object keyed by Name; the name itself is not repeated inside
// the record on disk.
type Profile struct {
	Name         string   `json:"-"`
	Tag          string   `json:"tag,omitempty"`
	Avatar       string   `json:"avatar"`
	Lang         string   `json:"lang"`
	Level        int      `json:"level"`   // highest level reached
	Correct      int      `json:"correct"` // lifetime correct answers
	Wrong        int      `json:"wrong"`
	GamesPlayed  int      `json:"games_played"`
	GamesWon     int      `json:"games_won"`
	GamesLost    int      `json:"games_lost"`
	XP           int      `json:"xp"`
	AccountLevel int      `json:"account_level"`
	Achievements []string `json:"achievements,omitempty"`
	Stats        Stats    `json:"stats"`
	Created      int64    `json:"created"`
	LastPlayed   int64    `json:"last_played"`
}

// Stats accumulates per-game statistics across all games of a profile.
type Stats struct {
	MaxStreak     int            `json:"max_streak"`
	PerfectLevels int            `json:"perfect_levels"`
	FastestLevel  float64        `json:"fastest_level"` // seconds, 0 = none recorded
	TotalTime     float64        `json:"total_time"`    // seconds
	ProblemsByOp  map[string]int `json:"problems_by_op,omitempty"`
}

// Outcome is the end state of a game.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
)

// GameResult is what a finished (or checkpointed) game contributes to a
// profile.
type GameResult struct {
	Level        int            `json:"level"`
	Correct      int            `json:"correct"`
	Wrong        int            `json:"wrong"`
	Outcome      Outcome        `json:"outcome,omitempty"`
	MaxStreak    int            `json:"max_streak"`
	NoMistakes   bool           `json:"no_mistakes"`
	LevelTime    float64        `json:"level_time"`
	TotalTime    float64        `json:"total_time"`
	ProblemsByOp map[string]int `json:"problems_by_op,omitempty"`
	XPGain       int            `json:"xp_gain"`
}

// Accuracy returns the percentage of correct answers, 0 when nothing has
// been answered yet.
func (p Profile) Accuracy() float64 {
	total := p.Correct + p.Wrong
	if total == 0 {
		return 0
	}
	return float64(p.Correct) * 100 / float64(total)
}

// WinRate returns the percentage of games won.
func (p Profile) WinRate() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.GamesWon) * 100 / float64(p.GamesPlayed)
}

// Avatars are assigned at random to new profiles.
var Avatars = []string{"🧑", "👧", "🐱", "🐶", "🐼", "🐰", "🦊", "🐸", "🦁", "🐯", "🦄", "🐲"}

// xpPerAccountLevel is the XP needed for each account level.
const xpPerAccountLevel = 100

func accountLevel(xp int) int {
	return max(1, xp/xpPerAccountLevel+1)
}

func (p Profile) clone() Profile {
	cp := p
	if p.Achievements != nil {
		cp.Achievements = make([]string, len(p.Achievements))
		copy(cp.Achievements, p.Achievements)
	}
	if p.Stats.ProblemsByOp != nil {
		cp.Stats.ProblemsByOp = make(map[string]int, len(p.Stats.ProblemsByOp))
		for k, v := range p.Stats.ProblemsByOp {
			cp.Stats.ProblemsByOp[k] = v
		}
	}
	return cp
}
