package profile

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Achievement identifiers, in evaluation order.
const (
	AchievementBeginner    = "beginner"
	AchievementPerfect10   = "perfect_10"
	AchievementLevelMaster = "level_master"
	AchievementMathWizard  = "math_wizard"
)

type achievementRule struct {
	id   string
	test func(Profile) bool
}

var achievementRules = []achievementRule{
	{AchievementBeginner, func(p Profile) bool { return p.GamesPlayed > 0 }},
	{AchievementPerfect10, func(p Profile) bool { return p.Stats.MaxStreak >= 10 }},
	{AchievementLevelMaster, func(p Profile) bool { return p.Level >= 5 }},
	{AchievementMathWizard, func(p Profile) bool { return p.Correct >= 100 }},
}

// CheckAchievements returns p's achievements plus any newly earned ones.
// Existing entries are kept in place and never duplicated.
func CheckAchievements(p Profile) []string {
	out := slices.Clone(p.Achievements)
	for _, r := range achievementRules {
		if slices.Contains(out, r.id) {
			continue
		}
		if r.test(p) {
			out = append(out, r.id)
		}
	}
	return out
}

// tagAttempts bounds how many random P#### tags are tried before falling
// back to a uuid-derived tag.
const tagAttempts = 50

func generateTag(rng *rand.Rand, profiles map[string]Profile) string {
	used := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if p.Tag != "" {
			used[p.Tag] = true
		}
	}
	for range tagAttempts {
		tag := fmt.Sprintf("P%04d", rng.IntN(10000))
		if !used[tag] {
			return tag
		}
	}
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
