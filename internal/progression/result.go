package progression

import "github.com/tahcohcat/gamify-web/internal/models"

// Result is the authoritative payload returned by every successful
// mutation. It is complete on its own: clients never need a follow-up read
// to learn the level, progress or unlocks an action produced.
type Result struct {
	Success                   bool                 `json:"success"`
	NewTotalXP                int                  `json:"new_total_xp"`
	NewLevel                  int                  `json:"new_level"`
	NewPoints                 int                  `json:"new_points"`
	LeveledUp                 bool                 `json:"leveled_up"`
	PreviousLevel             int                  `json:"previous_level"`
	Progress                  Progress             `json:"progress"`
	NewlyUnlockedAchievements []models.Achievement `json:"newly_unlocked_achievements"`
	XPAwarded                 int                  `json:"xp_awarded"`
	PointsAwarded             int                  `json:"points_awarded"`
	StreakCount               int                  `json:"streak_count"`
	QuestType                 QuestType            `json:"quest_type,omitempty"`
	// Version increases with every mutation of the user's progress.
	Version int `json:"version"`
}

// NewResult builds a Result from the progress row before and after a
// mutation. Awarded totals include achievement rewards.
func NewResult(before, after models.UserProgress, unlocked []models.Achievement) Result {
	info := LevelOf(after.TotalXP)
	if unlocked == nil {
		unlocked = []models.Achievement{}
	}
	return Result{
		Success:                   true,
		NewTotalXP:                after.TotalXP,
		NewLevel:                  info.Level,
		NewPoints:                 after.Points,
		LeveledUp:                 info.Level > before.Level,
		PreviousLevel:             before.Level,
		Progress:                  info.Progress,
		NewlyUnlockedAchievements: unlocked,
		XPAwarded:                 after.TotalXP - before.TotalXP,
		PointsAwarded:             after.Points - before.Points,
		StreakCount:               after.StreakCount,
		Version:                   after.Version,
	}
}

// Percent is the progress fraction as a whole percentage, floored.
func (p Progress) Percent() int {
	if p.XPNeededForLevel <= 0 {
		return 0
	}
	return p.XPIntoLevel * 100 / p.XPNeededForLevel
}
