// Package progression holds the server-authoritative progression rules:
// levels from XP, quest periods and rewards, streaks, achievement evaluation
// and the result payload returned to clients.
package progression

import "math"

// xpStep is the per-level increment. Going from level n to n+1 costs (n+1)*xpStep.
const xpStep = 100

// MaxTotalXP is the most XP a user can hold. Credits past it saturate, which
// keeps every level computation inside int range (level ~141k at the cap).
const MaxTotalXP = 1_000_000_000_000

// MaxReward bounds any single configured credit: a catalog reward, a quest
// reward or a per-action limit.
const MaxReward = 1_000_000

// Progress is the position inside the current level.
type Progress struct {
	XPIntoLevel      int `json:"xp_into_level"`
	XPNeededForLevel int `json:"xp_needed_for_level"`
}

// Fraction is the progress-bar fill in [0, 1).
func (p Progress) Fraction() float64 {
	if p.XPNeededForLevel <= 0 {
		return 0
	}
	return float64(p.XPIntoLevel) / float64(p.XPNeededForLevel)
}

// LevelInfo is the result of LevelOf.
type LevelInfo struct {
	Level int
	Progress
}

// maxLevel is the first level whose threshold may not fit in int.
var maxLevel = int((math.Sqrt(1+8*float64(math.MaxInt/xpStep))-1)/2) - 1

// XPToReach returns the cumulative XP needed to reach level: 100 * n(n+1)/2.
// Levels whose threshold does not fit in int report math.MaxInt.
func XPToReach(level int) int {
	if level <= 0 {
		return 0
	}
	if level >= maxLevel {
		return math.MaxInt
	}
	return xpStep * (level * (level + 1) / 2)
}

// AddXP returns total+n saturated at MaxTotalXP. Negative n is ignored.
func AddXP(total, n int) int {
	if n <= 0 {
		return total
	}
	if total >= MaxTotalXP || n > MaxTotalXP-total {
		return MaxTotalXP
	}
	return total + n
}

// XPForNextLevel returns the XP needed to go from level to level+1.
func XPForNextLevel(level int) int {
	if level < 0 {
		level = 0
	}
	return (level + 1) * xpStep
}

// LevelOf converts total XP into a level and the progress within it. It is
// the only place a level is derived; every other component calls it.
// Negative input is treated as zero and input above MaxTotalXP as MaxTotalXP.
func LevelOf(totalXP int) LevelInfo {
	totalXP = max(0, min(totalXP, MaxTotalXP))

	// Invert 100*n(n+1)/2 <= xp, then correct for float rounding.
	level := int((math.Sqrt(1+8*float64(totalXP)/xpStep) - 1) / 2)
	for level > 0 && XPToReach(level) > totalXP {
		level--
	}
	for XPToReach(level+1) <= totalXP {
		level++
	}

	return LevelInfo{
		Level: level,
		Progress: Progress{
			XPIntoLevel:      totalXP - XPToReach(level),
			XPNeededForLevel: XPForNextLevel(level),
		},
	}
}
