package models

import (
	"time"
)

// RequirementType selects how an achievement's threshold is measured.
type RequirementType string

const (
	RequirementActionCount  RequirementType = "action-count"
	RequirementStreakLength RequirementType = "streak-length"
	RequirementLevelReached RequirementType = "level-reached"
	RequirementQuestCount   RequirementType = "quest-count"
	RequirementCustom       RequirementType = "custom"
)

// Achievement is a catalog entry. The catalog is configuration, not user data.
type Achievement struct {
	ID              string          `json:"id" db:"id" yaml:"id"`
	Name            string          `json:"name" db:"name" yaml:"name"`
	Description     string          `json:"description" db:"description" yaml:"description"`
	Icon            string          `json:"icon" db:"icon" yaml:"icon"`
	XPReward        int             `json:"xp_reward" db:"xp_reward" yaml:"xp_reward"`
	PointsReward    int             `json:"points_reward" db:"points_reward" yaml:"points_reward"`
	RequirementType RequirementType `json:"requirement_type" db:"requirement_type" yaml:"requirement_type"`
	Threshold       int             `json:"threshold" db:"threshold" yaml:"threshold"`
	Rule            string          `json:"rule,omitempty" db:"rule" yaml:"rule,omitempty"` // custom requirements only
	Position        int             `json:"-" db:"position" yaml:"-"`
}

// UnlockedAchievement is created exactly once per (user, achievement).
type UnlockedAchievement struct {
	UserID        int       `json:"user_id" db:"user_id"`
	AchievementID string    `json:"achievement_id" db:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}

// UserAchievementView is a catalog entry joined with one user's unlock state.
type UserAchievementView struct {
	Achievement
	Unlocked   bool       `json:"unlocked" db:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at" db:"unlocked_at"`
	Progress   int        `json:"progress" db:"-"`
}

type Activity struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Type      string    `json:"type" db:"type"` // achievement_unlocked, level_up, quest_completed
	Title     string    `json:"title" db:"title"`
	Details   string    `json:"details" db:"details"`
	Icon      string    `json:"icon" db:"icon"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
