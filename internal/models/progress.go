package models

import "time"

// UserProgress is the authoritative progression row for one user. Level is
// stored alongside TotalXP and always rewritten in the same transaction.
type UserProgress struct {
	UserID           int       `json:"user_id" db:"user_id"`
	TotalXP          int       `json:"total_xp" db:"total_xp"`
	Level            int       `json:"level" db:"level"`
	Points           int       `json:"points" db:"points"`
	StreakCount      int       `json:"streak_count" db:"streak_count"`
	LastActivityDate string    `json:"last_activity_date" db:"last_activity_date"` // YYYY-MM-DD, empty when none
	ActionsCompleted int       `json:"actions_completed" db:"actions_completed"`
	Version          int       `json:"version" db:"version"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// QuestCompletion is unique per (user, quest type, period key).
type QuestCompletion struct {
	ID            int       `json:"id" db:"id"`
	UserID        int       `json:"user_id" db:"user_id"`
	QuestType     string    `json:"quest_type" db:"quest_type"`
	PeriodKey     string    `json:"period_key" db:"period_key"`
	XPAwarded     int       `json:"xp_awarded" db:"xp_awarded"`
	PointsAwarded int       `json:"points_awarded" db:"points_awarded"`
	CompletedAt   time.Time `json:"completed_at" db:"completed_at"`
}

// DailyActivity counts what a user did on one calendar date.
type DailyActivity struct {
	UserID           int    `json:"user_id" db:"user_id"`
	Date             string `json:"date" db:"date"`
	ActionsCompleted int    `json:"actions_completed" db:"actions_completed"`
	QuestsCompleted  int    `json:"quests_completed" db:"quests_completed"`
}
