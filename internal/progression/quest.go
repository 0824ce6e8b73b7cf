package progression

import (
	"fmt"
	"strings"
	"time"

	"github.com/schollz/closestmatch"
)

type QuestType string

const (
	QuestDaily  QuestType = "daily"
	QuestWeekly QuestType = "weekly"
)

// DateLayout is the calendar-date format used for period keys and streaks.
const DateLayout = "2006-01-02"

var questMatcher = closestmatch.New([]string{string(QuestDaily), string(QuestWeekly)}, []int{2})

// ParseQuestType validates a client-supplied quest type. Near misses get a
// suggestion in the error message.
func ParseQuestType(s string) (QuestType, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch QuestType(normalized) {
	case QuestDaily, QuestWeekly:
		return QuestType(normalized), nil
	}

	msg := fmt.Sprintf("invalid quest type %q", s)
	if suggestion := questMatcher.Closest(normalized); normalized != "" && suggestion != "" {
		msg = fmt.Sprintf("%s, did you mean %q?", msg, suggestion)
	}
	return "", NewError(KindInvalidQuestType, msg)
}

// PeriodKey identifies the quest period containing now: the calendar date
// for daily quests, the ISO week (e.g. 2026-W42) for weekly quests. now must
// already be in the server timezone.
func PeriodKey(qt QuestType, now time.Time) string {
	if qt == QuestWeekly {
		year, week := now.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
	return now.Format(DateLayout)
}

// ClaimedMessage is the user-facing text for an AlreadyCompleted rejection.
func (qt QuestType) ClaimedMessage() string {
	if qt == QuestWeekly {
		return "Weekly quest already claimed this week"
	}
	return "Daily quest already claimed today"
}

type Reward struct {
	XP     int `json:"xp"`
	Points int `json:"points"`
}

// QuestRewards holds the fixed reward per quest type.
type QuestRewards struct {
	Daily  Reward
	Weekly Reward
}

func (r QuestRewards) For(qt QuestType) Reward {
	if qt == QuestWeekly {
		return r.Weekly
	}
	return r.Daily
}

// ActionLimits caps the XP a client may claim per action type. Amounts above
// the cap are rejected, not clamped, so the client never sees a total that
// differs silently from what it asked for.
type ActionLimits struct {
	DefaultMax int
	Limits     map[string]int
}

// Max is the cap for actionType. Actions without a positive limit of their
// own use DefaultMax, and a DefaultMax outside 1..MaxReward means MaxReward.
func (l ActionLimits) Max(actionType string) int {
	if limit, ok := l.Limits[strings.ToLower(actionType)]; ok && limit > 0 {
		return min(limit, MaxReward)
	}
	if l.DefaultMax <= 0 {
		return MaxReward
	}
	return min(l.DefaultMax, MaxReward)
}

// Check rejects limits that no request could ever satisfy or that exceed
// MaxReward.
func (l ActionLimits) Check() error {
	if l.DefaultMax <= 0 || l.DefaultMax > MaxReward {
		return fmt.Errorf("default action limit %d must be between 1 and %d", l.DefaultMax, MaxReward)
	}
	for action, limit := range l.Limits {
		if limit <= 0 || limit > MaxReward {
			return fmt.Errorf("limit %d for %q must be between 1 and %d", limit, action, MaxReward)
		}
	}
	return nil
}

// Validate checks amount before any persisted state is read.
func (l ActionLimits) Validate(actionType string, amount int) error {
	if amount <= 0 {
		return NewError(KindInvalidAmount, fmt.Sprintf("amount must be a positive integer, got %d", amount))
	}
	if limit := l.Max(actionType); amount > limit {
		return NewError(KindInvalidAmount, fmt.Sprintf("amount %d exceeds the limit of %d for %q", amount, limit, actionType))
	}
	return nil
}
