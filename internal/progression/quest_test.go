package progression

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseQuestType(t *testing.T) {
	for _, in := range []string{"daily", "weekly", " Daily ", "WEEKLY"} {
		if _, err := ParseQuestType(in); err != nil {
			t.Errorf("ParseQuestType(%q): unexpected error %v", in, err)
		}
	}

	_, err := ParseQuestType("daly")
	if !errors.Is(err, ErrInvalidQuestType) {
		t.Fatalf("expected invalid quest type, got %v", err)
	}
	if !strings.Contains(err.Error(), `did you mean "daily"`) {
		t.Errorf("expected suggestion for daly, got %q", err.Error())
	}

	_, err = ParseQuestType("weekley")
	if !strings.Contains(err.Error(), `did you mean "weekly"`) {
		t.Errorf("expected suggestion for weekley, got %q", err.Error())
	}

	if _, err := ParseQuestType(""); !errors.Is(err, ErrInvalidQuestType) {
		t.Errorf("expected empty quest type to be rejected, got %v", err)
	}
}

func TestPeriodKey(t *testing.T) {
	tests := []struct {
		name string
		qt   QuestType
		now  time.Time
		want string
	}{
		{"daily", QuestDaily, time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC), "2026-10-17"},
		{"weekly mid-year", QuestWeekly, time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC), "2026-W42"},
		{"weekly iso year rollover", QuestWeekly, time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC), "2026-W53"},
		{"weekly week one", QuestWeekly, time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC), "2025-W01"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := PeriodKey(tc.qt, tc.now); got != tc.want {
				t.Errorf("PeriodKey = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPeriodKey_WeeklySharedAcrossWeek(t *testing.T) {
	monday := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 10, 18, 23, 59, 59, 0, time.UTC)
	nextMonday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	if PeriodKey(QuestWeekly, monday) != PeriodKey(QuestWeekly, sunday) {
		t.Error("monday and sunday of the same ISO week should share a key")
	}
	if PeriodKey(QuestWeekly, sunday) == PeriodKey(QuestWeekly, nextMonday) {
		t.Error("next monday should start a new weekly period")
	}
}

func TestQuestRewardsFor(t *testing.T) {
	r := QuestRewards{Daily: Reward{XP: 25, Points: 1}, Weekly: Reward{XP: 100, Points: 5}}
	if got := r.For(QuestDaily); got != (Reward{XP: 25, Points: 1}) {
		t.Errorf("daily = %+v", got)
	}
	if got := r.For(QuestWeekly); got != (Reward{XP: 100, Points: 5}) {
		t.Errorf("weekly = %+v", got)
	}
}

func TestActionLimitsValidate(t *testing.T) {
	limits := ActionLimits{DefaultMax: 100, Limits: map[string]int{"comment": 5}}

	tests := []struct {
		action string
		amount int
		ok     bool
	}{
		{"action", 10, true},
		{"action", 100, true},
		{"action", 101, false},
		{"comment", 5, true},
		{"Comment", 6, false},
		{"action", 0, false},
		{"action", -3, false},
	}
	for _, tc := range tests {
		err := limits.Validate(tc.action, tc.amount)
		if tc.ok && err != nil {
			t.Errorf("Validate(%q, %d): unexpected error %v", tc.action, tc.amount, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Validate(%q, %d) = %v, want invalid amount", tc.action, tc.amount, err)
		}
	}
}

func TestActionLimitsFallBackToMaxReward(t *testing.T) {
	tests := []ActionLimits{
		{},
		{DefaultMax: -1},
		{DefaultMax: MaxReward * 10, Limits: map[string]int{"anything": MaxReward * 10}},
	}
	for _, limits := range tests {
		if err := limits.Validate("anything", MaxReward); err != nil {
			t.Errorf("%+v: Validate(MaxReward) = %v, want ok", limits, err)
		}
		if err := limits.Validate("anything", MaxReward+1); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("%+v: Validate(MaxReward+1) = %v, want invalid amount", limits, err)
		}
	}
}

func TestActionLimitsZeroUsesDefault(t *testing.T) {
	limits := ActionLimits{DefaultMax: 100, Limits: map[string]int{"comment": 0}}
	if got := limits.Max("comment"); got != 100 {
		t.Errorf("Max(comment) = %d, want 100", got)
	}
}

func TestActionLimitsCheck(t *testing.T) {
	tests := []struct {
		limits ActionLimits
		ok     bool
	}{
		{ActionLimits{DefaultMax: 100, Limits: map[string]int{"comment": 5}}, true},
		{ActionLimits{DefaultMax: MaxReward}, true},
		{ActionLimits{}, false},
		{ActionLimits{DefaultMax: MaxReward + 1}, false},
		{ActionLimits{DefaultMax: 100, Limits: map[string]int{"comment": 0}}, false},
		{ActionLimits{DefaultMax: 100, Limits: map[string]int{"comment": MaxReward + 1}}, false},
	}
	for _, tc := range tests {
		if err := tc.limits.Check(); (err == nil) != tc.ok {
			t.Errorf("Check(%+v) = %v, want ok=%v", tc.limits, err, tc.ok)
		}
	}
}

func TestClaimedMessage(t *testing.T) {
	if !strings.Contains(QuestDaily.ClaimedMessage(), "today") {
		t.Errorf("daily message = %q", QuestDaily.ClaimedMessage())
	}
	if !strings.Contains(QuestWeekly.ClaimedMessage(), "this week") {
		t.Errorf("weekly message = %q", QuestWeekly.ClaimedMessage())
	}
}
