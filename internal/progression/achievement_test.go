package progression

import (
	"testing"

	"github.com/tahcohcat/gamify-web/internal/models"
)

func testCatalog() []models.Achievement {
	return []models.Achievement{
		{ID: "first-steps", RequirementType: models.RequirementLevelReached, Threshold: 1, XPReward: 10},
		{ID: "getting-started", RequirementType: models.RequirementLevelReached, Threshold: 2, XPReward: 25},
		{ID: "streak-3", RequirementType: models.RequirementStreakLength, Threshold: 3, XPReward: 5},
		{ID: "first-quest", RequirementType: models.RequirementQuestCount, Threshold: 1, XPReward: 200, PointsReward: 1},
		{ID: "busy", RequirementType: models.RequirementActionCount, Threshold: 2},
		{ID: "collector", RequirementType: models.RequirementCustom, Rule: "total-xp", Threshold: 500, PointsReward: 3},
	}
}

func mustEvaluator(t *testing.T, catalog []models.Achievement) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(catalog)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	return e
}

func ids(list []models.Achievement) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func equalIDs(got []models.Achievement, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestEvaluate_NothingSatisfied(t *testing.T) {
	e := mustEvaluator(t, testCatalog())
	s := &Snapshot{}
	if got := e.Evaluate(s); len(got) != 0 {
		t.Errorf("unlocked = %v, want none", ids(got))
	}
	if s.Progress.TotalXP != 0 {
		t.Errorf("TotalXP = %d, want 0", s.Progress.TotalXP)
	}
}

func TestEvaluate_RewardCrossesLevelThreshold(t *testing.T) {
	e := mustEvaluator(t, testCatalog())
	// The quest reward lands on 295 (level 1), first-steps adds 10 to reach
	// 305 (level 2), which unlocks getting-started in the same call.
	s := &Snapshot{
		Progress:   models.UserProgress{TotalXP: 95, Level: 0},
		QuestCount: 1,
	}

	got := e.Evaluate(s)
	if !equalIDs(got, "first-steps", "getting-started", "first-quest") {
		t.Fatalf("unlocked = %v, want [first-steps getting-started first-quest]", ids(got))
	}
	if want := 95 + 200 + 10 + 25; s.Progress.TotalXP != want {
		t.Errorf("TotalXP = %d, want %d", s.Progress.TotalXP, want)
	}
	if s.Progress.Level != LevelOf(s.Progress.TotalXP).Level {
		t.Errorf("Level = %d, want %d", s.Progress.Level, LevelOf(s.Progress.TotalXP).Level)
	}
	if s.Progress.Points != 1 {
		t.Errorf("Points = %d, want 1", s.Progress.Points)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := mustEvaluator(t, testCatalog())
	s := &Snapshot{Progress: models.UserProgress{TotalXP: 100, StreakCount: 3}}

	first := e.Evaluate(s)
	if len(first) == 0 {
		t.Fatal("expected unlocks on first evaluation")
	}
	xp, points := s.Progress.TotalXP, s.Progress.Points

	if again := e.Evaluate(s); len(again) != 0 {
		t.Errorf("second evaluation unlocked %v, want none", ids(again))
	}
	if s.Progress.TotalXP != xp || s.Progress.Points != points {
		t.Errorf("rewards credited twice: xp %d->%d points %d->%d", xp, s.Progress.TotalXP, points, s.Progress.Points)
	}
}

func TestEvaluate_SkipsAlreadyUnlocked(t *testing.T) {
	e := mustEvaluator(t, testCatalog())
	s := &Snapshot{
		Progress: models.UserProgress{TotalXP: 100},
		Unlocked: map[string]bool{"first-steps": true},
	}
	if got := e.Evaluate(s); len(got) != 0 {
		t.Errorf("unlocked = %v, want none", ids(got))
	}
}

func TestEvaluate_CatalogOrderAcrossPasses(t *testing.T) {
	// level-two is first in the catalog but only becomes reachable through
	// the quest reward on a later pass.
	catalog := []models.Achievement{
		{ID: "level-two", RequirementType: models.RequirementLevelReached, Threshold: 2},
		{ID: "quest", RequirementType: models.RequirementQuestCount, Threshold: 1, XPReward: 300},
		{ID: "xp", RequirementType: models.RequirementCustom, Rule: "total-xp", Threshold: 300},
	}
	e := mustEvaluator(t, catalog)
	s := &Snapshot{QuestCount: 1}

	got := e.Evaluate(s)
	if !equalIDs(got, "level-two", "quest", "xp") {
		t.Errorf("unlocked = %v, want [level-two quest xp]", ids(got))
	}
}

func TestEvaluate_CustomRules(t *testing.T) {
	catalog := []models.Achievement{
		{ID: "rich", RequirementType: models.RequirementCustom, Rule: "points", Threshold: 10},
		{ID: "weekly", RequirementType: models.RequirementCustom, Rule: "weekly-quests", Threshold: 2},
	}
	e := mustEvaluator(t, catalog)

	s := &Snapshot{Progress: models.UserProgress{Points: 10}, WeeklyQuestCount: 1}
	if got := e.Evaluate(s); !equalIDs(got, "rich") {
		t.Errorf("unlocked = %v, want [rich]", ids(got))
	}
	s.WeeklyQuestCount = 2
	if got := e.Evaluate(s); !equalIDs(got, "weekly") {
		t.Errorf("unlocked = %v, want [weekly]", ids(got))
	}
}

func TestNewEvaluator_RejectsBadCatalog(t *testing.T) {
	tests := []struct {
		name    string
		catalog []models.Achievement
	}{
		{"duplicate id", []models.Achievement{
			{ID: "a", RequirementType: models.RequirementLevelReached, Threshold: 1},
			{ID: "a", RequirementType: models.RequirementLevelReached, Threshold: 2},
		}},
		{"unknown type", []models.Achievement{{ID: "a", RequirementType: "karma", Threshold: 1}}},
		{"unknown rule", []models.Achievement{{ID: "a", RequirementType: models.RequirementCustom, Rule: "karma"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEvaluator(tc.catalog); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMeasure(t *testing.T) {
	s := &Snapshot{
		Progress:   models.UserProgress{TotalXP: 300, StreakCount: 4, ActionsCompleted: 9},
		QuestCount: 2,
	}
	tests := []struct {
		a    models.Achievement
		want int
	}{
		{models.Achievement{RequirementType: models.RequirementActionCount}, 9},
		{models.Achievement{RequirementType: models.RequirementStreakLength}, 4},
		{models.Achievement{RequirementType: models.RequirementLevelReached}, 2},
		{models.Achievement{RequirementType: models.RequirementQuestCount}, 2},
		{models.Achievement{RequirementType: models.RequirementCustom, Rule: "total-xp"}, 300},
	}
	for _, tc := range tests {
		if got := Measure(tc.a, s); got != tc.want {
			t.Errorf("Measure(%s) = %d, want %d", tc.a.RequirementType, got, tc.want)
		}
	}
}

func TestNewResult(t *testing.T) {
	before := models.UserProgress{TotalXP: 95, Level: 0, Points: 2}
	after := models.UserProgress{TotalXP: 105, Level: 1, Points: 2, Version: 4}

	r := NewResult(before, after, nil)
	if !r.Success || r.NewTotalXP != 105 || r.NewLevel != 1 || !r.LeveledUp {
		t.Fatalf("result = %+v", r)
	}
	if r.Progress != (Progress{XPIntoLevel: 5, XPNeededForLevel: 200}) {
		t.Errorf("Progress = %+v, want {5 200}", r.Progress)
	}
	if r.XPAwarded != 10 || r.PointsAwarded != 0 {
		t.Errorf("awarded = %d/%d, want 10/0", r.XPAwarded, r.PointsAwarded)
	}
	if r.NewlyUnlockedAchievements == nil {
		t.Error("NewlyUnlockedAchievements should encode as an empty list")
	}
	if r.Version != 4 {
		t.Errorf("Version = %d, want 4", r.Version)
	}
}
