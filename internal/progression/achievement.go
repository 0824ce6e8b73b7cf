package progression

import (
	"fmt"
	"sort"

	"github.com/tahcohcat/gamify-web/internal/models"
)

// Snapshot is the post-mutation state an evaluation runs against. Evaluate
// credits rewards into Progress and records unlocks in Unlocked, so the
// caller persists the snapshot afterwards.
type Snapshot struct {
	Progress models.UserProgress
	// QuestCount is the number of QuestCompletion rows for the user.
	QuestCount int
	// WeeklyQuestCount counts weekly completions only.
	WeeklyQuestCount int
	Unlocked         map[string]bool
}

// CustomRule measures a user for a requirement of type custom.
type CustomRule func(s *Snapshot) int

// Built-in custom rules, referenced by name from the catalog.
var customRules = map[string]CustomRule{
	"total-xp":      func(s *Snapshot) int { return s.Progress.TotalXP },
	"points":        func(s *Snapshot) int { return s.Progress.Points },
	"weekly-quests": func(s *Snapshot) int { return s.WeeklyQuestCount },
}

// HasCustomRule reports whether name is a known custom rule.
func HasCustomRule(name string) bool {
	_, ok := customRules[name]
	return ok
}

// Evaluator checks the achievement catalog against user snapshots.
type Evaluator struct {
	catalog []models.Achievement
}

// NewEvaluator keeps the catalog in the order given; that order is the
// unlock order reported to clients.
func NewEvaluator(catalog []models.Achievement) (*Evaluator, error) {
	seen := make(map[string]bool, len(catalog))
	for _, a := range catalog {
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate achievement id %q", a.ID)
		}
		seen[a.ID] = true
		if err := validateRequirement(a); err != nil {
			return nil, err
		}
	}

	out := make([]models.Achievement, len(catalog))
	copy(out, catalog)
	return &Evaluator{catalog: out}, nil
}

func validateRequirement(a models.Achievement) error {
	switch a.RequirementType {
	case models.RequirementActionCount, models.RequirementStreakLength,
		models.RequirementLevelReached, models.RequirementQuestCount:
		return nil
	case models.RequirementCustom:
		if !HasCustomRule(a.Rule) {
			return fmt.Errorf("achievement %q: unknown custom rule %q", a.ID, a.Rule)
		}
		return nil
	default:
		return fmt.Errorf("achievement %q: unknown requirement type %q", a.ID, a.RequirementType)
	}
}

// Catalog returns a copy of the catalog in unlock order.
func (e *Evaluator) Catalog() []models.Achievement {
	out := make([]models.Achievement, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// Measure returns the user's current value for a's requirement.
func Measure(a models.Achievement, s *Snapshot) int {
	switch a.RequirementType {
	case models.RequirementActionCount:
		return s.Progress.ActionsCompleted
	case models.RequirementStreakLength:
		return s.Progress.StreakCount
	case models.RequirementLevelReached:
		return LevelOf(s.Progress.TotalXP).Level
	case models.RequirementQuestCount:
		return s.QuestCount
	case models.RequirementCustom:
		if rule, ok := customRules[a.Rule]; ok {
			return rule(s)
		}
	}
	return 0
}

// Evaluate unlocks every achievement whose requirement s now satisfies and
// credits its rewards. Rewards can satisfy further requirements, so scans
// repeat until one unlocks nothing. Every pass but the last unlocks at least
// one achievement, which bounds the loop by the catalog size.
func (e *Evaluator) Evaluate(s *Snapshot) []models.Achievement {
	if s.Unlocked == nil {
		s.Unlocked = make(map[string]bool)
	}

	var unlocked []int
	for pass := 0; pass <= len(e.catalog); pass++ {
		progressed := false
		for i, a := range e.catalog {
			if s.Unlocked[a.ID] {
				continue
			}
			if Measure(a, s) < a.Threshold {
				continue
			}
			s.Unlocked[a.ID] = true
			s.Progress.TotalXP = AddXP(s.Progress.TotalXP, a.XPReward)
			s.Progress.Points += a.PointsReward
			s.Progress.Level = LevelOf(s.Progress.TotalXP).Level
			unlocked = append(unlocked, i)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	sort.Ints(unlocked)
	out := make([]models.Achievement, 0, len(unlocked))
	for _, i := range unlocked {
		out = append(out, e.catalog[i])
	}
	return out
}
