package clientsync

import (
	"errors"
	"testing"
	"time"

	"github.com/tahcohcat/gamify-web/internal/models"
	"github.com/tahcohcat/gamify-web/internal/progression"
)

var t0 = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestCounterLinearFloor(t *testing.T) {
	c := NewCounter(0, 900*time.Millisecond)
	c.Retarget(10, t0)

	tests := []struct {
		ms   int
		want int
	}{
		{0, 0},
		{300, 3}, // 3.33 floors to 3
		{600, 6},
		{899, 9},
		{900, 10},
		{5000, 10},
	}
	for _, tc := range tests {
		if got := c.Value(at(tc.ms)); got != tc.want {
			t.Errorf("Value(+%dms) = %d, want %d", tc.ms, got, tc.want)
		}
	}
}

func TestCounterRetargetStartsFromDisplayed(t *testing.T) {
	c := NewCounter(0, 800*time.Millisecond)
	c.Retarget(100, t0)
	c.Retarget(200, at(400))

	if got := c.Value(at(400)); got != 50 {
		t.Errorf("value at supersede = %d, want 50", got)
	}
	if got := c.Value(at(800)); got != 125 {
		t.Errorf("halfway = %d, want 125", got)
	}
	if got := c.Value(at(1200)); got != 200 {
		t.Errorf("settled = %d, want 200", got)
	}
	if !c.Settled(at(1200)) || c.Settled(at(1199)) {
		t.Error("Settled should flip exactly at the end of the animation")
	}
}

func TestCounterZeroDurationJumps(t *testing.T) {
	c := NewCounter(5, 0)
	c.Retarget(42, t0)
	if got := c.Value(t0); got != 42 {
		t.Errorf("Value = %d, want 42", got)
	}
}

func TestBar(t *testing.T) {
	b := NewBar(0.5, time.Second)
	b.Retarget(1, t0)
	if got := b.Value(at(500)); got != 0.75 {
		t.Errorf("Value = %v, want 0.75", got)
	}
	b.Jump(0.25)
	if got := b.Value(at(500)); got != 0.25 {
		t.Errorf("after Jump = %v, want 0.25", got)
	}
}

func levelUpResult() progression.Result {
	return progression.Result{
		Success:       true,
		NewTotalXP:    105,
		NewLevel:      1,
		LeveledUp:     true,
		PreviousLevel: 0,
		Progress:      progression.Progress{XPIntoLevel: 5, XPNeededForLevel: 200},
		NewlyUnlockedAchievements: []models.Achievement{
			{ID: "first-steps", Name: "First Steps"},
		},
		XPAwarded: 10,
		Version:   2,
	}
}

func TestSyncerLevelUpSequence(t *testing.T) {
	s := NewSyncer(DefaultTimings())
	s.Seed(Snapshot{TotalXP: 95, Progress: progression.Progress{XPIntoLevel: 95, XPNeededForLevel: 100}, Version: 1})

	if !s.Apply(levelUpResult(), t0) {
		t.Fatal("Apply rejected a newer result")
	}
	if snap := s.Snapshot(); snap.TotalXP != 105 || snap.Level != 1 || snap.Version != 2 {
		t.Fatalf("cache = %+v", snap)
	}

	f := s.Frame(t0)
	if f.TotalXP != 95 || f.Celebration != nil || !f.Animating {
		t.Errorf("start frame = %+v", f)
	}
	if f.Fill != 0.95 {
		t.Errorf("start fill = %v, want 0.95", f.Fill)
	}

	// Counters settle at 800ms, the level-up waits a further 300ms.
	f = s.Frame(at(800))
	if f.TotalXP != 105 || f.Level != 1 || f.Celebration != nil {
		t.Errorf("settled frame = %+v", f)
	}
	if f.Fill != 0.025 {
		t.Errorf("settled fill = %v, want 0.025", f.Fill)
	}

	f = s.Frame(at(1100))
	if f.Celebration == nil || f.Celebration.Kind != CelebrateLevelUp || f.Celebration.Level != 1 {
		t.Fatalf("expected level-up celebration, got %+v", f.Celebration)
	}

	f = s.Frame(at(3100))
	if f.Celebration == nil || f.Celebration.Kind != CelebrateAchievement || f.Celebration.Achievement.ID != "first-steps" {
		t.Fatalf("expected achievement after level-up, got %+v", f.Celebration)
	}

	f = s.Frame(at(5100))
	if f.Celebration != nil || f.Animating {
		t.Errorf("final frame = %+v", f)
	}
}

func TestSyncerIgnoresStaleAndDuplicateResults(t *testing.T) {
	s := NewSyncer(DefaultTimings())
	s.Seed(Snapshot{Version: 1})
	s.Apply(levelUpResult(), t0)

	older := progression.Result{NewTotalXP: 50, Version: 1}
	if s.Apply(older, at(10)) {
		t.Error("older result should be ignored")
	}
	if s.Apply(levelUpResult(), at(20)) {
		t.Error("duplicate result should be ignored")
	}
	if got := s.Snapshot().TotalXP; got != 105 {
		t.Errorf("TotalXP = %d, want 105", got)
	}

	// The duplicate must not queue a second level-up.
	s.Frame(at(1100))
	if f := s.Frame(at(3100)); f.Celebration == nil || f.Celebration.Kind != CelebrateAchievement {
		t.Errorf("celebration = %+v, want the achievement", f.Celebration)
	}
}

func TestSyncerSupersedesMidAnimation(t *testing.T) {
	s := NewSyncer(DefaultTimings())
	s.Seed(Snapshot{})
	s.Apply(progression.Result{NewTotalXP: 100, Version: 1}, t0)
	s.Apply(progression.Result{NewTotalXP: 200, Version: 2}, at(400))

	if got := s.Frame(at(400)).TotalXP; got != 50 {
		t.Errorf("displayed at supersede = %d, want 50", got)
	}
	if got := s.Frame(at(1200)).TotalXP; got != 200 {
		t.Errorf("displayed at end = %d, want 200", got)
	}
}

func TestMergeCelebrationsKeepsLevelUpFirst(t *testing.T) {
	pending := []Celebration{
		{Kind: CelebrateLevelUp, Level: 1},
		{Kind: CelebrateAchievement, Achievement: models.Achievement{ID: "a"}},
	}
	next := []Celebration{
		{Kind: CelebrateLevelUp, Level: 2},
		{Kind: CelebrateAchievement, Achievement: models.Achievement{ID: "b"}},
	}

	got := mergeCelebrations(pending, next)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(got), got)
	}
	if got[0].Kind != CelebrateLevelUp || got[0].Level != 2 {
		t.Errorf("first = %+v, want level-up 2", got[0])
	}
	if got[1].Achievement.ID != "a" || got[2].Achievement.ID != "b" {
		t.Errorf("achievements out of order: %+v", got[1:])
	}
}

func TestSyncerFailLeavesCacheUntouched(t *testing.T) {
	s := NewSyncer(DefaultTimings())
	s.Seed(Snapshot{TotalXP: 40, Points: 3, Version: 4})

	s.Fail(progression.Wrap(progression.KindTransientFailure, "request failed", errors.New("connection refused")), t0)

	if snap := s.Snapshot(); snap.TotalXP != 40 || snap.Points != 3 || snap.Version != 4 {
		t.Errorf("cache changed: %+v", snap)
	}
	f := s.Frame(at(100))
	if f.TotalXP != 40 {
		t.Errorf("displayed = %d, want 40", f.TotalXP)
	}
	if f.Notice == nil || f.Notice.Kind != progression.KindTransientFailure {
		t.Fatalf("notice = %+v", f.Notice)
	}
	if s.Frame(at(3000)).Notice != nil {
		t.Error("notice should expire")
	}
}

func TestNoticeText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{progression.ErrUnauthenticated, "Please log in to keep your progress"},
		{progression.ErrInvalidAmount, "That action could not be recorded"},
		{progression.NewError(progression.KindAlreadyCompleted, "Weekly quest already claimed this week"), "Weekly quest already claimed this week"},
		{progression.ErrTransientFailure, "Connection problem, please try again"},
		{progression.ErrInvariantViolation, "Something is wrong with your progress. Please contact support"},
		{progression.NewError("conflict", "username already exists"), "Something went wrong, please retry"},
		{errors.New("boom"), "Connection problem, please try again"},
	}
	for _, tc := range tests {
		if got := NoticeText(tc.err); got != tc.want {
			t.Errorf("NoticeText(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestSyncerRefresh(t *testing.T) {
	s := NewSyncer(DefaultTimings())
	if !s.Refresh(Snapshot{TotalXP: 30, Version: 2}, t0) {
		t.Fatal("first refresh should seed")
	}
	if got := s.Frame(t0).TotalXP; got != 30 {
		t.Errorf("seeded display = %d, want 30", got)
	}

	if s.Refresh(Snapshot{TotalXP: 10, Version: 1}, t0) {
		t.Error("older read should be ignored")
	}
	if !s.Refresh(Snapshot{TotalXP: 130, Level: 1, Version: 5}, t0) {
		t.Fatal("newer read should apply")
	}
	if got := s.Frame(at(400)).TotalXP; got != 80 {
		t.Errorf("halfway = %d, want 80", got)
	}
	if f := s.Frame(at(2000)); f.Celebration != nil || f.TotalXP != 130 {
		t.Errorf("refresh should not celebrate: %+v", f)
	}
}
