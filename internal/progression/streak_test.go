package progression

import (
	"testing"
	"time"

	"github.com/tahcohcat/gamify-web/internal/models"
)

func day(d int) time.Time {
	return time.Date(2026, 10, d, 9, 30, 0, 0, time.UTC)
}

func TestRecordActivity_ConsecutiveDays(t *testing.T) {
	p := &models.UserProgress{}
	for i, d := range []int{1, 2, 3, 4} {
		got := RecordActivity(p, day(d))
		if got != i+1 {
			t.Errorf("day %d: streak = %d, want %d", d, got, i+1)
		}
	}
	if p.LastActivityDate != "2026-10-04" {
		t.Errorf("LastActivityDate = %q, want 2026-10-04", p.LastActivityDate)
	}
}

func TestRecordActivity_SameDayUnchanged(t *testing.T) {
	p := &models.UserProgress{}
	RecordActivity(p, day(5))
	RecordActivity(p, day(6))
	if got := RecordActivity(p, day(6).Add(10*time.Hour)); got != 2 {
		t.Errorf("streak after second call on same day = %d, want 2", got)
	}
}

func TestRecordActivity_GapResets(t *testing.T) {
	p := &models.UserProgress{StreakCount: 6, LastActivityDate: "2026-10-10"}
	if got := RecordActivity(p, day(12)); got != 1 {
		t.Errorf("streak after one missed day = %d, want 1", got)
	}
	if p.LastActivityDate != "2026-10-12" {
		t.Errorf("LastActivityDate = %q, want 2026-10-12", p.LastActivityDate)
	}
}

func TestRecordActivity_NoPriorActivity(t *testing.T) {
	p := &models.UserProgress{}
	if got := RecordActivity(p, day(1)); got != 1 {
		t.Errorf("first streak = %d, want 1", got)
	}
}

func TestRecordActivity_MonthBoundary(t *testing.T) {
	p := &models.UserProgress{StreakCount: 3, LastActivityDate: "2026-09-30"}
	if got := RecordActivity(p, day(1)); got != 4 {
		t.Errorf("streak across month boundary = %d, want 4", got)
	}
}

func TestRecordActivity_ClockWentBackwards(t *testing.T) {
	p := &models.UserProgress{StreakCount: 3, LastActivityDate: "2026-10-20"}
	if got := RecordActivity(p, day(18)); got != 1 {
		t.Errorf("streak after backwards date = %d, want 1", got)
	}
}
