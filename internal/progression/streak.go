package progression

import (
	"time"

	"github.com/tahcohcat/gamify-web/internal/models"
)

// RecordActivity updates the consecutive-day streak for today (a time in the
// server timezone) and returns the new count. Yesterday extends the streak,
// today leaves it alone, anything else restarts it at 1.
func RecordActivity(p *models.UserProgress, today time.Time) int {
	todayKey := today.Format(DateLayout)
	yesterdayKey := today.AddDate(0, 0, -1).Format(DateLayout)

	switch p.LastActivityDate {
	case todayKey:
		if p.StreakCount == 0 {
			p.StreakCount = 1
		}
	case yesterdayKey:
		p.StreakCount++
	default:
		p.StreakCount = 1
	}

	p.LastActivityDate = todayKey
	return p.StreakCount
}
