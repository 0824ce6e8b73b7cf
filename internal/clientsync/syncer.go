package clientsync

import (
	"time"

	"github.com/tahcohcat/gamify-web/config"
	"github.com/tahcohcat/gamify-web/internal/models"
	"github.com/tahcohcat/gamify-web/internal/progression"
)

// Timings controls how results are animated.
type Timings struct {
	CounterDuration     time.Duration
	LevelUpDelay        time.Duration
	LevelUpDuration     time.Duration
	AchievementInterval time.Duration
	NoticeDuration      time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		CounterDuration:     800 * time.Millisecond,
		LevelUpDelay:        300 * time.Millisecond,
		LevelUpDuration:     2 * time.Second,
		AchievementInterval: 2 * time.Second,
		NoticeDuration:      3 * time.Second,
	}
}

// TimingsFromConfig fills unset values from DefaultTimings.
func TimingsFromConfig(cfg config.ClientConfig) Timings {
	t := DefaultTimings()
	if cfg.CounterDuration > 0 {
		t.CounterDuration = cfg.CounterDuration
	}
	if cfg.LevelUpDelay > 0 {
		t.LevelUpDelay = cfg.LevelUpDelay
	}
	if cfg.LevelUpDuration > 0 {
		t.LevelUpDuration = cfg.LevelUpDuration
	}
	if cfg.AchievementInterval > 0 {
		t.AchievementInterval = cfg.AchievementInterval
	}
	if cfg.NoticeDuration > 0 {
		t.NoticeDuration = cfg.NoticeDuration
	}
	return t
}

type CelebrationKind int

const (
	CelebrateLevelUp CelebrationKind = iota
	CelebrateAchievement
)

// Celebration is a level-up banner or an achievement card.
type Celebration struct {
	Kind        CelebrationKind
	Level       int
	Achievement models.Achievement
	Until       time.Time
}

// Frame is everything the UI needs to draw at one instant.
type Frame struct {
	TotalXP     int
	Level       int
	Points      int
	StreakCount int
	// Fill is the animated progress-bar fraction.
	Fill        float64
	Progress    progression.Progress
	Celebration *Celebration
	Notice      *Notice
	Animating   bool
}

// Syncer applies server results to the cache and schedules what the user
// sees. It is not safe for concurrent use; drive it from the UI loop.
type Syncer struct {
	timings Timings
	cache   Cache

	xp, level, points Counter
	bar               Bar

	// queue holds celebrations not yet shown. They start once readyAt has
	// passed and play one after another.
	queue   []Celebration
	readyAt time.Time
	current *Celebration
	notice  *Notice
}

func NewSyncer(t Timings) *Syncer {
	return &Syncer{
		timings: t,
		xp:      NewCounter(0, t.CounterDuration),
		level:   NewCounter(0, t.CounterDuration),
		points:  NewCounter(0, t.CounterDuration),
		bar:     NewBar(0, t.CounterDuration),
	}
}

// Seed loads a snapshot from a plain read. Displayed values jump to it.
func (s *Syncer) Seed(snap Snapshot) {
	s.cache.Seed(snap)
	s.xp.Jump(snap.TotalXP)
	s.level.Jump(snap.Level)
	s.points.Jump(snap.Points)
	s.bar.Jump(snap.Progress.Fraction())
}

// Apply takes a fresh server result. Stale or duplicate results are
// ignored and Apply returns false. Otherwise running animations are
// superseded and restart from what is currently displayed.
func (s *Syncer) Apply(r progression.Result, now time.Time) bool {
	snap := SnapshotFromResult(r)
	if !s.cache.Apply(snap) {
		return false
	}
	s.retarget(snap, now)

	var next []Celebration
	if r.LeveledUp {
		next = append(next, Celebration{Kind: CelebrateLevelUp, Level: r.NewLevel})
	}
	for _, a := range r.NewlyUnlockedAchievements {
		next = append(next, Celebration{Kind: CelebrateAchievement, Achievement: a})
	}
	s.queue = mergeCelebrations(s.queue, next)
	s.readyAt = now.Add(s.timings.CounterDuration + s.timings.LevelUpDelay)
	return true
}

// Refresh applies a snapshot from a plain read, such as a dashboard reload
// after the push channel was down. Newer state animates in like a result
// but nothing is celebrated.
func (s *Syncer) Refresh(snap Snapshot, now time.Time) bool {
	if !s.cache.Loaded() {
		s.Seed(snap)
		return true
	}
	if !s.cache.Apply(snap) {
		return false
	}
	s.retarget(snap, now)
	return true
}

func (s *Syncer) retarget(snap Snapshot, now time.Time) {
	s.xp.Retarget(snap.TotalXP, now)
	s.level.Retarget(snap.Level, now)
	s.points.Retarget(snap.Points, now)
	s.bar.Retarget(snap.Progress.Fraction(), now)
}

// mergeCelebrations keeps pending celebrations from an earlier result.
// At most one level-up is pending, showing the highest level, and it
// always plays before achievements.
func mergeCelebrations(pending, next []Celebration) []Celebration {
	levelUp := -1
	var achievements []Celebration
	for _, c := range append(pending, next...) {
		if c.Kind == CelebrateLevelUp {
			levelUp = max(levelUp, c.Level)
			continue
		}
		achievements = append(achievements, c)
	}

	out := make([]Celebration, 0, len(achievements)+1)
	if levelUp >= 0 {
		out = append(out, Celebration{Kind: CelebrateLevelUp, Level: levelUp})
	}
	return append(out, achievements...)
}

// Fail records a failed request. The cache is not touched.
func (s *Syncer) Fail(err error, now time.Time) {
	s.notice = &Notice{
		Kind:  progression.KindOf(err),
		Text:  NoticeText(err),
		Until: now.Add(s.timings.NoticeDuration),
	}
}

// Snapshot is the last server state applied.
func (s *Syncer) Snapshot() Snapshot {
	return s.cache.Snapshot()
}

// Frame advances celebrations and notices to now and returns what to draw.
func (s *Syncer) Frame(now time.Time) Frame {
	if s.current != nil && !now.Before(s.current.Until) {
		s.current = nil
	}
	if s.current == nil && len(s.queue) > 0 && !now.Before(s.readyAt) {
		c := s.queue[0]
		s.queue = s.queue[1:]
		if c.Kind == CelebrateLevelUp {
			c.Until = now.Add(s.timings.LevelUpDuration)
		} else {
			c.Until = now.Add(s.timings.AchievementInterval)
		}
		s.current = &c
	}
	if s.notice != nil && !now.Before(s.notice.Until) {
		s.notice = nil
	}

	snap := s.cache.Snapshot()
	return Frame{
		TotalXP:     s.xp.Value(now),
		Level:       s.level.Value(now),
		Points:      s.points.Value(now),
		StreakCount: snap.StreakCount,
		Fill:        s.bar.Value(now),
		Progress:    snap.Progress,
		Celebration: s.current,
		Notice:      s.notice,
		Animating:   !s.xp.Settled(now) || !s.level.Settled(now) || !s.points.Settled(now) || s.current != nil || len(s.queue) > 0,
	}
}

// Loaded reports whether any snapshot has been applied yet.
func (s *Syncer) Loaded() bool {
	return s.cache.Loaded()
}
