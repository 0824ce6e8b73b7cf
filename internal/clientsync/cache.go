// Package clientsync keeps a client's view of progression in step with the
// server. The server result always wins: the cache is overwritten wholesale
// and on-screen numbers animate toward it from whatever is displayed.
package clientsync

import (
	"github.com/tahcohcat/gamify-web/internal/models"
	"github.com/tahcohcat/gamify-web/internal/progression"
)

// Snapshot is the client's copy of a user's progression.
type Snapshot struct {
	TotalXP     int
	Level       int
	Points      int
	StreakCount int
	Progress    progression.Progress
	Version     int
}

// SnapshotFromProgress builds a Snapshot from a stored progress row.
func SnapshotFromProgress(p models.UserProgress) Snapshot {
	info := progression.LevelOf(p.TotalXP)
	return Snapshot{
		TotalXP:     p.TotalXP,
		Level:       info.Level,
		Points:      p.Points,
		StreakCount: p.StreakCount,
		Progress:    info.Progress,
		Version:     p.Version,
	}
}

// SnapshotFromResult builds a Snapshot from a mutation result.
func SnapshotFromResult(r progression.Result) Snapshot {
	return Snapshot{
		TotalXP:     r.NewTotalXP,
		Level:       r.NewLevel,
		Points:      r.NewPoints,
		StreakCount: r.StreakCount,
		Progress:    r.Progress,
		Version:     r.Version,
	}
}

// Cache holds the latest server snapshot. Writes only ever replace the
// whole snapshot; nothing increments it locally.
type Cache struct {
	snap   Snapshot
	loaded bool
}

// Seed replaces the cache unconditionally, e.g. after a fresh read.
func (c *Cache) Seed(s Snapshot) {
	c.snap = s
	c.loaded = true
}

// Apply stores s unless the cache already holds the same or a newer
// version. The same result can arrive twice, once in the HTTP response and
// once over the push channel.
func (c *Cache) Apply(s Snapshot) bool {
	if c.loaded && s.Version <= c.snap.Version {
		return false
	}
	c.Seed(s)
	return true
}

func (c *Cache) Snapshot() Snapshot {
	return c.snap
}

func (c *Cache) Loaded() bool {
	return c.loaded
}
