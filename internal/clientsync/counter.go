package clientsync

import (
	"math"
	"time"
)

// Counter animates an integer linearly from one value to another over a
// fixed duration. Intermediate values are floored.
type Counter struct {
	from, to int
	start    time.Time
	duration time.Duration
}

// NewCounter returns a counter resting at value.
func NewCounter(value int, duration time.Duration) Counter {
	return Counter{from: value, to: value, duration: duration}
}

// Value is the number to display at now.
func (c Counter) Value(now time.Time) int {
	f := fraction(c.start, c.duration, now)
	if f >= 1 {
		return c.to
	}
	return c.from + int(math.Floor(float64(c.to-c.from)*f))
}

// Retarget starts a new animation toward to from the value on screen at now.
func (c *Counter) Retarget(to int, now time.Time) {
	c.from = c.Value(now)
	c.to = to
	c.start = now
}

// Jump sets the counter to value with no animation.
func (c *Counter) Jump(value int) {
	c.from, c.to = value, value
	c.start = time.Time{}
}

func (c Counter) Target() int {
	return c.to
}

// Settled reports whether the animation has finished at now.
func (c Counter) Settled(now time.Time) bool {
	return c.from == c.to || !now.Before(c.start.Add(c.duration))
}

// Bar animates a progress-bar fill in [0, 1].
type Bar struct {
	from, to float64
	start    time.Time
	duration time.Duration
}

func NewBar(value float64, duration time.Duration) Bar {
	return Bar{from: value, to: value, duration: duration}
}

func (b Bar) Value(now time.Time) float64 {
	f := fraction(b.start, b.duration, now)
	if f >= 1 {
		return b.to
	}
	return b.from + (b.to-b.from)*f
}

func (b *Bar) Retarget(to float64, now time.Time) {
	b.from = b.Value(now)
	b.to = to
	b.start = now
}

func (b *Bar) Jump(value float64) {
	b.from, b.to = value, value
	b.start = time.Time{}
}

func (b Bar) Target() float64 {
	return b.to
}

func fraction(start time.Time, d time.Duration, now time.Time) float64 {
	if d <= 0 || start.IsZero() {
		return 1
	}
	elapsed := now.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= d {
		return 1
	}
	return float64(elapsed) / float64(d)
}
