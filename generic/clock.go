package generic

import (
	"sync"
	"time"
)

// Clock supplies "now". Engines never call time.Now directly so that jobs and
// rules can be driven to any instant in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// SettableClock is a manually driven clock for tests and replays.
type SettableClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewSettableClock(t time.Time) *SettableClock {
	return &SettableClock{now: t}
}

func (c *SettableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *SettableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *SettableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Today is the calendar day of c.Now() in the clock's location.
func Today(c Clock) Day {
	return DayOf(c.Now())
}
