package sensor

import (
	"sync"
	"time"
)

// Clock supplies event timestamps in milliseconds.
type Clock interface {
	Millis() int64
}

// SessionClock counts milliseconds since it was created using the monotonic
// clock, and never reports a value lower than one it already returned.
type SessionClock struct {
	mu    sync.Mutex
	start time.Time
	last  int64
	now   func() time.Time
}

// NewSessionClock starts a clock at zero.
func NewSessionClock() *SessionClock {
	return newSessionClock(time.Now)
}

func newSessionClock(now func() time.Time) *SessionClock {
	return &SessionClock{start: now(), now: now}
}

// Millis returns elapsed milliseconds since the session started.
func (c *SessionClock) Millis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().Sub(c.start).Milliseconds()
	if ms < c.last {
		ms = c.last
	}
	c.last = ms
	return ms
}
