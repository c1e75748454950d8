package sqlite

import (
	"sync"
	"time"
)

// clock hands out strictly increasing UTC timestamps at microsecond
// resolution. Posts are ordered by creation time alone, so two writes in
// the same microsecond must not tie.
type clock struct {
	mu   sync.Mutex
	last int64
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().UnixMicro()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return time.UnixMicro(now).UTC()
}
