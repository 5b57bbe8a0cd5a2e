// Package timer runs the single per-session turn countdown.
package timer

import (
	"sync"
	"time"
)

// Controller holds at most one armed countdown. The callback receives the
// generation the countdown was armed with so the receiver can drop fires
// that belong to an earlier turn.
type Controller struct {
	mu       sync.Mutex
	t        *time.Timer
	seq      uint64
	gen      int
	deadline time.Time
}

func New() *Controller { return &Controller{} }

// Start cancels any armed countdown and arms a new one for gen.
// onExpire runs on its own goroutine and must not block on the caller.
func (c *Controller) Start(d time.Duration, gen int, onExpire func(gen int)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.seq++
	seq := c.seq
	c.gen = gen
	c.deadline = time.Now().Add(d)
	c.t = time.AfterFunc(d, func() {
		c.mu.Lock()
		if c.seq != seq || c.t == nil {
			c.mu.Unlock()
			return
		}
		c.t = nil
		c.mu.Unlock()
		onExpire(gen)
	})
}

// Cancel stops the armed countdown. Safe to call at any time, any number of
// times; it never waits for a callback that is already running.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.t != nil {
		c.t.Stop()
		c.t = nil
	}
	c.seq++
}

func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t != nil
}

// Generation is the turn generation of the most recent Start.
func (c *Controller) Generation() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Remaining is the time left on the armed countdown, zero when idle.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.t == nil {
		return 0
	}
	return max(time.Until(c.deadline), 0)
}
