package payment

import (
	"sync"
	"time"
)

// Countdown runs fn after the delay unless canceled; Now fires it
// immediately (the user's "continue now" action). fn runs at most once.
type Countdown struct {
	timer *time.Timer

	mu   sync.Mutex
	done bool
	fn   func()
}

func StartCountdown(delay time.Duration, fn func()) *Countdown {
	c := &Countdown{fn: fn}
	c.timer = time.AfterFunc(delay, c.fire)
	return c
}

func (c *Countdown) Now() {
	c.timer.Stop()
	c.fire()
}

func (c *Countdown) Cancel() {
	c.timer.Stop()
	c.mu.Lock()
	c.done = true
	c.mu.Unlock()
}

func (c *Countdown) fire() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	fn := c.fn
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}
