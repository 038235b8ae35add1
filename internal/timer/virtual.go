package timer

import (
	"sync"
	"time"
)

// VirtualClock is a Clock driven entirely by Advance: nothing fires until
// the test tells it to. Useful for exercising expiry/batching windows
// (pending-file's 300s timeout, the pipeline's 100ms batch) without a real
// sleep.
type VirtualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
	tickers []*virtualTicker
}

type waiter struct {
	at time.Time
	ch chan time.Time
}

// NewVirtualClock starts the clock at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, waiter{at: c.now.Add(d), ch: ch})
	return ch
}

func (c *VirtualClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &virtualTicker{period: d, next: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing every waiter that falls due
// at or before the new time, then every ticker's ticks in time order. Like
// time.Ticker, a ticker's channel holds one tick: a tick that falls due
// while the previous one is still unread is dropped.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	target := c.now.Add(d)

	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.at.After(target) {
			select {
			case w.ch <- w.at:
			default:
			}
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining

	for _, t := range c.tickers {
		if t.stopped {
			continue
		}
		for !t.next.After(target) {
			select {
			case t.ch <- t.next:
			default:
			}
			t.next = t.next.Add(t.period)
		}
	}
	c.now = target
}

type virtualTicker struct {
	period  time.Duration
	next    time.Time
	ch      chan time.Time
	stopped bool
}

func (t *virtualTicker) C() <-chan time.Time { return t.ch }
func (t *virtualTicker) Stop()               { t.stopped = true }
