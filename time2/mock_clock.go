package time2

import (
	"sync"
	"time"
)

type mockWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// A fake clock useful for testing timing.  Channels returned by After fire
// once Advance moves the fake time past their deadline.  Sleep advances the
// clock instead of blocking.  Safe for concurrent use.
type MockClock struct {
	mutex       sync.Mutex
	currentTime time.Time
	waiters     []*mockWaiter
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{currentTime: start}
}

// Returns the fake current time.
func (c *MockClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.currentTime
}

// Returns the time elapsed since t according to the fake current time.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *MockClock) After(d time.Duration) <-chan time.Time {
	return c.NewTimer(d).C()
}

type mockTimer struct {
	clock  *MockClock
	waiter *mockWaiter
}

func (t *mockTimer) C() <-chan time.Time {
	return t.waiter.ch
}

func (t *mockTimer) Stop() bool {
	return t.clock.removeWaiter(t.waiter)
}

func (c *MockClock) NewTimer(d time.Duration) Timer {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	w := &mockWaiter{
		deadline: c.currentTime.Add(d),
		ch:       make(chan time.Time, 1),
	}
	if d <= 0 {
		w.ch <- c.currentTime
	} else {
		c.waiters = append(c.waiters, w)
	}
	return &mockTimer{clock: c, waiter: w}
}

// Returns false if w already fired or was removed.
func (c *MockClock) removeWaiter(w *mockWaiter) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for i, other := range c.waiters {
		if other == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}

func (c *MockClock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Set the mock clock to a specific time.  Waiters whose deadline has passed
// are fired.
func (c *MockClock) Set(t time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.currentTime = t
	c.fireExpired()
}

// Advances the mock clock by the specified duration.
func (c *MockClock) Advance(delta time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.currentTime = c.currentTime.Add(delta)
	c.fireExpired()
}

// Returns the number of timers which have neither fired nor been stopped.
func (c *MockClock) NumWaiters() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.waiters)
}

// Must be called with mutex held.
func (c *MockClock) fireExpired() {
	pending := c.waiters[:0]
	for _, w := range c.waiters {
		if c.currentTime.Before(w.deadline) {
			pending = append(pending, w)
			continue
		}
		w.ch <- c.currentTime
	}
	c.waiters = pending
}
