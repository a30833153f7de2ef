// Package rate_limiter throttles callers with a token bucket that is
// refilled on a fixed interval.
package rate_limiter

import (
	"sync"
	"time"

	"github.com/lericson/pylibmc/errors"
	"github.com/lericson/pylibmc/time2"
)

const refillInterval = 100 * time.Millisecond

var refillsPerSec = float64(time.Second / refillInterval)

// A thread-safe token bucket.  Every refill interval adds a tenth of
// QuotaPerSec tokens, capped at MaxQuota.
type RateLimiter struct {
	clock    time2.Clock
	stopChan chan struct{}

	mutex sync.Mutex
	cond  *sync.Cond // signalled on refill, resize and stop

	maxQuota    float64 // guarded by mutex
	quotaPerSec float64 // guarded by mutex
	tokens      float64 // guarded by mutex
	stopped     bool    // guarded by mutex
}

// Returns a limiter which does not refill on its own.
func newRateLimiter(clock time2.Clock) *RateLimiter {
	l := &RateLimiter{
		clock:    clock,
		stopChan: make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mutex)
	return l
}

func NewRateLimiter(
	maxQuota float64,
	quotaPerSec float64) (*RateLimiter, error) {

	return NewRateLimiterWithClock(time2.DefaultClock, maxQuota, quotaPerSec)
}

// Creates a running limiter whose refills are timed by clock.  The bucket
// starts empty.  A zero maxQuota disables throttling.  Stop must be called
// to release the refill goroutine.
func NewRateLimiterWithClock(
	clock time2.Clock,
	maxQuota float64,
	quotaPerSec float64) (*RateLimiter, error) {

	l := newRateLimiter(clock)
	if err := l.SetMaxQuota(maxQuota); err != nil {
		return nil, err
	}
	if err := l.SetQuotaPerSec(quotaPerSec); err != nil {
		return nil, err
	}

	go l.refillLoop()
	return l, nil
}

func (l *RateLimiter) refillLoop() {
	for {
		select {
		case <-l.clock.After(refillInterval):
			l.refill()
		case <-l.stopChan:
			return
		}
	}
}

func (l *RateLimiter) refill() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.tokens += l.quotaPerSec / refillsPerSec
	if l.tokens > l.maxQuota {
		l.tokens = l.maxQuota
	}
	l.cond.Broadcast()
}

func (l *RateLimiter) MaxQuota() float64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.maxQuota
}

// Resizes the bucket, discarding tokens above the new size.
func (l *RateLimiter) SetMaxQuota(q float64) error {
	if q < 0 {
		return errors.Newf("Max quota must be non-negative: %f", q)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.maxQuota = q
	if l.tokens > q {
		l.tokens = q
	}
	l.cond.Broadcast()
	return nil
}

func (l *RateLimiter) QuotaPerSec() float64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.quotaPerSec
}

func (l *RateLimiter) SetQuotaPerSec(r float64) error {
	if r < 0 {
		return errors.Newf("Quota per second must be non-negative: %f", r)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.quotaPerSec = r
	return nil
}

// The tokens currently in the bucket.
func (l *RateLimiter) Quota() float64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.tokens
}

// Blocks until request tokens have been taken from the bucket, and
// returns whether the caller had to wait.  Requests larger than the
// bucket drain it over several refills.  Never blocks when MaxQuota is
// zero or once the limiter is stopped.
func (l *RateLimiter) Throttle(request float64) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	waited := false
	for request > 0 && l.maxQuota > 0 && !l.stopped {
		if l.tokens >= request {
			l.tokens -= request
			return waited
		}
		request -= l.tokens
		l.tokens = 0

		l.cond.Wait()
		waited = true
	}
	return waited
}

// Stops refilling and releases every blocked Throttle call.  Safe to call
// more than once.
func (l *RateLimiter) Stop() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.stopped {
		return
	}
	l.stopped = true
	close(l.stopChan)
	l.cond.Broadcast()
}
