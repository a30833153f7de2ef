// Package time2 abstracts the wall clock so that timed waits can be tested
// without sleeping.
package time2

import (
	"time"
)

// These methods are all equivalent to those provided by the time package.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	After(d time.Duration) <-chan time.Time
	NewTimer(d time.Duration) Timer
	Sleep(d time.Duration)
}

// A single-shot timer.  Stop releases it before it fires, and reports
// whether it did so.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realTimer struct {
	timer *time.Timer
}

func (t realTimer) C() <-chan time.Time {
	return t.timer.C
}

func (t realTimer) Stop() bool {
	return t.timer.Stop()
}

type realClock struct{}

func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (realClock) NewTimer(d time.Duration) Timer {
	return realTimer{timer: time.NewTimer(d)}
}

func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

var DefaultClock = NewRealClock()

// Return the duration as a float64 number of seconds.
func DurationToFloat(d time.Duration) float64 {
	return float64(d) / float64(time.Second)
}
