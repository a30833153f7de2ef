package resource_pool

import (
	"context"
	"time"

	"github.com/lericson/pylibmc/errors"
	"github.com/lericson/pylibmc/memcache"
	"github.com/lericson/pylibmc/stats"
	"github.com/lericson/pylibmc/time2"
)

// A Pool lends memcache connections to scoped callers.  Both ClientPool
// and ThreadMappedPool implement it.
type Pool interface {
	// Reserves a connection for the duration of fn and returns it to the
	// pool on every exit path of fn, including panics.  fn's error is
	// returned unchanged.  For ThreadMappedPool, ctx must carry an
	// identity (see context2.WithIdentity); for ClientPool, ctx bounds the
	// wait for a free connection.
	WithContext(
		ctx context.Context,
		fn func(memcache.Connection) error) error
}

type Options struct {
	// Used for timed waits.  Defaults to the real clock.
	Clock time2.Clock

	// Metrics sink.  Defaults to stats.NoOpStatsFactory.
	StatsFactory stats.StatsFactory

	// Extra tags attached to every metric the pool creates.
	StatsTags map[string]string
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time2.DefaultClock
	}
	if o.StatsFactory == nil {
		o.StatsFactory = stats.NoOpStatsFactory
	}
	return o
}

func (o Options) tags(kind string) map[string]string {
	tags := make(map[string]string, len(o.StatsTags)+1)
	for k, v := range o.StatsTags {
		tags[k] = v
	}
	tags["pool"] = kind
	return tags
}

// Returned when no connection became available before the deadline.  The
// failed attempt has no side effects on the pool.
type PoolExhaustedError struct {
	err errors.Error

	// The timeout that expired.  Zero when the wait was bounded by a
	// context instead.
	Timeout time.Duration
}

func newPoolExhaustedError(
	timeout time.Duration,
	cause error) *PoolExhaustedError {

	var err errors.Error
	if cause != nil {
		err = errors.Wrap(cause, "No connection became available")
	} else {
		err = errors.Newf(
			"No connection became available within %s",
			timeout)
	}
	return &PoolExhaustedError{err: err, Timeout: timeout}
}

func (e *PoolExhaustedError) Error() string {
	return e.err.Error()
}

func (e *PoolExhaustedError) Unwrap() error {
	return e.err
}

func IsPoolExhausted(err error) bool {
	var target *PoolExhaustedError
	return errors.As(err, &target)
}
