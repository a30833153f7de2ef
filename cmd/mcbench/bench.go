package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lericson/pylibmc/context2"
	"github.com/lericson/pylibmc/math2/pstats"
	"github.com/lericson/pylibmc/memcache"
	"github.com/lericson/pylibmc/rate_limiter"
	"github.com/lericson/pylibmc/resource_pool"
	"github.com/lericson/pylibmc/time2"
)

// One round of a benchmark against a reserved connection.  Mismatches are
// logged, not returned; only errors which should abort the worker are.
type benchFunc func(conn memcache.Connection, logger *log.Logger) error

type benchmark struct {
	name string
	fn   benchFunc
}

func benchGetSet(key string, data []byte) benchFunc {
	return func(conn memcache.Connection, logger *log.Logger) error {
		resp := conn.Set(&memcache.Item{Key: key, Value: data})
		if err := resp.Error(); err != nil {
			logger.Printf("set(%q, ...) fail: %s", key, err)
		}

		gresp := conn.Get(key)
		if gresp.Error() != nil || !bytes.Equal(gresp.Value(), data) {
			logger.Printf("get(%q) fail", key)
		}
		return nil
	}
}

func benchGetSetMulti(keys []string) benchFunc {
	return func(conn memcache.Connection, logger *log.Logger) error {
		items := make([]*memcache.Item, len(keys))
		for i, key := range keys {
			items[i] = &memcache.Item{Key: key, Value: []byte("data" + key)}
		}

		var failed []string
		for i, resp := range conn.SetMulti(items) {
			if resp.Error() != nil {
				failed = append(failed, keys[i])
			}
		}
		if len(failed) > 0 {
			logger.Printf("set_multi(%q) fail", failed)
		}

		found := 0
		for _, resp := range conn.GetMulti(keys) {
			if resp.Status() == memcache.StatusNoError {
				found++
			}
		}
		if found != len(keys) {
			logger.Printf("get_multi() incomplete: %d of %d", found, len(keys))
		}
		return nil
	}
}

var benchmarks = []benchmark{
	{
		"small i/o",
		benchGetSet("abc", []byte("all work no play jack is a dull boy")),
	},
	{
		"small multi i/o",
		benchGetSetMulti([]string{"abc", "def", "ghi", "kjl"}),
	},
	{
		"4k i/o",
		benchGetSet(
			strings.Repeat("abc", 8),
			bytes.Repeat([]byte("defb"), 1000)),
	},
}

type benchOptions struct {
	workers  int
	duration time.Duration

	// Per reservation.  Zero waits as long as the benchmark runs.
	reserveTimeout time.Duration

	// Rounds per second across all workers.  Zero is unlimited.
	rate float64

	clock  time2.Clock
	logger *log.Logger
}

// Latency samples kept per worker and benchmark.
const reservoirSize = 10000

var latencyPercentiles = []int{50, 90, 99, 999}

type benchResult struct {
	name     string
	rounds   int
	exhausts int
	errors   int
	elapsed  time.Duration // summed over rounds and workers

	latencies []time.Duration // sampled round latencies
}

// Latency percentiles over the sampled rounds, or nil if none succeeded.
func (r benchResult) latency() *pstats.PStats {
	if len(r.latencies) == 0 {
		return nil
	}
	samples := make([]time.Duration, len(r.latencies))
	copy(samples, r.latencies)
	stats, err := pstats.NewPStats(samples, latencyPercentiles)
	if err != nil {
		return nil
	}
	return stats
}

func (r benchResult) perSecond() float64 {
	if r.rounds == 0 || r.elapsed <= 0 {
		return 0
	}
	return float64(r.rounds) / time2.DurationToFloat(r.elapsed)
}

func (r benchResult) String() string {
	msg := fmt.Sprintf(
		"%s: %.2f benches per second average (%d rounds, %d exhausted, %d errors)",
		r.name,
		r.perSecond(),
		r.rounds,
		r.exhausts,
		r.errors)
	if stats := r.latency(); stats != nil {
		msg += "; latency " + stats.String()
	}
	return msg
}

// Runs every benchmark in turn, each for opts.duration across opts.workers
// goroutines.  Every worker reserves through pool with its own identity.
// Stops early (returning the results so far) once ctx is done.
func runBenchmarks(
	ctx context.Context,
	pool resource_pool.Pool,
	benches []benchmark,
	opts benchOptions) []benchResult {

	results := make([]benchResult, 0, len(benches))
	for _, b := range benches {
		if ctx.Err() != nil {
			break
		}
		opts.logger.Printf("benchmarking %s", b.name)
		result := runBenchmark(ctx, pool, b, opts)
		opts.logger.Print(result)
		results = append(results, result)
	}
	return results
}

func runBenchmark(
	ctx context.Context,
	pool resource_pool.Pool,
	b benchmark,
	opts benchOptions) benchResult {

	result := benchResult{name: b.name}
	var mutex sync.Mutex

	deadline := opts.clock.Now().Add(opts.duration)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var limiter *rate_limiter.RateLimiter
	if opts.rate > 0 {
		// Allow bursts of up to a tenth of a second's worth of rounds.
		var err error
		limiter, err = rate_limiter.NewRateLimiterWithClock(
			opts.clock,
			opts.rate/10+1,
			opts.rate)
		if err != nil {
			opts.logger.Printf("Not rate limiting: %s", err)
		} else {
			// Release throttled workers once the benchmark is over.
			timer := opts.clock.NewTimer(opts.duration)
			go func() {
				defer timer.Stop()
				select {
				case <-ctx.Done():
				case <-timer.C():
				}
				limiter.Stop()
			}()
			defer limiter.Stop()
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < opts.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			workerCtx := context2.WithIdentity(ctx, worker)
			local := benchResult{}
			reservoir := pstats.NewReservoir(reservoirSize, int64(worker))
			for workerCtx.Err() == nil && opts.clock.Now().Before(deadline) {
				if limiter != nil {
					limiter.Throttle(1)
					if !opts.clock.Now().Before(deadline) {
						break
					}
				}

				start := opts.clock.Now()
				err := withReservation(workerCtx, pool, opts, func(
					conn memcache.Connection) error {

					return b.fn(conn, opts.logger)
				})
				switch {
				case err == nil:
					latency := opts.clock.Since(start)
					local.rounds++
					local.elapsed += latency
					reservoir.Add(latency)
				case resource_pool.IsPoolExhausted(err):
					local.exhausts++
				default:
					local.errors++
					opts.logger.Printf("worker %d: %s", worker, err)
				}
			}

			mutex.Lock()
			defer mutex.Unlock()
			result.rounds += local.rounds
			result.exhausts += local.exhausts
			result.errors += local.errors
			result.elapsed += local.elapsed
			result.latencies = append(result.latencies, reservoir.Samples()...)
		}(i)
	}
	wg.Wait()

	return result
}

func withReservation(
	ctx context.Context,
	pool resource_pool.Pool,
	opts benchOptions,
	fn func(memcache.Connection) error) error {

	if opts.reserveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.reserveTimeout)
		defer cancel()
	}
	return pool.WithContext(ctx, fn)
}
