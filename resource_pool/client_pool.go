package resource_pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lericson/pylibmc/errors"
	"github.com/lericson/pylibmc/memcache"
	"github.com/lericson/pylibmc/stats"
	"github.com/lericson/pylibmc/time2"
)

// A fixed-capacity pool of cloned connections.  Callers block (optionally
// with a timeout) to reserve a connection and must release it when done.
//
// The pool never creates connections on demand and never destroys them:
// its connections are the clones made by Fill.  At any time, the number of
// reserved connections plus the number of available connections equals the
// number of filled connections, which never exceeds the capacity.
type ClientPool struct {
	options  Options
	capacity int

	// Buffered to capacity, so returning a connection never blocks.
	available chan memcache.Connection

	numReserved *int32 // atomic counter

	fillMutex sync.Mutex
	numFilled int // guarded by fillMutex

	reservations   stats.CounterStat
	releases       stats.CounterStat
	exhausted      stats.CounterStat
	availableGauge stats.GaugeStat
	waitTime       stats.SummaryStat
}

var _ Pool = (*ClientPool)(nil)

// Allocates an empty pool with room for capacity connections.  Use Fill to
// populate it.
func NewClientPool(capacity int, options Options) (*ClientPool, error) {
	if capacity <= 0 {
		return nil, memcache.NewInvalidConfigurationError(
			"Invalid pool capacity: %d",
			capacity)
	}

	options = options.withDefaults()
	tags := options.tags("bounded")
	factory := options.StatsFactory

	return &ClientPool{
		options:        options,
		capacity:       capacity,
		available:      make(chan memcache.Connection, capacity),
		numReserved:    new(int32),
		reservations:   factory.NewCounter("pool.reservations", tags),
		releases:       factory.NewCounter("pool.releases", tags),
		exhausted:      factory.NewCounter("pool.exhausted", tags),
		availableGauge: factory.NewGauge("pool.available", tags),
		waitTime:       factory.NewSummary("pool.wait_seconds", tags),
	}, nil
}

// Allocates a pool and fills all of its capacity with clones of master.
// If a clone fails, the clones already made are disconnected.
func NewFilledClientPool(
	master memcache.Connection,
	capacity int,
	options Options) (*ClientPool, error) {

	pool, err := NewClientPool(capacity, options)
	if err != nil {
		return nil, err
	}
	if err := pool.Fill(master, capacity); err != nil {
		pool.disconnectIdle()
		return nil, err
	}
	return pool, nil
}

// Fills n slots of the pool with clones of master.  master.Clone is called
// exactly n times, unless a clone fails; clones made before the failure
// stay in the pool.  Asking for more slots than remain unfilled is a
// configuration error and clones nothing.
func (p *ClientPool) Fill(master memcache.Connection, n int) error {
	if master == nil {
		return memcache.NewInvalidConfigurationError(
			"Cannot fill pool from a nil connection")
	}
	if n <= 0 {
		return memcache.NewInvalidConfigurationError(
			"Invalid number of slots to fill: %d",
			n)
	}

	p.fillMutex.Lock()
	defer p.fillMutex.Unlock()

	if p.numFilled+n > p.capacity {
		return memcache.NewInvalidConfigurationError(
			"Cannot fill %d slots: %d of %d slots already filled",
			n,
			p.numFilled,
			p.capacity)
	}

	for i := 0; i < n; i++ {
		conn, err := master.Clone()
		if err != nil {
			return errors.Wrapf(
				err,
				"Failed to clone connection %d of %d",
				i+1,
				n)
		}
		p.numFilled++
		p.available <- conn
		p.availableGauge.Inc()
	}
	return nil
}

// Reserves a connection, blocking until one is available.
func (p *ClientPool) Reserve() (*ReservedClient, error) {
	return p.ReserveContext(context.Background())
}

// Reserves a connection, blocking for up to timeout.  If none becomes
// available in time, this returns a PoolExhaustedError and hands out
// nothing.  A non-positive timeout makes a single non-blocking attempt.
func (p *ClientPool) ReserveTimeout(
	timeout time.Duration) (*ReservedClient, error) {

	start := p.options.Clock.Now()

	select {
	case conn := <-p.available:
		return p.reserved(conn, start), nil
	default:
	}

	if timeout <= 0 {
		return nil, p.exhaustedError(timeout, nil)
	}

	timer := p.options.Clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case conn := <-p.available:
		return p.reserved(conn, start), nil
	case <-timer.C():
		return nil, p.exhaustedError(timeout, nil)
	}
}

// Reserves a connection, blocking until one is available or ctx is done.
// In the latter case, this returns a PoolExhaustedError wrapping ctx.Err().
// An already done context never reserves.
func (p *ClientPool) ReserveContext(
	ctx context.Context) (*ReservedClient, error) {

	if err := ctx.Err(); err != nil {
		return nil, p.exhaustedError(0, err)
	}

	start := p.options.Clock.Now()

	select {
	case conn := <-p.available:
		return p.reserved(conn, start), nil
	case <-ctx.Done():
		return nil, p.exhaustedError(0, ctx.Err())
	}
}

// Runs fn with a reserved connection, blocking until one is available.
// The connection is released on every exit path of fn.
func (p *ClientPool) With(fn func(memcache.Connection) error) error {
	return p.WithContext(context.Background(), fn)
}

// Same as With, but gives up with a PoolExhaustedError (without running
// fn) if no connection becomes available within timeout.
func (p *ClientPool) WithTimeout(
	timeout time.Duration,
	fn func(memcache.Connection) error) error {

	reserved, err := p.ReserveTimeout(timeout)
	if err != nil {
		return err
	}
	return reserved.run(fn)
}

// Same as With, but gives up with a PoolExhaustedError (without running
// fn) once ctx is done.
func (p *ClientPool) WithContext(
	ctx context.Context,
	fn func(memcache.Connection) error) error {

	reserved, err := p.ReserveContext(ctx)
	if err != nil {
		return err
	}
	return reserved.run(fn)
}

// The maximum number of connections the pool can hold.
func (p *ClientPool) Capacity() int {
	return p.capacity
}

// The number of connections Fill has added so far.
func (p *ClientPool) NumFilled() int {
	p.fillMutex.Lock()
	defer p.fillMutex.Unlock()
	return p.numFilled
}

// The number of connections waiting to be reserved.
func (p *ClientPool) NumAvailable() int {
	return len(p.available)
}

// The number of connections currently reserved.
func (p *ClientPool) NumReserved() int {
	return int(atomic.LoadInt32(p.numReserved))
}

func (p *ClientPool) reserved(
	conn memcache.Connection,
	start time.Time) *ReservedClient {

	atomic.AddInt32(p.numReserved, 1)
	p.availableGauge.Dec()
	p.reservations.Inc()
	p.waitTime.Observe(time2.DurationToFloat(p.options.Clock.Since(start)))

	return &ReservedClient{
		pool:     p,
		conn:     conn,
		released: new(int32),
	}
}

func (p *ClientPool) exhaustedError(
	timeout time.Duration,
	cause error) error {

	p.exhausted.Inc()
	return newPoolExhaustedError(timeout, cause)
}

// Drains the idle connections and disconnects them.  Only for pools no
// caller can reach.
func (p *ClientPool) disconnectIdle() {
	for {
		select {
		case conn := <-p.available:
			p.availableGauge.Dec()
			_ = conn.DisconnectAll()
		default:
			return
		}
	}
}

func (p *ClientPool) put(conn memcache.Connection) error {
	select {
	case p.available <- conn:
	default:
		// Only reachable if a connection not handed out by this pool was
		// put back.
		return errors.New("Pool is full; dropping released connection")
	}

	atomic.AddInt32(p.numReserved, -1)
	p.availableGauge.Inc()
	p.releases.Inc()
	return nil
}

// A connection reserved from a ClientPool.  The holder owns the connection
// exclusively until Release.
type ReservedClient struct {
	pool *ClientPool
	conn memcache.Connection

	released *int32 // atomic flag
}

// Returns the reserved connection.  This fails once the connection has been
// released.
func (r *ReservedClient) Client() (memcache.Connection, error) {
	if atomic.LoadInt32(r.released) != 0 {
		return nil, errors.New("Connection has already been released")
	}
	return r.conn, nil
}

// Returns the connection to the pool, waking one blocked reserver if any.
// Releasing more than once is a no-op.
func (r *ReservedClient) Release() error {
	if !atomic.CompareAndSwapInt32(r.released, 0, 1) {
		return nil
	}
	return r.pool.put(r.conn)
}

func (r *ReservedClient) run(fn func(memcache.Connection) error) error {
	defer func() {
		_ = r.Release()
	}()
	return fn(r.conn)
}
