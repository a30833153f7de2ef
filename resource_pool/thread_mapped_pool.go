package resource_pool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lericson/pylibmc/context2"
	"github.com/lericson/pylibmc/errors"
	"github.com/lericson/pylibmc/memcache"
	"github.com/lericson/pylibmc/stats"
)

// Maps caller identities to dedicated connections.  The first reservation
// by an identity clones the master connection; later reservations by the
// same identity reuse that clone.  Reservations never block and the number
// of connections is bounded only by the number of distinct identities.
//
// Go has no goroutine identity, so callers supply their own: any
// comparable value that is unique per concurrent logical caller (a worker
// index, a request id, ...).
//
// While reserved, a connection is removed from the mapping.  A nested
// reservation by the same identity therefore clones an extra connection
// instead of deadlocking or sharing.  When both are released, the one
// released last stays mapped and the other is disconnected.
type ThreadMappedPool struct {
	options Options
	master  memcache.Connection

	cloneMutex sync.Mutex // serializes master.Clone

	mutex   sync.Mutex
	clients map[interface{}]memcache.Connection // guarded by mutex

	reservations stats.CounterStat
	clones       stats.CounterStat
}

var _ Pool = (*ThreadMappedPool)(nil)

// Stores master for later cloning.  Nothing is cloned until the first
// reservation.
func NewThreadMappedPool(
	master memcache.Connection,
	options Options) (*ThreadMappedPool, error) {

	if master == nil {
		return nil, memcache.NewInvalidConfigurationError(
			"Cannot create pool from a nil connection")
	}

	options = options.withDefaults()
	tags := options.tags("mapped")
	factory := options.StatsFactory

	return &ThreadMappedPool{
		options:      options,
		master:       master,
		clients:      make(map[interface{}]memcache.Connection),
		reservations: factory.NewCounter("pool.reservations", tags),
		clones:       factory.NewCounter("pool.clones", tags),
	}, nil
}

// Identities must be usable as map keys.  A comparable type can still hold
// an unhashable value (an interface field holding a slice), so hashing is
// tried rather than inferred from the type.
func checkIdentity(identity interface{}) (err error) {
	if identity == nil {
		return memcache.NewInvalidConfigurationError("Missing identity")
	}

	defer func() {
		if recover() != nil {
			err = memcache.NewInvalidConfigurationError(
				"Identity of type %T is not hashable",
				identity)
		}
	}()
	_ = map[interface{}]struct{}{identity: {}}
	return nil
}

// Reserves identity's connection, cloning the master connection if
// identity has none yet.
func (p *ThreadMappedPool) Reserve(
	identity interface{}) (*MappedClient, error) {

	if err := checkIdentity(identity); err != nil {
		return nil, err
	}

	p.mutex.Lock()
	conn, ok := p.clients[identity]
	if ok {
		delete(p.clients, identity)
	}
	p.mutex.Unlock()

	if !ok {
		var err error
		conn, err = p.clone()
		if err != nil {
			return nil, errors.Wrapf(
				err,
				"Failed to clone connection for %v",
				identity)
		}
	}

	p.reservations.Inc()
	return &MappedClient{
		pool:     p,
		identity: identity,
		conn:     conn,
		released: new(int32),
	}, nil
}

// Same as Reserve, with the identity taken from ctx (see
// context2.WithIdentity).
func (p *ThreadMappedPool) ReserveContext(
	ctx context.Context) (*MappedClient, error) {

	identity, ok := context2.IdentityFromContext(ctx)
	if !ok {
		return nil, memcache.NewInvalidConfigurationError(
			"Context carries no identity")
	}
	return p.Reserve(identity)
}

// Runs fn with identity's connection.  The connection is put back on
// every exit path of fn.
func (p *ThreadMappedPool) With(
	identity interface{},
	fn func(memcache.Connection) error) error {

	mapped, err := p.Reserve(identity)
	if err != nil {
		return err
	}
	return mapped.run(fn)
}

// Same as With, with the identity taken from ctx.
func (p *ThreadMappedPool) WithContext(
	ctx context.Context,
	fn func(memcache.Connection) error) error {

	mapped, err := p.ReserveContext(ctx)
	if err != nil {
		return err
	}
	return mapped.run(fn)
}

// The number of identities with an idle mapped connection.
func (p *ThreadMappedPool) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.clients)
}

// Forgets identity's idle connection and returns it (nil if there is
// none).  The caller owns the returned connection.
func (p *ThreadMappedPool) Remove(identity interface{}) memcache.Connection {
	if checkIdentity(identity) != nil {
		return nil
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	conn := p.clients[identity]
	delete(p.clients, identity)
	return conn
}

// Disconnects every idle mapped connection.  The connections stay mapped
// and reconnect on their next use.  Reservations wait until all of them
// are disconnected.  Returns the first error encountered.
func (p *ThreadMappedPool) DisconnectAll() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var firstErr error
	for _, conn := range p.clients {
		if err := conn.DisconnectAll(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *ThreadMappedPool) clone() (memcache.Connection, error) {
	p.cloneMutex.Lock()
	defer p.cloneMutex.Unlock()

	conn, err := p.master.Clone()
	if err != nil {
		return nil, err
	}
	p.clones.Inc()
	return conn, nil
}

func (p *ThreadMappedPool) reinsert(
	identity interface{},
	conn memcache.Connection) error {

	p.mutex.Lock()
	displaced, ok := p.clients[identity]
	p.clients[identity] = conn
	p.mutex.Unlock()

	if ok && displaced != conn {
		return displaced.DisconnectAll()
	}
	return nil
}

// A connection reserved from a ThreadMappedPool on behalf of an identity.
type MappedClient struct {
	pool     *ThreadMappedPool
	identity interface{}
	conn     memcache.Connection

	released *int32 // atomic flag
}

func (m *MappedClient) Identity() interface{} {
	return m.identity
}

// Returns the reserved connection.  This fails once the connection has been
// released.
func (m *MappedClient) Client() (memcache.Connection, error) {
	if atomic.LoadInt32(m.released) != 0 {
		return nil, errors.New("Connection has already been released")
	}
	return m.conn, nil
}

// Maps the connection back to its identity.  Releasing more than once is a
// no-op.
func (m *MappedClient) Release() error {
	if !atomic.CompareAndSwapInt32(m.released, 0, 1) {
		return nil
	}
	return m.pool.reinsert(m.identity, m.conn)
}

func (m *MappedClient) run(fn func(memcache.Connection) error) error {
	defer func() {
		_ = m.Release()
	}()
	return fn(m.conn)
}
