package resource_pool

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	. "gopkg.in/check.v1"

	"github.com/lericson/pylibmc/context2"
	. "github.com/lericson/pylibmc/gocheck2"
	"github.com/lericson/pylibmc/memcache"
	"github.com/lericson/pylibmc/stats"
)

type ThreadMappedPoolSuite struct {
	master *countingMaster
	pool   *ThreadMappedPool
}

var _ = Suite(&ThreadMappedPoolSuite{})

func (s *ThreadMappedPoolSuite) SetUpTest(c *C) {
	s.master = newCountingMaster()

	var err error
	s.pool, err = NewThreadMappedPool(s.master, Options{})
	c.Assert(err, IsNil)
}

func (s *ThreadMappedPoolSuite) TestNilMaster(c *C) {
	_, err := NewThreadMappedPool(nil, Options{})
	c.Assert(memcache.IsInvalidConfiguration(err), IsTrue)
}

func (s *ThreadMappedPoolSuite) TestLazyClone(c *C) {
	c.Assert(s.master.NumClones(), Equals, 0)
	c.Assert(s.pool.Len(), Equals, 0)
}

func (s *ThreadMappedPoolSuite) TestSimple(c *C) {
	var first memcache.Connection
	err := s.pool.With("worker-1", func(smc memcache.Connection) error {
		first = smc
		resp := smc.Set(&memcache.Item{Key: "a", Value: []byte("1")})
		c.Assert(resp.Error(), IsNil)
		return nil
	})
	c.Assert(err, IsNil)

	err = s.pool.With("worker-1", func(smc memcache.Connection) error {
		c.Assert(smc, SameInstance, first)

		gresp := smc.Get("a")
		c.Assert(gresp.Error(), IsNil)
		c.Assert(string(gresp.Value()), Equals, "1")
		return nil
	})
	c.Assert(err, IsNil)

	c.Assert(s.master.NumClones(), Equals, 1)
	c.Assert(s.pool.Len(), Equals, 1)
}

func (s *ThreadMappedPoolSuite) TestDistinctIdentities(c *C) {
	m1, err := s.pool.Reserve(1)
	c.Assert(err, IsNil)
	m2, err := s.pool.Reserve(2)
	c.Assert(err, IsNil)

	c1, err := m1.Client()
	c.Assert(err, IsNil)
	c2, err := m2.Client()
	c.Assert(err, IsNil)
	c.Assert(c1, Not(SameInstance), c2)
	c.Assert(c1, Not(SameInstance), s.master.MockClient)

	c.Assert(m1.Identity(), Equals, 1)
	c.Assert(m2.Identity(), Equals, 2)
	c.Assert(s.pool.Len(), Equals, 0)

	c.Assert(m1.Release(), IsNil)
	c.Assert(m2.Release(), IsNil)
	c.Assert(s.pool.Len(), Equals, 2)
	c.Assert(s.master.NumClones(), Equals, 2)
}

func (s *ThreadMappedPoolSuite) TestNestedReservation(c *C) {
	outer, err := s.pool.Reserve("id")
	c.Assert(err, IsNil)
	inner, err := s.pool.Reserve("id")
	c.Assert(err, IsNil)

	outerConn, err := outer.Client()
	c.Assert(err, IsNil)
	innerConn, err := inner.Client()
	c.Assert(err, IsNil)
	c.Assert(outerConn, Not(SameInstance), innerConn)
	c.Assert(s.master.NumClones(), Equals, 2)

	c.Assert(inner.Release(), IsNil)
	c.Assert(outer.Release(), IsNil)

	// The connection released last stays mapped.
	c.Assert(s.pool.Len(), Equals, 1)
	c.Assert(innerConn.(*memcache.MockClient).NumDisconnects(), Equals, 1)
	c.Assert(outerConn.(*memcache.MockClient).NumDisconnects(), Equals, 0)

	err = s.pool.With("id", func(conn memcache.Connection) error {
		c.Assert(conn, SameInstance, outerConn)
		return nil
	})
	c.Assert(err, IsNil)
	c.Assert(s.master.NumClones(), Equals, 2)
}

func (s *ThreadMappedPoolSuite) TestInvalidIdentity(c *C) {
	_, err := s.pool.Reserve(nil)
	c.Assert(memcache.IsInvalidConfiguration(err), IsTrue)

	_, err = s.pool.Reserve([]int{1})
	c.Assert(memcache.IsInvalidConfiguration(err), IsTrue)

	_, err = s.pool.Reserve(map[string]int{})
	c.Assert(memcache.IsInvalidConfiguration(err), IsTrue)

	// Comparable type, unhashable value.
	type wrapped struct{ X interface{} }
	_, err = s.pool.Reserve(wrapped{[]int{1}})
	c.Assert(memcache.IsInvalidConfiguration(err), IsTrue)

	err = s.pool.With(wrapped{map[string]int{}}, func(memcache.Connection) error {
		c.Fatal("ran with an unhashable identity")
		return nil
	})
	c.Assert(memcache.IsInvalidConfiguration(err), IsTrue)

	c.Assert(s.master.NumClones(), Equals, 0)
	c.Assert(s.pool.Remove(nil), IsNil)
	c.Assert(s.pool.Remove(wrapped{[]int{1}}), IsNil)

	// Hashable struct identities work.
	_, err = s.pool.Reserve(wrapped{"worker"})
	c.Assert(err, IsNil)
}

func (s *ThreadMappedPoolSuite) TestReserveContext(c *C) {
	_, err := s.pool.ReserveContext(context.Background())
	c.Assert(memcache.IsInvalidConfiguration(err), IsTrue)

	ctx := context2.WithIdentity(context.Background(), "request-7")
	mapped, err := s.pool.ReserveContext(ctx)
	c.Assert(err, IsNil)
	c.Assert(mapped.Identity(), Equals, "request-7")
	conn, err := mapped.Client()
	c.Assert(err, IsNil)
	c.Assert(mapped.Release(), IsNil)

	err = s.pool.WithContext(ctx, func(other memcache.Connection) error {
		c.Assert(other, SameInstance, conn)
		return nil
	})
	c.Assert(err, IsNil)

	called := false
	err = s.pool.WithContext(
		context.Background(),
		func(memcache.Connection) error {
			called = true
			return nil
		})
	c.Assert(memcache.IsInvalidConfiguration(err), IsTrue)
	c.Assert(called, IsFalse)
}

func (s *ThreadMappedPoolSuite) TestCloneFailure(c *C) {
	s.master.failAfter = 0

	called := false
	err := s.pool.With("id", func(memcache.Connection) error {
		called = true
		return nil
	})
	c.Assert(err, NotNil)
	c.Assert(called, IsFalse)
	c.Assert(s.pool.Len(), Equals, 0)
}

func (s *ThreadMappedPoolSuite) TestRemove(c *C) {
	c.Assert(s.pool.Remove("id"), IsNil)

	mapped, err := s.pool.Reserve("id")
	c.Assert(err, IsNil)
	conn, err := mapped.Client()
	c.Assert(err, IsNil)
	c.Assert(mapped.Release(), IsNil)

	c.Assert(s.pool.Remove("id"), SameInstance, conn)
	c.Assert(s.pool.Len(), Equals, 0)

	// The next reservation clones a fresh connection.
	mapped, err = s.pool.Reserve("id")
	c.Assert(err, IsNil)
	fresh, err := mapped.Client()
	c.Assert(err, IsNil)
	c.Assert(fresh, Not(SameInstance), conn)
	c.Assert(mapped.Release(), IsNil)
}

func (s *ThreadMappedPoolSuite) TestDisconnectAll(c *C) {
	conns := make([]*memcache.MockClient, 0, 3)
	for i := 0; i < 3; i++ {
		err := s.pool.With(i, func(conn memcache.Connection) error {
			conns = append(conns, conn.(*memcache.MockClient))
			return nil
		})
		c.Assert(err, IsNil)
	}

	c.Assert(s.pool.DisconnectAll(), IsNil)
	for _, conn := range conns {
		c.Assert(conn.NumDisconnects(), Equals, 1)
	}
	c.Assert(s.pool.Len(), Equals, 3)
}

func (s *ThreadMappedPoolSuite) TestReleaseAndClient(c *C) {
	mapped, err := s.pool.Reserve("id")
	c.Assert(err, IsNil)

	c.Assert(mapped.Release(), IsNil)
	c.Assert(mapped.Release(), IsNil)
	c.Assert(s.pool.Len(), Equals, 1)

	_, err = mapped.Client()
	c.Assert(err, NotNil)
}

func (s *ThreadMappedPoolSuite) TestWithPropagatesError(c *C) {
	bodyErr := stderrors.New("body failed")
	err := s.pool.With("id", func(memcache.Connection) error {
		c.Assert(s.pool.Len(), Equals, 0)
		return bodyErr
	})
	c.Assert(err, Equals, bodyErr)
	c.Assert(s.pool.Len(), Equals, 1)
}

func (s *ThreadMappedPoolSuite) TestWithReleasesOnPanic(c *C) {
	func() {
		defer func() {
			c.Assert(recover(), Equals, "boom")
		}()
		_ = s.pool.With("id", func(memcache.Connection) error {
			panic("boom")
		})
	}()
	c.Assert(s.pool.Len(), Equals, 1)
}

func (s *ThreadMappedPoolSuite) TestConcurrentIdentities(c *C) {
	const numWorkers = 8

	var mutex sync.Mutex
	seen := make(map[int]map[memcache.Connection]bool)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = s.pool.With(id, func(conn memcache.Connection) error {
					mutex.Lock()
					defer mutex.Unlock()
					if seen[id] == nil {
						seen[id] = make(map[memcache.Connection]bool)
					}
					seen[id][conn] = true
					return nil
				})
			}
		}(i)
	}
	wg.Wait()

	c.Assert(s.pool.Len(), Equals, numWorkers)
	c.Assert(s.master.NumClones(), Equals, numWorkers)

	owners := make(map[memcache.Connection]int)
	for id, conns := range seen {
		c.Assert(conns, HasLen, 1)
		for conn := range conns {
			_, taken := owners[conn]
			c.Assert(taken, IsFalse)
			owners[conn] = id
		}
	}
}

func (s *ThreadMappedPoolSuite) TestStats(c *C) {
	factory := stats.NewLocalFactory()
	pool, err := NewThreadMappedPool(s.master, Options{StatsFactory: factory})
	c.Assert(err, IsNil)

	for i := 0; i < 3; i++ {
		c.Assert(pool.With("id", func(memcache.Connection) error {
			return nil
		}), IsNil)
	}

	c.Assert(factory.CounterValue("pool.reservations{pool=mapped}"), Equals, 3.0)
	c.Assert(factory.CounterValue("pool.clones{pool=mapped}"), Equals, 1.0)
}

// Blocks in DisconnectAll until gate is closed.
type gatedConn struct {
	*memcache.MockClient
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedConn) DisconnectAll() error {
	close(g.entered)
	<-g.gate
	return g.MockClient.DisconnectAll()
}

// Hands out the same gatedConn on every clone.
type gatedMaster struct {
	*memcache.MockClient
	conn *gatedConn
}

func (m *gatedMaster) Clone() (memcache.Connection, error) {
	return m.conn, nil
}

func (s *ThreadMappedPoolSuite) TestDisconnectAllExcludesReservations(c *C) {
	conn := &gatedConn{
		MockClient: memcache.NewMockClient(),
		entered:    make(chan struct{}),
		gate:       make(chan struct{}),
	}
	pool, err := NewThreadMappedPool(
		&gatedMaster{MockClient: memcache.NewMockClient(), conn: conn},
		Options{})
	c.Assert(err, IsNil)
	c.Assert(pool.With("id", func(memcache.Connection) error { return nil }), IsNil)

	disconnected := make(chan error, 1)
	go func() {
		disconnected <- pool.DisconnectAll()
	}()
	<-conn.entered

	reserved := make(chan *MappedClient, 1)
	go func() {
		mapped, err := pool.Reserve("id")
		c.Check(err, IsNil)
		reserved <- mapped
	}()

	select {
	case <-reserved:
		c.Fatal("Reserved a connection while it was being disconnected")
	case <-time.After(20 * time.Millisecond):
	}

	close(conn.gate)
	c.Assert(<-disconnected, IsNil)

	mapped := <-reserved
	c.Assert(mapped, NotNil)
	c.Assert(conn.NumDisconnects(), Equals, 1)
	c.Assert(mapped.Release(), IsNil)
}
