package memcache

import (
	"net"
	"time"

	gomemcache "github.com/bradfitz/gomemcache/memcache"
	. "gopkg.in/check.v1"

	. "github.com/lericson/pylibmc/gocheck2"
)

type GomemcacheClientSuite struct{}

var _ = Suite(&GomemcacheClientSuite{})

func (s *GomemcacheClientSuite) TestNewClient(c *C) {
	client, err := NewClient(
		[]string{"127.0.0.1:11211", "/tmp/mc.sock"},
		map[string]string{"poll_timeout": "100", "connect_timeout": "5"})
	c.Assert(err, IsNil)
	c.Assert(client.Servers(), HasLen, 2)
	c.Assert(client.Servers()[1].Type, Equals, ServerTypeUnix)
	c.Assert(client.Timeout(), Equals, 100*time.Millisecond)
}

func (s *GomemcacheClientSuite) TestConnectTimeoutFallback(c *C) {
	client, err := NewClient(
		[]string{"127.0.0.1"},
		map[string]string{"connect_timeout": "5"})
	c.Assert(err, IsNil)
	c.Assert(client.Timeout(), Equals, 5*time.Millisecond)
}

func (s *GomemcacheClientSuite) TestRejects(c *C) {
	_, err := NewClient(nil, nil)
	c.Assert(IsInvalidConfiguration(err), IsTrue)

	_, err = NewClient([]string{"udp:127.0.0.1"}, nil)
	c.Assert(IsInvalidConfiguration(err), IsTrue)

	_, err = NewClient(
		[]string{"127.0.0.1"},
		map[string]string{"binary_protocol": "true"})
	c.Assert(IsInvalidConfiguration(err), IsTrue)

	_, err = NewClient([]string{"127.0.0.1"}, map[string]string{"hash": "x"})
	c.Assert(IsInvalidConfiguration(err), IsTrue)
}

func (s *GomemcacheClientSuite) TestClone(c *C) {
	client, err := NewClient(
		[]string{"127.0.0.1:11211"},
		map[string]string{"tcp_nodelay": "1"})
	c.Assert(err, IsNil)

	conn, err := client.Clone()
	c.Assert(err, IsNil)

	clone := conn.(*GomemcacheClient)
	c.Assert(clone, Not(SameInstance), client)
	c.Assert(clone.underlying(), Not(SameInstance), client.underlying())
	c.Assert(clone.Servers(), DeepEquals, client.Servers())
	c.Assert(clone.Behaviors(), SameInstance, client.Behaviors())
	c.Assert(clone.serverList, SameInstance, client.serverList)
}

func serverListAddrs(c *C, client *GomemcacheClient) []string {
	var addrs []string
	err := client.serverList.Each(func(addr net.Addr) error {
		addrs = append(addrs, addr.String())
		return nil
	})
	c.Assert(err, IsNil)
	return addrs
}

func (s *GomemcacheClientSuite) TestServerList(c *C) {
	specs := []string{"127.0.0.3:11211", "127.0.0.1", "/tmp/mc.sock"}

	client, err := NewClient(specs, nil)
	c.Assert(err, IsNil)
	c.Assert(
		serverListAddrs(c, client),
		DeepEquals,
		[]string{"127.0.0.3:11211", "127.0.0.1:11211", "/tmp/mc.sock"})

	client, err = NewClient(specs, map[string]string{"sort_hosts": "true"})
	c.Assert(err, IsNil)
	c.Assert(
		serverListAddrs(c, client),
		DeepEquals,
		[]string{"/tmp/mc.sock", "127.0.0.1:11211", "127.0.0.3:11211"})

	// The configured order is kept for introspection.
	c.Assert(client.Servers()[0].Host, Equals, "127.0.0.3")
}

func (s *GomemcacheClientSuite) TestDisconnectAll(c *C) {
	client, err := NewClient([]string{"127.0.0.1:11211"}, nil)
	c.Assert(err, IsNil)

	before := client.underlying()
	c.Assert(client.DisconnectAll(), IsNil)
	c.Assert(client.underlying(), Not(SameInstance), before)
}

func (s *GomemcacheClientSuite) TestUnsupported(c *C) {
	client, err := NewClient([]string{"127.0.0.1:11211"}, nil)
	c.Assert(err, IsNil)

	resp := client.Set(&Item{Key: "a", DataVersionId: 3})
	c.Assert(resp.Status(), Equals, StatusNotSupported)

	c.Assert(client.Flush(10).Status(), Equals, StatusNotSupported)
}

func (s *GomemcacheClientSuite) TestStatusFromError(c *C) {
	status, err := statusFromError(nil, "Get")
	c.Assert(err, IsNil)
	c.Assert(status, Equals, StatusNoError)

	status, err = statusFromError(gomemcache.ErrCacheMiss, "Get")
	c.Assert(err, IsNil)
	c.Assert(status, Equals, StatusKeyNotFound)

	status, err = statusFromError(gomemcache.ErrNotStored, "Add")
	c.Assert(err, IsNil)
	c.Assert(status, Equals, StatusItemNotStored)

	status, err = statusFromError(gomemcache.ErrCASConflict, "CompareAndSwap")
	c.Assert(err, IsNil)
	c.Assert(status, Equals, StatusKeyExists)

	_, err = statusFromError(gomemcache.ErrServerError, "Set")
	c.Assert(err, ErrorMatches, "Set failed(.|\n)*")
}
