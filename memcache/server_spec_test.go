package memcache

import (
	. "gopkg.in/check.v1"

	. "github.com/lericson/pylibmc/gocheck2"
)

type ServerSpecSuite struct{}

var _ = Suite(&ServerSpecSuite{})

func (s *ServerSpecSuite) TestParse(c *C) {
	cases := []struct {
		spec     string
		expected ServerAddress
	}{
		{"127.0.0.1", ServerAddress{ServerTypeTCP, "127.0.0.1", 11211}},
		{"10.0.0.1:12345", ServerAddress{ServerTypeTCP, "10.0.0.1", 12345}},
		{"cache.local:1", ServerAddress{ServerTypeTCP, "cache.local", 1}},
		{"udp:127.0.0.1", ServerAddress{ServerTypeUDP, "127.0.0.1", 11211}},
		{"udp:127.0.0.1:3", ServerAddress{ServerTypeUDP, "127.0.0.1", 3}},
		{"/tmp/memcached.sock", ServerAddress{ServerTypeUnix, "/tmp/memcached.sock", 0}},
		{"[::1]", ServerAddress{ServerTypeTCP, "::1", 11211}},
		{"[::1]:5", ServerAddress{ServerTypeTCP, "::1", 5}},
		{" localhost ", ServerAddress{ServerTypeTCP, "localhost", 11211}},
	}

	for _, tc := range cases {
		addr, err := ParseServerSpec(tc.spec)
		c.Assert(err, IsNil, Commentf("spec %q", tc.spec))
		c.Assert(addr, Equals, tc.expected, Commentf("spec %q", tc.spec))
	}
}

func (s *ServerSpecSuite) TestParseErrors(c *C) {
	for _, spec := range []string{
		"",
		"host:port",
		"host:0",
		"host:70000",
		":11211",
		"udp:",
		"[::1",
	} {
		_, err := ParseServerSpec(spec)
		c.Assert(err, NotNil, Commentf("spec %q", spec))
		c.Assert(IsInvalidConfiguration(err), IsTrue, Commentf("spec %q", spec))
	}
}

func (s *ServerSpecSuite) TestRoundTrip(c *C) {
	for _, spec := range []string{
		"127.0.0.1:11211",
		"udp:10.1.1.1:4000",
		"/var/run/mc.sock",
		"[::1]:11211",
	} {
		addr, err := ParseServerSpec(spec)
		c.Assert(err, IsNil)
		c.Assert(addr.String(), Equals, spec)

		again, err := ParseServerSpec(addr.String())
		c.Assert(err, IsNil)
		c.Assert(again, Equals, addr)
	}
}

func (s *ServerSpecSuite) TestParseSpecs(c *C) {
	addrs, err := ParseServerSpecs([]string{"a", "b:2"})
	c.Assert(err, IsNil)
	c.Assert(addrs, HasLen, 2)
	c.Assert(addrs[1].Address(), Equals, "b:2")

	_, err = ParseServerSpecs(nil)
	c.Assert(IsInvalidConfiguration(err), IsTrue)

	_, err = ParseServerSpecs([]string{"a", "b:x"})
	c.Assert(IsInvalidConfiguration(err), IsTrue)
}

func (s *ServerSpecSuite) TestServerTypeString(c *C) {
	c.Assert(ServerTypeTCP.String(), Equals, "tcp")
	c.Assert(ServerTypeUDP.String(), Equals, "udp")
	c.Assert(ServerTypeUnix.String(), Equals, "unix")
}
