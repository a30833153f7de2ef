package memcache

import (
	"time"

	. "gopkg.in/check.v1"

	. "github.com/lericson/pylibmc/gocheck2"
)

type BehaviorsSuite struct{}

var _ = Suite(&BehaviorsSuite{})

func (s *BehaviorsSuite) TestTranslate(c *C) {
	b, err := NewBehaviors(map[string]string{
		"tcp_nodelay":  "true",
		"verify_key":   "0",
		"hash":         "crc",
		"ketama_hash":  "md5",
		"distribution": "consistent",
		"poll_timeout": "250",
	})
	c.Assert(err, IsNil)
	c.Assert(b.Len(), Equals, 6)

	v, ok := b.Get(BehaviorTCPNoDelay)
	c.Assert(ok, IsTrue)
	c.Assert(v, Equals, uint64(1))

	v, ok = b.Get(BehaviorVerifyKey)
	c.Assert(ok, IsTrue)
	c.Assert(v, Equals, uint64(0))

	_, ok = b.Get(BehaviorNoBlock)
	c.Assert(ok, IsFalse)

	c.Assert(b.Hash(), Equals, HashCRC)
	c.Assert(b.Distribution(), Equals, DistributionConsistent)
	c.Assert(b.Duration(BehaviorPollTimeout), Equals, 250*time.Millisecond)
}

func (s *BehaviorsSuite) TestNamesRoundTrip(c *C) {
	raw := map[string]string{
		"no_block":             "true",
		"hash":                 "fnv1a_32",
		"distribution":         "consistent_ketama",
		"server_failure_limit": "3",
	}
	b, err := NewBehaviors(raw)
	c.Assert(err, IsNil)
	c.Assert(b.Names(), DeepEquals, raw)

	again, err := NewBehaviors(b.Names())
	c.Assert(err, IsNil)
	c.Assert(again, DeepEquals, b)
}

func (s *BehaviorsSuite) TestErrors(c *C) {
	for _, raw := range []map[string]string{
		{"no such behavior": "1"},
		{"hash": "sha1"},
		{"distribution": "random"},
		{"tcp_nodelay": "maybe"},
		{"retry_timeout": "-1"},
	} {
		_, err := NewBehaviors(raw)
		c.Assert(err, NotNil, Commentf("%v", raw))
		c.Assert(IsInvalidConfiguration(err), IsTrue)
	}
}

func (s *BehaviorsSuite) TestNilBehaviors(c *C) {
	var b *Behaviors
	c.Assert(b.Len(), Equals, 0)
	c.Assert(b.Hash(), Equals, HashDefault)
	c.Assert(b.Distribution(), Equals, DistributionModula)
	c.Assert(b.Names(), HasLen, 0)
}

func (s *BehaviorsSuite) TestStrings(c *C) {
	c.Assert(HashMurmur.String(), Equals, "murmur")
	c.Assert(Hasher(99).String(), Equals, "99")
	c.Assert(DistributionModula.String(), Equals, "modula")
	c.Assert(BehaviorKetamaWeighted.String(), Equals, "ketama_weighted")

	names := BehaviorNames()
	c.Assert(names, HasLen, len(behaviorTable))
	c.Assert(names[0], Equals, "binary_protocol")
}
