package memcache

import (
	. "gopkg.in/check.v1"

	"github.com/lericson/pylibmc/errors"
)

type ResponsesSuite struct{}

var _ = Suite(&ResponsesSuite{})

func (s *ResponsesSuite) TestGetMissIsNotAnError(c *C) {
	resp := NewGetResponse("k", StatusKeyNotFound, 7, []byte("v"), 3)
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Status(), Equals, StatusKeyNotFound)
	c.Assert(resp.Key(), Equals, "k")
	c.Assert(resp.Value(), IsNil)
	c.Assert(resp.Flags(), Equals, uint32(0))
	c.Assert(resp.DataVersionId(), Equals, uint64(0))
}

func (s *ResponsesSuite) TestGetFound(c *C) {
	resp := NewGetResponse("k", StatusNoError, 7, nil, 3)
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Value(), DeepEquals, []byte{})
	c.Assert(resp.Flags(), Equals, uint32(7))
	c.Assert(resp.DataVersionId(), Equals, uint64(3))
}

func (s *ResponsesSuite) TestClientErrorWins(c *C) {
	err := errors.New("connection reset")

	get := NewGetErrorResponse("k", err)
	c.Assert(get.Error(), Equals, err)
	c.Assert(get.Key(), Equals, "k")

	mutate := NewMutateErrorResponse("k", err)
	c.Assert(mutate.Error(), Equals, err)

	count := NewCountErrorResponse("k", err)
	c.Assert(count.Error(), Equals, err)
	c.Assert(count.Count(), Equals, uint64(0))

	c.Assert(NewErrorResponse(err).Error(), Equals, err)
}

func (s *ResponsesSuite) TestStatusErrors(c *C) {
	mutate := NewMutateResponse("k", StatusKeyExists, 9)
	c.Assert(errors.GetMessage(mutate.Error()), Equals, "Key exists")
	c.Assert(mutate.DataVersionId(), Equals, uint64(0))

	mutate = NewMutateResponse("k", StatusNoError, 9)
	c.Assert(mutate.Error(), IsNil)
	c.Assert(mutate.DataVersionId(), Equals, uint64(9))

	count := NewCountResponse("k", StatusIncrDecrOnNonNumericValue, 4)
	c.Assert(
		errors.GetMessage(count.Error()),
		Equals,
		"Incr/decr on non-numeric value")
	c.Assert(count.Count(), Equals, uint64(0))

	c.Assert(NewResponse(StatusNoError).Error(), IsNil)
	c.Assert(
		errors.GetMessage(NewResponse(StatusBusy).Error()),
		Equals,
		"Server busy")
	c.Assert(ResponseStatus(0x7f).String(), Equals, "Unknown")
}
