package memcache

// An item to be gotten from or stored in a memcache server.
type Item struct {
	// The item's key (the key can be up to 250 bytes maximum).
	Key string

	// The item's value.
	Value []byte

	// Flags are server-opaque flags whose semantics are entirely up to the app.
	Flags uint32

	// aka CAS (check and set) in memcache documentation.
	DataVersionId uint64

	// Expiration is the cache expiration time, in seconds: either a relative
	// time from now (up to 1 month), or an absolute Unix epoch time.
	// Zero means the Item has no expiration time.
	Expiration uint32
}

// A generic response to a memcache request.
type Response interface {
	// This returns the status returned by the memcache server.  When Error()
	// is non-nil, this value may not be valid.
	Status() ResponseStatus

	// This returns nil when no error is encountered by the client, and the
	// response status returned by the memcache server is StatusNoError.
	// Otherwise, this returns an error.
	//
	// NOTE: For get requests, this also returns nil when the response status
	// is StatusKeyNotFound.
	Error() error
}

// Response returned by Get/GetMulti requests.
type GetResponse interface {
	Response

	// This returns the key for the requested value.
	Key() string

	// This returns the retrieved entry.  The value is nil when the entry is
	// not found.
	Value() []byte

	// This returns the entry's flags value.  The value is only valid when
	// the entry is found.
	Flags() uint32

	// This returns the data version id (aka CAS) for the item.  The value is
	// only valid when the entry is found.
	DataVersionId() uint64
}

// Response returned by Set/Add/Replace/Delete/Append/Prepend requests.
type MutateResponse interface {
	Response

	// This returns the input key (useful for SetMulti where operations may be
	// applied out of order).
	Key() string

	// This returns the data version id (aka CAS) for the item.  For delete
	// requests, this always returns zero.
	DataVersionId() uint64
}

// Response returned by Increment/Decrement requests.
type CountResponse interface {
	Response

	// This returns the input key.
	Key() string

	// This returns the resulting count value.  On error status, this returns
	// zero.
	Count() uint64
}

type Client interface {
	// This retrieves a single entry from memcache.
	Get(key string) GetResponse

	// Batch version of the Get method.
	GetMulti(keys []string) map[string]GetResponse

	// This sets a single entry into memcache.  If the item's data version id
	// (aka CAS) is nonzero, the set operation can only succeed if the item
	// exists in memcache and has a same data version id.
	Set(item *Item) MutateResponse

	// Batch version of the Set method.  Note that the response entries
	// ordering is undefined (i.e., may not match the input ordering).
	SetMulti(items []*Item) []MutateResponse

	// This adds a single entry into memcache.  Note: Add will fail if the
	// item already exist in memcache.
	Add(item *Item) MutateResponse

	// This replaces a single entry in memcache.  Note: Replace will fail if
	// the item does not exist in memcache.
	Replace(item *Item) MutateResponse

	// This deletes a single entry from memcache.
	Delete(key string) MutateResponse

	// Batch version of the Delete method.  Note that the response entries
	// ordering is undefined (i.e., may not match the input ordering)
	DeleteMulti(keys []string) []MutateResponse

	// This appends the value bytes to the end of an existing entry.
	Append(key string, value []byte) MutateResponse

	// This prepends the value bytes to the start of an existing entry.
	Prepend(key string, value []byte) MutateResponse

	// This increments the key's counter by delta.  The counter must exist
	// and hold the ascii representation of a number.  Incrementing the
	// counter may cause it to wrap.
	Increment(key string, delta uint64) CountResponse

	// This decrements the key's counter by delta.  Decrementing never
	// results in a negative value; the counter is floored at 0.
	Decrement(key string, delta uint64) CountResponse

	// This invalidates all existing cache items after expiration number of
	// seconds.
	Flush(expiration uint32) Response
}

// A Connection is a Client bound to a server configuration.  A Connection
// is not safe for concurrent use: at most one owner may use it at a time.
// Pools hand out distinct Connections produced by Clone.
type Connection interface {
	Client

	// This returns a new, independent connection to the same servers with
	// the same behaviors.  The clone shares no per-call mutable state with
	// the receiver.
	Clone() (Connection, error)

	// This closes the connection's sockets.  The connection may still be
	// used afterwards; it reconnects on demand.
	DisconnectAll() error

	// This returns the servers the connection talks to.
	Servers() []ServerAddress

	// This returns the connection's behaviors.
	Behaviors() *Behaviors
}
