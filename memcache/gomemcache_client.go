package memcache

import (
	"sort"
	"sync"
	"time"

	gomemcache "github.com/bradfitz/gomemcache/memcache"

	"github.com/lericson/pylibmc/errors"
)

// A Connection backed by github.com/bradfitz/gomemcache, which speaks the
// ascii protocol over TCP or UNIX sockets.
//
// The library keeps CAS ids private, so DataVersionId is never populated
// and Set with a non-zero DataVersionId is not supported.  Append and
// Prepend are emulated with get + compare-and-swap.
type GomemcacheClient struct {
	servers      []ServerAddress
	behaviors    *Behaviors
	serverList   *gomemcache.ServerList
	maxIdleConns int

	mutex  sync.Mutex
	client *gomemcache.Client // guarded by mutex
}

var _ Connection = (*GomemcacheClient)(nil)

// Parses the server specs and behaviors and returns a connection to the
// servers.  No network I/O is done until the first request.
func NewClient(
	serverSpecs []string,
	behaviors map[string]string) (*GomemcacheClient, error) {

	addrs, err := ParseServerSpecs(serverSpecs)
	if err != nil {
		return nil, err
	}
	b, err := NewBehaviors(behaviors)
	if err != nil {
		return nil, err
	}
	return NewGomemcacheClient(addrs, b, 0)
}

// maxIdleConns <= 0 uses the library default.
func NewGomemcacheClient(
	servers []ServerAddress,
	behaviors *Behaviors,
	maxIdleConns int) (*GomemcacheClient, error) {

	if len(servers) == 0 {
		return nil, NewInvalidConfigurationError("No servers given")
	}
	for _, addr := range servers {
		if addr.Type == ServerTypeUDP {
			return nil, NewInvalidConfigurationError(
				"UDP server %s is not supported",
				addr)
		}
	}
	if behaviors == nil {
		behaviors = &Behaviors{}
	}
	if v, _ := behaviors.Get(BehaviorBinaryProtocol); v != 0 {
		return nil, NewInvalidConfigurationError(
			"The binary protocol is not supported")
	}

	// Key placement is left to the library's server list.
	serverList := &gomemcache.ServerList{}
	err := serverList.SetServers(libraryAddresses(servers, behaviors)...)
	if err != nil {
		return nil, NewInvalidConfigurationError(
			"Cannot resolve servers: %s",
			err)
	}

	c := &GomemcacheClient{
		servers:      servers,
		behaviors:    behaviors,
		serverList:   serverList,
		maxIdleConns: maxIdleConns,
	}
	c.client = c.newUnderlyingClient()
	return c, nil
}

// Addresses in the form the library's server list expects.  With
// "sort_hosts" set, they are ordered by server spec.
func libraryAddresses(
	servers []ServerAddress,
	behaviors *Behaviors) []string {

	addrs := make([]ServerAddress, len(servers))
	copy(addrs, servers)
	if v, _ := behaviors.Get(BehaviorSortHosts); v != 0 {
		sort.SliceStable(addrs, func(i, j int) bool {
			return addrs[i].String() < addrs[j].String()
		})
	}

	res := make([]string, len(addrs))
	for i, addr := range addrs {
		res[i] = addr.Address()
	}
	return res
}

func (c *GomemcacheClient) newUnderlyingClient() *gomemcache.Client {
	client := gomemcache.NewFromSelector(c.serverList)
	client.Timeout = c.Timeout()
	if c.maxIdleConns > 0 {
		client.MaxIdleConns = c.maxIdleConns
	}
	return client
}

// Returns the socket I/O timeout derived from the poll_timeout (or, if
// unset, connect_timeout) behavior.  Zero means the library default.
func (c *GomemcacheClient) Timeout() time.Duration {
	if d := c.behaviors.Duration(BehaviorPollTimeout); d > 0 {
		return d
	}
	return c.behaviors.Duration(BehaviorConnectTimeout)
}

func (c *GomemcacheClient) underlying() *gomemcache.Client {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.client
}

func (c *GomemcacheClient) Clone() (Connection, error) {
	servers := make([]ServerAddress, len(c.servers))
	copy(servers, c.servers)

	clone := &GomemcacheClient{
		servers:      servers,
		behaviors:    c.behaviors,
		serverList:   c.serverList,
		maxIdleConns: c.maxIdleConns,
	}
	clone.client = clone.newUnderlyingClient()
	return clone, nil
}

// The library does not expose a way to close idle sockets, so the
// underlying client is swapped for a fresh one and the old one's idle
// sockets are left to the garbage collector.
func (c *GomemcacheClient) DisconnectAll() error {
	fresh := c.newUnderlyingClient()

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.client = fresh
	return nil
}

func (c *GomemcacheClient) Servers() []ServerAddress {
	return c.servers
}

func (c *GomemcacheClient) Behaviors() *Behaviors {
	return c.behaviors
}

// Maps library errors to a response status.  Errors without a status
// equivalent are returned as-is (wrapped).
func statusFromError(err error, op string) (ResponseStatus, error) {
	switch err {
	case nil:
		return StatusNoError, nil
	case gomemcache.ErrCacheMiss:
		return StatusKeyNotFound, nil
	case gomemcache.ErrCASConflict:
		return StatusKeyExists, nil
	case gomemcache.ErrNotStored:
		return StatusItemNotStored, nil
	case gomemcache.ErrMalformedKey:
		return StatusInvalidArguments, nil
	default:
		return StatusNoError, errors.Wrapf(err, "%s failed", op)
	}
}

func toLibItem(item *Item, value []byte) *gomemcache.Item {
	return &gomemcache.Item{
		Key:        item.Key,
		Value:      value,
		Flags:      item.Flags,
		Expiration: int32(item.Expiration),
	}
}

func (c *GomemcacheClient) Get(key string) GetResponse {
	item, err := c.underlying().Get(key)
	status, err := statusFromError(err, "Get")
	if err != nil {
		return NewGetErrorResponse(key, err)
	}
	if status != StatusNoError {
		return NewGetResponse(key, status, 0, nil, 0)
	}
	return NewGetResponse(key, StatusNoError, item.Flags, item.Value, 0)
}

func (c *GomemcacheClient) GetMulti(keys []string) map[string]GetResponse {
	res := make(map[string]GetResponse, len(keys))

	items, err := c.underlying().GetMulti(keys)
	if err != nil {
		err = errors.Wrap(err, "GetMulti failed")
		for _, key := range keys {
			res[key] = NewGetErrorResponse(key, err)
		}
		return res
	}

	for _, key := range keys {
		if item, ok := items[key]; ok {
			res[key] = NewGetResponse(
				key,
				StatusNoError,
				item.Flags,
				item.Value,
				0)
		} else {
			res[key] = NewGetResponse(key, StatusKeyNotFound, 0, nil, 0)
		}
	}
	return res
}

func toMutateResponse(key string, op string, err error) MutateResponse {
	status, err := statusFromError(err, op)
	if err != nil {
		return NewMutateErrorResponse(key, err)
	}
	return NewMutateResponse(key, status, 0)
}

func (c *GomemcacheClient) Set(item *Item) MutateResponse {
	if item.DataVersionId != 0 {
		return NewMutateResponse(item.Key, StatusNotSupported, 0)
	}
	err := c.underlying().Set(toLibItem(item, item.Value))
	return toMutateResponse(item.Key, "Set", err)
}

func (c *GomemcacheClient) SetMulti(items []*Item) []MutateResponse {
	res := make([]MutateResponse, len(items))
	for i, item := range items {
		res[i] = c.Set(item)
	}
	return res
}

func (c *GomemcacheClient) Add(item *Item) MutateResponse {
	err := c.underlying().Add(toLibItem(item, item.Value))
	return toMutateResponse(item.Key, "Add", err)
}

func (c *GomemcacheClient) Replace(item *Item) MutateResponse {
	err := c.underlying().Replace(toLibItem(item, item.Value))
	return toMutateResponse(item.Key, "Replace", err)
}

func (c *GomemcacheClient) Delete(key string) MutateResponse {
	err := c.underlying().Delete(key)
	return toMutateResponse(key, "Delete", err)
}

func (c *GomemcacheClient) DeleteMulti(keys []string) []MutateResponse {
	res := make([]MutateResponse, len(keys))
	for i, key := range keys {
		res[i] = c.Delete(key)
	}
	return res
}

func (c *GomemcacheClient) concat(
	key string,
	value []byte,
	prepend bool) MutateResponse {

	client := c.underlying()

	existing, err := client.Get(key)
	if err == gomemcache.ErrCacheMiss {
		return NewMutateResponse(key, StatusItemNotStored, 0)
	}
	if err != nil {
		return toMutateResponse(key, "Get", err)
	}

	if prepend {
		existing.Value = append(append([]byte(nil), value...), existing.Value...)
	} else {
		existing.Value = append(existing.Value, value...)
	}
	return toMutateResponse(key, "CompareAndSwap", client.CompareAndSwap(existing))
}

func (c *GomemcacheClient) Append(key string, value []byte) MutateResponse {
	return c.concat(key, value, false)
}

func (c *GomemcacheClient) Prepend(key string, value []byte) MutateResponse {
	return c.concat(key, value, true)
}

func toCountResponse(
	key string,
	op string,
	count uint64,
	err error) CountResponse {

	status, err := statusFromError(err, op)
	if err != nil {
		return NewCountErrorResponse(key, err)
	}
	return NewCountResponse(key, status, count)
}

func (c *GomemcacheClient) Increment(key string, delta uint64) CountResponse {
	count, err := c.underlying().Increment(key, delta)
	return toCountResponse(key, "Increment", count, err)
}

func (c *GomemcacheClient) Decrement(key string, delta uint64) CountResponse {
	count, err := c.underlying().Decrement(key, delta)
	return toCountResponse(key, "Decrement", count, err)
}

// Delayed flushes are not supported by the library; a non-zero expiration
// returns StatusNotSupported.
func (c *GomemcacheClient) Flush(expiration uint32) Response {
	if expiration != 0 {
		return NewResponse(StatusNotSupported)
	}
	if err := c.underlying().FlushAll(); err != nil {
		return NewErrorResponse(errors.Wrap(err, "Flush failed"))
	}
	return NewResponse(StatusNoError)
}
