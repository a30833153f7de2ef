package memcache

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// The data shared by a mock client and all of its clones, standing in for
// the memcache server.
type mockStore struct {
	mutex   sync.Mutex
	data    map[string]*Item
	version uint64

	nextId *int64 // atomic counter
}

// An in-memory Connection.  Clones share the backing data, so a value set
// through one clone is visible through the others, as with a real server.
// Item expiration is not simulated.
type MockClient struct {
	id        int64
	store     *mockStore
	servers   []ServerAddress
	behaviors *Behaviors

	numDisconnects *int32 // atomic counter

	mutex    sync.Mutex
	cloneErr error // guarded by mutex
}

var _ Connection = (*MockClient)(nil)

func NewMockClient() *MockClient {
	return NewMockClientWithConfig(
		[]ServerAddress{{Type: ServerTypeTCP, Host: "mock", Port: DefaultPort}},
		nil)
}

func NewMockClientWithConfig(
	servers []ServerAddress,
	behaviors *Behaviors) *MockClient {

	if behaviors == nil {
		behaviors = &Behaviors{}
	}
	store := &mockStore{
		data:   make(map[string]*Item),
		nextId: new(int64),
	}
	return newMockClient(store, servers, behaviors)
}

func newMockClient(
	store *mockStore,
	servers []ServerAddress,
	behaviors *Behaviors) *MockClient {

	return &MockClient{
		id:             atomic.AddInt64(store.nextId, 1),
		store:          store,
		servers:        servers,
		behaviors:      behaviors,
		numDisconnects: new(int32),
	}
}

// Returns an id unique among the client and its clones.
func (c *MockClient) Id() int64 {
	return c.id
}

// Makes subsequent Clone calls fail with err (nil restores cloning).
func (c *MockClient) SetCloneError(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cloneErr = err
}

func (c *MockClient) Clone() (Connection, error) {
	c.mutex.Lock()
	err := c.cloneErr
	c.mutex.Unlock()

	if err != nil {
		return nil, err
	}

	servers := make([]ServerAddress, len(c.servers))
	copy(servers, c.servers)
	return newMockClient(c.store, servers, c.behaviors), nil
}

func (c *MockClient) DisconnectAll() error {
	atomic.AddInt32(c.numDisconnects, 1)
	return nil
}

// Returns how many times DisconnectAll was called on this client.
func (c *MockClient) NumDisconnects() int {
	return int(atomic.LoadInt32(c.numDisconnects))
}

func (c *MockClient) Servers() []ServerAddress {
	return c.servers
}

func (c *MockClient) Behaviors() *Behaviors {
	return c.behaviors
}

func (s *mockStore) getHelper(key string) GetResponse {
	if v, ok := s.data[key]; ok {
		return NewGetResponse(
			key,
			StatusNoError,
			v.Flags,
			append([]byte(nil), v.Value...),
			v.DataVersionId)
	}
	return NewGetResponse(key, StatusKeyNotFound, 0, nil, 0)
}

// Must be called with the store's mutex held.
func (s *mockStore) store(item *Item, value []byte) MutateResponse {
	s.version++
	s.data[item.Key] = &Item{
		Key:           item.Key,
		Value:         append([]byte(nil), value...),
		Flags:         item.Flags,
		Expiration:    item.Expiration,
		DataVersionId: s.version,
	}
	return NewMutateResponse(item.Key, StatusNoError, s.version)
}

func (s *mockStore) setHelper(item *Item) MutateResponse {
	existing, ok := s.data[item.Key]

	if item.DataVersionId == 0 ||
		(ok && item.DataVersionId == existing.DataVersionId) {

		return s.store(item, item.Value)
	} else if !ok {
		return NewMutateResponse(item.Key, StatusKeyNotFound, 0)
	}
	// CAS mismatch
	return NewMutateResponse(item.Key, StatusKeyExists, 0)
}

// This retrieves a single entry from memcache.
func (c *MockClient) Get(key string) GetResponse {
	c.store.mutex.Lock()
	defer c.store.mutex.Unlock()

	return c.store.getHelper(key)
}

// Batch version of the Get method.
func (c *MockClient) GetMulti(keys []string) map[string]GetResponse {
	c.store.mutex.Lock()
	defer c.store.mutex.Unlock()

	res := make(map[string]GetResponse, len(keys))
	for _, key := range keys {
		res[key] = c.store.getHelper(key)
	}
	return res
}

// This sets a single entry into memcache.  If the item's data version id
// (aka CAS) is nonzero, the set operation can only succeed if the item
// exists in memcache and has a same data version id.
func (c *MockClient) Set(item *Item) MutateResponse {
	c.store.mutex.Lock()
	defer c.store.mutex.Unlock()

	return c.store.setHelper(item)
}

// Batch version of the Set method.
func (c *MockClient) SetMulti(items []*Item) []MutateResponse {
	c.store.mutex.Lock()
	defer c.store.mutex.Unlock()

	res := make([]MutateResponse, len(items))
	for i, item := range items {
		res[i] = c.store.setHelper(item)
	}
	return res
}

// This adds a single entry into memcache.  Note: Add will fail if the
// item already exist in memcache.
func (c *MockClient) Add(item *Item) MutateResponse {
	c.store.mutex.Lock()
	defer c.store.mutex.Unlock()

	if _, ok := c.store.data[item.Key]; ok {
		return NewMutateResponse(item.Key, StatusItemNotStored, 0)
	}
	return c.store.store(item, item.Value)
}

// This replaces a single entry in memcache.  Note: Replace will fail if
// the does not exist in memcache.
func (c *MockClient) Replace(item *Item) MutateResponse {
	c.store.mutex.Lock()
	defer c.store.mutex.Unlock()

	if _, ok := c.store.data[item.Key]; !ok {
		return NewMutateResponse(item.Key, StatusItemNotStored, 0)
	}
	return c.store.store(item, item.Value)
}

// This deletes a single entry from memcache.
func (c *MockClient) Delete(key string) MutateResponse {
	c.store.mutex.Lock()
	defer c.store.mutex.Unlock()

	if _, ok := c.store.data[key]; !ok {
		return NewMutateResponse(key, StatusKeyNotFound, 0)
	}
	delete(c.store.data, key)
	return NewMutateResponse(key, StatusNoError, 0)
}

// Batch version of the Delete method.
func (c *MockClient) DeleteMulti(keys []string) []MutateResponse {
	res := make([]MutateResponse, len(keys))
	for i, key := range keys {
		res[i] = c.Delete(key)
	}
	return res
}

func (c *MockClient) concat(
	key string,
	value []byte,
	prepend bool) MutateResponse {

	c.store.mutex.Lock()
	defer c.store.mutex.Unlock()

	existing, ok := c.store.data[key]
	if !ok {
		return NewMutateResponse(key, StatusItemNotStored, 0)
	}

	var newValue []byte
	if prepend {
		newValue = append(append([]byte(nil), value...), existing.Value...)
	} else {
		newValue = append(append([]byte(nil), existing.Value...), value...)
	}
	return c.store.store(existing, newValue)
}

// This appends the value bytes to the end of an existing entry.
func (c *MockClient) Append(key string, value []byte) MutateResponse {
	return c.concat(key, value, false)
}

// This prepends the value bytes to the start of an existing entry.
func (c *MockClient) Prepend(key string, value []byte) MutateResponse {
	return c.concat(key, value, true)
}

func (c *MockClient) count(
	key string,
	delta uint64,
	increment bool) CountResponse {

	c.store.mutex.Lock()
	defer c.store.mutex.Unlock()

	existing, ok := c.store.data[key]
	if !ok {
		return NewCountResponse(key, StatusKeyNotFound, 0)
	}

	current, err := strconv.ParseUint(string(existing.Value), 10, 64)
	if err != nil {
		return NewCountResponse(key, StatusIncrDecrOnNonNumericValue, 0)
	}

	if increment {
		current += delta
	} else if delta > current {
		current = 0
	} else {
		current -= delta
	}

	c.store.store(existing, []byte(strconv.FormatUint(current, 10)))
	return NewCountResponse(key, StatusNoError, current)
}

// This increments the key's counter by delta.
func (c *MockClient) Increment(key string, delta uint64) CountResponse {
	return c.count(key, delta, true)
}

// This decrements the key's counter by delta, flooring at zero.
func (c *MockClient) Decrement(key string, delta uint64) CountResponse {
	return c.count(key, delta, false)
}

// This drops all items.  The expiration delay is not simulated; items are
// dropped immediately.
func (c *MockClient) Flush(expiration uint32) Response {
	c.store.mutex.Lock()
	defer c.store.mutex.Unlock()

	c.store.data = make(map[string]*Item)
	return NewResponse(StatusNoError)
}
