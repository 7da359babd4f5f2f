package converters

import (
	"fmt"
	"sync"
)

// Factory builds the converter entry for a key on first fetch.
type Factory func(Key) (*Resource, error)

// Store is a keyed cache of converter entries. Entries are created
// lazily, borrowed through scoped leases and returned on release. The
// store retains ownership of every entry it creates.
//
// Per-key pools have independent locks: fetches for different keys
// never block each other, while same-key creation is serialized so a
// released entry is always reused before a new one is made.
type Store struct {
	factory Factory
	pools   sync.Map // Key -> *keyPool
}

type keyPool struct {
	mu      sync.Mutex
	free    []*Resource
	created int
}

// NewStore creates a store backed by the given factory.
func NewStore(factory Factory) *Store {
	return &Store{factory: factory}
}

// Fetch borrows a converter entry for the key, creating one if none is
// free. The returned lease must be released on every exit path.
func (s *Store) Fetch(key Key) (*Lease, error) {
	kp := s.pool(key)

	kp.mu.Lock()
	defer kp.mu.Unlock()

	if n := len(kp.free); n > 0 {
		res := kp.free[n-1]
		kp.free = kp.free[:n-1]
		return newLease(s, res), nil
	}

	res, err := s.factory(key)
	if err != nil {
		return nil, fmt.Errorf("create converter for %v %dx%d: %w", key.Format, key.Width, key.Height, err)
	}
	kp.created++
	return newLease(s, res), nil
}

// Created returns how many entries have been created for the key.
func (s *Store) Created(key Key) int {
	kp := s.pool(key)
	kp.mu.Lock()
	defer kp.mu.Unlock()
	return kp.created
}

// Idle returns how many entries for the key are currently free.
func (s *Store) Idle(key Key) int {
	kp := s.pool(key)
	kp.mu.Lock()
	defer kp.mu.Unlock()
	return len(kp.free)
}

// Clear closes and drops every idle entry. Borrowed entries return to
// the pool on release and are dropped by the next Clear.
func (s *Store) Clear() {
	s.pools.Range(func(_, v any) bool {
		kp := v.(*keyPool)
		kp.mu.Lock()
		for _, res := range kp.free {
			res.Close()
		}
		kp.free = nil
		kp.mu.Unlock()
		return true
	})
}

func (s *Store) pool(key Key) *keyPool {
	if p, ok := s.pools.Load(key); ok {
		return p.(*keyPool)
	}
	p, _ := s.pools.LoadOrStore(key, &keyPool{})
	return p.(*keyPool)
}

func (s *Store) put(res *Resource) {
	kp := s.pool(res.Key)
	kp.mu.Lock()
	kp.free = append(kp.free, res)
	kp.mu.Unlock()
}
