package scope

import (
	"sort"
	"sync"
)

// Store is the host provided backing map of a SharedMap.
type Store interface {
	Get(key string) (any, bool)
	Put(key string, value any)
	Remove(key string)
	Keys() []string
}

// MapStore adapts a plain map to Store.
type MapStore map[string]any

func (m MapStore) Get(key string) (any, bool) { v, ok := m[key]; return v, ok }
func (m MapStore) Put(key string, value any)  { m[key] = value }
func (m MapStore) Remove(key string)          { delete(m, key) }

func (m MapStore) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SharedMap guards a Store that may be reached by several requests at once.
// Every operation holds one mutex for the whole map; compound operations use WithLock.
type SharedMap struct {
	mu    sync.Mutex
	store Store
}

// NewSharedMap decorates store. A nil store gets a fresh MapStore.
func NewSharedMap(store Store) *SharedMap {
	if store == nil {
		store = MapStore{}
	}
	return &SharedMap{store: store}
}

func (s *SharedMap) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.store.Get(key)
	return v
}

func (s *SharedMap) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.store.Get(key)
	return ok
}

// ContainsValue reports whether any key maps to value (compared with ==).
func (s *SharedMap) ContainsValue(value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.store.Keys() {
		if v, _ := s.store.Get(k); v == value {
			return true
		}
	}
	return false
}

func (s *SharedMap) Put(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Put(key, value)
}

func (s *SharedMap) PutAll(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.store.Put(k, v)
	}
}

func (s *SharedMap) Remove(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.store.Get(key)
	s.store.Remove(key)
	return v
}

func (s *SharedMap) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.store.Keys())
}

func (s *SharedMap) IsEmpty() bool {
	return s.Len() == 0
}

func (s *SharedMap) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Keys()
}

// Values returns a snapshot of the values in key order.
func (s *SharedMap) Values() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.store.Keys()
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		v, _ := s.store.Get(k)
		out = append(out, v)
	}
	return out
}

// AsMap returns a snapshot copy of the entries.
func (s *SharedMap) AsMap() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any)
	for _, k := range s.store.Keys() {
		v, _ := s.store.Get(k)
		out[k] = v
	}
	return out
}

// WithLock runs fn with exclusive access to the backing store.
func (s *SharedMap) WithLock(fn func(Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

// ResolveVariable lets expressions address entries by name.
func (s *SharedMap) ResolveVariable(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(name)
}

// SetVariable lets expressions write entries by name.
func (s *SharedMap) SetVariable(name string, value any) error {
	s.Put(name, value)
	return nil
}
