package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gitchat/internal/logging"
	"gitchat/internal/types"
)

// ErrNotStorable is returned when storing a type the store does not keep.
var ErrNotStorable = errors.New("type is not storable")

// Store holds the last stored object per type for one session.
type Store struct {
	mu       sync.RWMutex
	objects  map[types.Tag]types.Object
	storable map[types.Tag]bool
}

// NewStore creates a store that keeps the given types.
func NewStore(storable ...types.Tag) *Store {
	s := &Store{
		objects:  make(map[types.Tag]types.Object),
		storable: make(map[types.Tag]bool, len(storable)),
	}
	for _, t := range storable {
		s.storable[t] = true
	}
	return s
}

// Storable reports whether objects of type t can be stored.
func (s *Store) Storable(t types.Tag) bool {
	return s.storable[t]
}

// Set replaces the stored object of obj's type.
func (s *Store) Set(obj types.Object) error {
	if !s.storable[obj.Type] {
		return fmt.Errorf("%w: %s", ErrNotStorable, obj.Type)
	}
	s.mu.Lock()
	s.objects[obj.Type] = obj
	s.mu.Unlock()
	logging.StoreDebug("stored %s", obj)
	return nil
}

// Get returns the stored object of type t.
func (s *Store) Get(t types.Tag) (types.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[t]
	return o, ok
}

// Lookup implements resolve.StoredLookup.
func (s *Store) Lookup(t types.Tag) (types.Object, bool) {
	return s.Get(t)
}

// Has reports whether an object of type t is stored.
func (s *Store) Has(t types.Tag) bool {
	_, ok := s.Get(t)
	return ok
}

// Clear forgets every stored object.
func (s *Store) Clear() {
	s.mu.Lock()
	s.objects = make(map[types.Tag]types.Object)
	s.mu.Unlock()
}

// Snapshot returns the stored objects ordered by type name.
func (s *Store) Snapshot() []types.Object {
	s.mu.RLock()
	out := make([]types.Object, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, o)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Type.String() < out[j].Type.String() })
	return out
}
