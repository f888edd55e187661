// Package views holds the screen controllers for the kitchen display, the
// floor plan and the POS till. Each keeps a normalized local copy of server
// records and only applies changes the server has confirmed.
package views

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Store is a map of records by id. Records older than the stored version are
// dropped so a slow response never overwrites a newer confirmed state.
type Store[T any] struct {
	id      func(T) uint
	version func(T) int

	mu    sync.RWMutex
	items map[uint]T
	gen   uint64
	// generation of the last local Patch or Delete per id
	touched map[uint]uint64
}

func NewStore[T any](id func(T) uint, version func(T) int) *Store[T] {
	return &Store[T]{id: id, version: version, items: make(map[uint]T), touched: make(map[uint]uint64)}
}

// Mark stamps the start of a load. Pass the stamp to Replace.
func (s *Store[T]) Mark() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Replace swaps the collection for a load started at since. Held records with
// a newer version survive, and so do ids patched or deleted after since: the
// load's snapshot predates those changes.
func (s *Store[T]) Replace(all []T, since uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make(map[uint]T, len(all))
	for _, v := range all {
		id := s.id(v)
		cur, held := s.items[id]
		if s.touched[id] > since && !held {
			continue
		}
		if held && s.version(cur) > s.version(v) {
			v = cur
		}
		items[id] = v
	}
	for id, cur := range s.items {
		if _, ok := items[id]; !ok && s.touched[id] > since {
			items[id] = cur
		}
	}
	for id, at := range s.touched {
		if at <= since {
			delete(s.touched, id)
		}
	}
	s.items = items
}

// Patch stores v unless a newer version is already held. It reports whether v
// was applied.
func (s *Store[T]) Patch(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id(v)
	if cur, ok := s.items[id]; ok && s.version(cur) > s.version(v) {
		return false
	}
	s.items[id] = v
	s.touch(id)
	return true
}

func (s *Store[T]) Delete(id uint) {
	s.mu.Lock()
	delete(s.items, id)
	s.touch(id)
	s.mu.Unlock()
}

func (s *Store[T]) touch(id uint) {
	s.gen++
	s.touched[id] = s.gen
}

func (s *Store[T]) Get(id uint) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[id]
	return v, ok
}

// All returns every record ordered by id.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	out := make([]T, 0, len(s.items))
	for _, v := range s.items {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return s.id(out[i]) < s.id(out[j]) })
	return out
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var ErrSuperseded = errors.New("load superseded by a newer one")

// Loader runs one load at a time. Starting a load cancels the one in flight,
// and a superseded load never applies its result.
type Loader struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Run calls load with a context that is cancelled when a newer Run starts.
// The returned apply func runs only if this load is still the latest.
func (l *Loader) Run(ctx context.Context, load func(ctx context.Context) (apply func(), err error)) error {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	l.seq++
	seq := l.seq
	l.cancel = cancel
	l.mu.Unlock()

	apply, err := load(lctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	defer cancel()
	if seq != l.seq {
		return ErrSuperseded
	}
	l.cancel = nil
	if err != nil {
		return err
	}
	if apply != nil {
		apply()
	}
	return nil
}
