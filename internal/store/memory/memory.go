package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cropCircle/internal/store"
)

// CommitHook runs with the store locked before staged writes become
// visible. next holds the full state after the commit; returning an error
// aborts it.
type CommitHook func(ctx context.Context, next map[string]string) error

// Store keeps game state in a process-local key-value map.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
	hook CommitHook
}

func New() *Store {
	return &Store{data: make(map[string]string)}
}

// NewWithState seeds the store with previously persisted entries and a hook
// that observes every commit.
func NewWithState(data map[string]string, hook CommitHook) *Store {
	if data == nil {
		data = make(map[string]string)
	}
	return &Store{data: data, hook: hook}
}

type mapKV map[string]string

func (m mapKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapKV) Keys(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) View(ctx context.Context, fn func(store.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(store.NewKVReader(mapKV(s.data)))
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := store.NewStaged(store.NewKVReader(mapKV(s.data)), nil)
	if err := fn(staged); err != nil {
		return err
	}
	if staged.Empty() {
		return nil
	}

	writes, err := staged.Writes(ctx)
	if err != nil {
		return err
	}

	if s.hook != nil {
		next := make(map[string]string, len(s.data)+len(writes))
		for k, v := range s.data {
			next[k] = v
		}
		for k, v := range writes {
			next[k] = v
		}
		if err := s.hook(ctx, next); err != nil {
			return err
		}
		s.data = next
		return nil
	}

	for k, v := range writes {
		s.data[k] = v
	}
	return nil
}

// Snapshot returns a copy of every stored entry.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

func (s *Store) Close() error {
	return nil
}
