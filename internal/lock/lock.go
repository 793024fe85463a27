// Package lock provides named mutual exclusion for per-event operations.
package lock

import (
	"context"
	"sync"
)

// Locker grants exclusive ownership of a name until release is called.
// Acquire must give up when ctx is done.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// Keyed serializes holders of the same name within one process.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]*slot)}
}

func (k *Keyed) Acquire(ctx context.Context, name string) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[name]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[name] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.drop(name, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.drop(name, s)
		})
	}, nil
}

func (k *Keyed) drop(name string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, name)
	}
}

// Chain acquires every locker in order and releases them in reverse.
type Chain []Locker

func (c Chain) Acquire(ctx context.Context, name string) (func(), error) {
	releases := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, l := range c {
		if l == nil {
			continue
		}
		release, err := l.Acquire(ctx, name)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
