package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyedSerializesSameName(t *testing.T) {
	k := NewKeyed()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := k.Acquire(ctx, "event")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxSeen)
	}
	if len(k.slots) != 0 {
		t.Fatalf("slots should be dropped after release, got %d", len(k.slots))
	}
}

func TestKeyedDistinctNamesDoNotBlock(t *testing.T) {
	k := NewKeyed()
	ctx := context.Background()
	releaseA, err := k.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	releaseB, err := k.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	releaseB()
}

func TestKeyedHonoursContext(t *testing.T) {
	k := NewKeyed()
	release, err := k.Acquire(context.Background(), "event")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := k.Acquire(ctx, "event"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	k := NewKeyed()
	release, err := k.Acquire(context.Background(), "event")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	again, err := k.Acquire(ctx, "event")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again()
}

type failing struct{}

func (f failing) Acquire(context.Context, string) (func(), error) {
	return nil, errors.New("unavailable")
}

type counting struct{ released *int }

func (c counting) Acquire(context.Context, string) (func(), error) {
	return func() { *c.released++ }, nil
}

func TestChainReleasesOnFailure(t *testing.T) {
	released := 0
	chain := Chain{counting{released: &released}, nil, failing{}}
	if _, err := chain.Acquire(context.Background(), "event"); err == nil {
		t.Fatalf("expected chain error")
	}
	if released != 1 {
		t.Fatalf("expected earlier lock to be released, got %d", released)
	}
}

func TestQuorum(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 2, 5: 3}
	for n, want := range cases {
		if got := quorum(n); got != want {
			t.Fatalf("quorum(%d)=%d, want %d", n, got, want)
		}
	}
}
