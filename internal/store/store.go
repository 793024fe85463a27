package store

import (
	"context"
	"fmt"

	"cropCircle/internal/model"
)

// Reader exposes read access to game state.
type Reader interface {
	Event(ctx context.Context, id string) (model.Event, bool, error)
	Events(ctx context.Context) ([]model.Event, error)
	// Memes returns every meme of an event ordered by id.
	Memes(ctx context.Context, eventID string) ([]model.Meme, error)
	Balance(ctx context.Context, user, eventID string) (int64, bool, error)
	Vote(ctx context.Context, eventID string, memeID uint64, voter string) (model.Direction, bool, error)
	Votes(ctx context.Context, eventID string, memeID uint64) ([]model.Vote, error)
}

// Tx is a read-write view whose writes become visible only when the
// enclosing Update returns nil.
type Tx interface {
	Reader
	// LockEvent serializes writers of the same event at the backend level.
	LockEvent(ctx context.Context, id string) error
	PutEvent(ctx context.Context, event model.Event) error
	PutMeme(ctx context.Context, meme model.Meme) error
	PutBalance(ctx context.Context, user, eventID string, amount int64) error
	PutVote(ctx context.Context, vote model.Vote) error
}

// Store is a transactional backend for game state.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// FindMeme returns a single meme of an event.
func FindMeme(ctx context.Context, r Reader, eventID string, memeID uint64) (model.Meme, bool, error) {
	memes, err := r.Memes(ctx, eventID)
	if err != nil {
		return model.Meme{}, false, err
	}
	for _, m := range memes {
		if m.ID == memeID {
			return m, true, nil
		}
	}
	return model.Meme{}, false, nil
}

// Kind names a configured backend.
type Kind string

const (
	KindMemory   Kind = "memory"
	KindFile     Kind = "file"
	KindPostgres Kind = "postgres"
	KindRedis    Kind = "redis"
)

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindMemory, KindFile, KindPostgres, KindRedis:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown store backend: %q", s)
	}
}
