package game

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"cropCircle/internal/model"
	"cropCircle/internal/store"
)

const eventsLock = "events"

const maxDurationSeconds = int64(math.MaxInt64 / int64(time.Second))

// EventID derives the id of the seq-th event created by creator at start:
// keccak256(creator ‖ seq ‖ unix start) as 0x-prefixed hex.
func EventID(creator string, seq uint64, start time.Time) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], seq)
	binary.BigEndian.PutUint64(buf[8:], uint64(start.Unix()))
	return crypto.Keccak256Hash([]byte(creator), buf[:]).Hex()
}

// CreateEvent lets the owner open an event running for durationSeconds from now.
func (e *Engine) CreateEvent(ctx context.Context, caller string, durationSeconds int64, uri string) (model.Event, error) {
	caller = NormalizeID(caller)
	if !e.isOwner(caller) {
		return model.Event{}, fmt.Errorf("create event: %w", ErrUnauthorized)
	}
	if durationSeconds <= 0 || durationSeconds > maxDurationSeconds {
		return model.Event{}, fmt.Errorf("create event: %w", ErrInvalidDuration)
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return model.Event{}, fmt.Errorf("create event: %w", ErrInvalidURI)
	}

	var created model.Event
	err := e.mutate(ctx, eventsLock, "", func(tx store.Tx, emit func(model.Notification)) error {
		existing, err := tx.Events(ctx)
		if err != nil {
			return err
		}
		start := e.now().UTC()
		duration := time.Duration(durationSeconds) * time.Second
		created = model.Event{
			ID:        EventID(caller, uint64(len(existing))+1, start),
			Creator:   caller,
			StartTime: start,
			Duration:  duration,
			EndTime:   start.Add(duration),
			URI:       uri,
			Active:    true,
		}
		if _, ok, err := tx.Event(ctx, created.ID); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("event id collision %s", created.ID)
		}
		if err := tx.PutEvent(ctx, created); err != nil {
			return err
		}
		emit(model.Notification{
			Kind:    model.KindEventCreated,
			EventID: created.ID,
			Actor:   caller,
			Content: uri,
		})
		return nil
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	e.logger.Info("event created",
		zap.String("event_id", created.ID),
		zap.Time("end_time", created.EndTime),
	)
	return created, nil
}

// Event returns one event or ErrNotFound.
func (e *Engine) Event(ctx context.Context, id string) (model.Event, error) {
	id = NormalizeID(id)
	var event model.Event
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		event, err = loadEvent(ctx, r, id)
		return err
	})
	return event, err
}

// Events lists every event, newest first.
func (e *Engine) Events(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		events, err = r.Events(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	// Stored order is creation order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.After(events[j].StartTime)
	})
	return events, nil
}
