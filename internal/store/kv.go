package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cropCircle/internal/model"
)

// Key layout shared by the key-value backends. Ids are concatenated the way
// the browser demo laid out its local storage.
const EventsKey = "events"

func EventKey(id string) string {
	return "event_" + id
}

func MemesKey(eventID string) string {
	return "memes_" + eventID
}

func VotePrefix(eventID string, memeID uint64) string {
	return fmt.Sprintf("votes_%s_%d_", eventID, memeID)
}

func VoteKey(eventID string, memeID uint64, voter string) string {
	return VotePrefix(eventID, memeID) + voter
}

func BalanceKey(user, eventID string) string {
	return "cropBalance_" + eventID + "_" + user
}

// KV is the minimal read surface of a string key-value backend.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// KVReader decodes game state from the shared key layout.
type KVReader struct {
	kv KV
}

func NewKVReader(kv KV) *KVReader {
	return &KVReader{kv: kv}
}

func (r *KVReader) Event(ctx context.Context, id string) (model.Event, bool, error) {
	raw, ok, err := r.kv.Get(ctx, EventKey(id))
	if err != nil || !ok {
		return model.Event{}, false, err
	}
	var event model.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return model.Event{}, false, fmt.Errorf("decode event %s: %w", id, err)
	}
	return event, true, nil
}

func (r *KVReader) eventIDs(ctx context.Context) ([]string, error) {
	raw, ok, err := r.kv.Get(ctx, EventsKey)
	if err != nil || !ok {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode event index: %w", err)
	}
	return ids, nil
}

func (r *KVReader) Events(ctx context.Context) ([]model.Event, error) {
	ids, err := r.eventIDs(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		event, ok, err := r.Event(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			events = append(events, event)
		}
	}
	return events, nil
}

func (r *KVReader) Memes(ctx context.Context, eventID string) ([]model.Meme, error) {
	raw, ok, err := r.kv.Get(ctx, MemesKey(eventID))
	if err != nil || !ok {
		return nil, err
	}
	var memes []model.Meme
	if err := json.Unmarshal([]byte(raw), &memes); err != nil {
		return nil, fmt.Errorf("decode memes %s: %w", eventID, err)
	}
	sortByID(memes)
	return memes, nil
}

func (r *KVReader) Balance(ctx context.Context, user, eventID string) (int64, bool, error) {
	raw, ok, err := r.kv.Get(ctx, BalanceKey(user, eventID))
	if err != nil || !ok {
		return 0, false, err
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("decode balance: %w", err)
	}
	return amount, true, nil
}

func (r *KVReader) Vote(ctx context.Context, eventID string, memeID uint64, voter string) (model.Direction, bool, error) {
	raw, ok, err := r.kv.Get(ctx, VoteKey(eventID, memeID, voter))
	if err != nil || !ok {
		return "", false, err
	}
	dir, err := model.ParseDirection(raw)
	if err != nil {
		return "", false, err
	}
	return dir, true, nil
}

func (r *KVReader) Votes(ctx context.Context, eventID string, memeID uint64) ([]model.Vote, error) {
	prefix := VotePrefix(eventID, memeID)
	keys, err := r.kv.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	votes := make([]model.Vote, 0, len(keys))
	for _, key := range keys {
		voter := strings.TrimPrefix(key, prefix)
		dir, ok, err := r.Vote(ctx, eventID, memeID, voter)
		if err != nil {
			return nil, err
		}
		if ok {
			votes = append(votes, model.Vote{EventID: eventID, MemeID: memeID, Voter: voter, Direction: dir})
		}
	}
	return votes, nil
}

func sortByID(memes []model.Meme) {
	sort.Slice(memes, func(i, j int) bool { return memes[i].ID < memes[j].ID })
}
