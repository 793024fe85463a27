package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"cropCircle/internal/model"
)

type memeKey struct {
	eventID string
	memeID  uint64
}

// Staged buffers writes on top of a Reader. Reads observe buffered writes.
// Backends without native transactions commit the result of Writes.
type Staged struct {
	base     Reader
	lockFn   func(ctx context.Context, id string) error
	events   map[string]model.Event
	memes    map[memeKey]model.Meme
	balances map[string]int64
	votes    map[string]model.Vote
}

// NewStaged wraps base. lockFn may be nil when the caller already holds an
// exclusive lock for the duration of the transaction.
func NewStaged(base Reader, lockFn func(ctx context.Context, id string) error) *Staged {
	return &Staged{
		base:     base,
		lockFn:   lockFn,
		events:   make(map[string]model.Event),
		memes:    make(map[memeKey]model.Meme),
		balances: make(map[string]int64),
		votes:    make(map[string]model.Vote),
	}
}

func (s *Staged) LockEvent(ctx context.Context, id string) error {
	if s.lockFn == nil {
		return nil
	}
	return s.lockFn(ctx, id)
}

func (s *Staged) Event(ctx context.Context, id string) (model.Event, bool, error) {
	if event, ok := s.events[id]; ok {
		return event, true, nil
	}
	return s.base.Event(ctx, id)
}

func (s *Staged) Events(ctx context.Context) ([]model.Event, error) {
	base, err := s.base.Events(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(base))
	out := make([]model.Event, 0, len(base)+len(s.events))
	for _, event := range base {
		if staged, ok := s.events[event.ID]; ok {
			event = staged
		}
		seen[event.ID] = struct{}{}
		out = append(out, event)
	}
	for _, id := range s.newEventIDs(seen) {
		out = append(out, s.events[id])
	}
	return out, nil
}

func (s *Staged) newEventIDs(seen map[string]struct{}) []string {
	ids := make([]string, 0)
	for id := range s.events {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.events[ids[i]], s.events[ids[j]]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return ids[i] < ids[j]
	})
	return ids
}

func (s *Staged) Memes(ctx context.Context, eventID string) ([]model.Meme, error) {
	base, err := s.base.Memes(ctx, eventID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.Meme, len(base))
	for _, m := range base {
		byID[m.ID] = m
	}
	for key, m := range s.memes {
		if key.eventID == eventID {
			byID[key.memeID] = m
		}
	}
	out := make([]model.Meme, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sortByID(out)
	return out, nil
}

func (s *Staged) Balance(ctx context.Context, user, eventID string) (int64, bool, error) {
	if amount, ok := s.balances[BalanceKey(user, eventID)]; ok {
		return amount, true, nil
	}
	return s.base.Balance(ctx, user, eventID)
}

func (s *Staged) Vote(ctx context.Context, eventID string, memeID uint64, voter string) (model.Direction, bool, error) {
	if vote, ok := s.votes[VoteKey(eventID, memeID, voter)]; ok {
		return vote.Direction, true, nil
	}
	return s.base.Vote(ctx, eventID, memeID, voter)
}

func (s *Staged) Votes(ctx context.Context, eventID string, memeID uint64) ([]model.Vote, error) {
	base, err := s.base.Votes(ctx, eventID, memeID)
	if err != nil {
		return nil, err
	}
	byVoter := make(map[string]model.Vote, len(base))
	for _, v := range base {
		byVoter[v.Voter] = v
	}
	for _, v := range s.votes {
		if v.EventID == eventID && v.MemeID == memeID {
			byVoter[v.Voter] = v
		}
	}
	out := make([]model.Vote, 0, len(byVoter))
	for _, v := range byVoter {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Voter < out[j].Voter })
	return out, nil
}

func (s *Staged) PutEvent(_ context.Context, event model.Event) error {
	if event.ID == "" {
		return fmt.Errorf("event id is required")
	}
	s.events[event.ID] = event
	return nil
}

func (s *Staged) PutMeme(_ context.Context, meme model.Meme) error {
	if meme.EventID == "" || meme.ID == 0 {
		return fmt.Errorf("meme event id and id are required")
	}
	s.memes[memeKey{eventID: meme.EventID, memeID: meme.ID}] = meme
	return nil
}

func (s *Staged) PutBalance(_ context.Context, user, eventID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("negative balance for %s", user)
	}
	s.balances[BalanceKey(user, eventID)] = amount
	return nil
}

func (s *Staged) PutVote(_ context.Context, vote model.Vote) error {
	if _, err := model.ParseDirection(string(vote.Direction)); err != nil {
		return err
	}
	s.votes[VoteKey(vote.EventID, vote.MemeID, vote.Voter)] = vote
	return nil
}

// Empty reports whether nothing was written.
func (s *Staged) Empty() bool {
	return len(s.events) == 0 && len(s.memes) == 0 && len(s.balances) == 0 && len(s.votes) == 0
}

// Writes renders the buffered changes in the shared key layout.
func (s *Staged) Writes(ctx context.Context) (map[string]string, error) {
	writes := make(map[string]string)

	if len(s.events) > 0 {
		base, err := s.base.Events(ctx)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(base))
		ids := make([]string, 0, len(base)+len(s.events))
		for _, event := range base {
			seen[event.ID] = struct{}{}
			ids = append(ids, event.ID)
		}
		fresh := s.newEventIDs(seen)
		if len(fresh) > 0 {
			ids = append(ids, fresh...)
			data, err := json.Marshal(ids)
			if err != nil {
				return nil, fmt.Errorf("marshal event index: %w", err)
			}
			writes[EventsKey] = string(data)
		}
		for id, event := range s.events {
			data, err := json.Marshal(event)
			if err != nil {
				return nil, fmt.Errorf("marshal event %s: %w", id, err)
			}
			writes[EventKey(id)] = string(data)
		}
	}

	touched := make(map[string]struct{})
	for key := range s.memes {
		touched[key.eventID] = struct{}{}
	}
	for eventID := range touched {
		memes, err := s.Memes(ctx, eventID)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(memes)
		if err != nil {
			return nil, fmt.Errorf("marshal memes %s: %w", eventID, err)
		}
		writes[MemesKey(eventID)] = string(data)
	}

	for key, amount := range s.balances {
		writes[key] = strconv.FormatInt(amount, 10)
	}
	for key, vote := range s.votes {
		writes[key] = string(vote.Direction)
	}

	return writes, nil
}
