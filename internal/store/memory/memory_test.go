package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cropCircle/internal/model"
	"cropCircle/internal/store"
)

func TestUpdateCommitsAndReadsBack(t *testing.T) {
	ctx := context.Background()
	s := New()

	event := model.Event{ID: "0xabc", Creator: "0xowner", StartTime: time.Unix(100, 0), Active: true}
	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutEvent(ctx, event); err != nil {
			return err
		}
		if err := tx.PutMeme(ctx, model.Meme{ID: 1, EventID: "0xabc", Name: "m1", Exists: true}); err != nil {
			return err
		}
		if err := tx.PutBalance(ctx, "0xuser", "0xabc", 40); err != nil {
			return err
		}
		return tx.PutVote(ctx, model.Vote{EventID: "0xabc", MemeID: 1, Voter: "0xvoter", Direction: model.Up})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = s.View(ctx, func(r store.Reader) error {
		got, ok, err := r.Event(ctx, "0xabc")
		if err != nil || !ok {
			t.Fatalf("event lookup: %v %v", ok, err)
		}
		if got.Creator != "0xowner" || !got.Active {
			t.Fatalf("event mismatch: %+v", got)
		}
		events, err := r.Events(ctx)
		if err != nil || len(events) != 1 {
			t.Fatalf("events: %v %v", events, err)
		}
		meme, ok, err := store.FindMeme(ctx, r, "0xabc", 1)
		if err != nil || !ok || meme.Name != "m1" {
			t.Fatalf("meme lookup: %+v %v %v", meme, ok, err)
		}
		balance, ok, err := r.Balance(ctx, "0xuser", "0xabc")
		if err != nil || !ok || balance != 40 {
			t.Fatalf("balance: %d %v %v", balance, ok, err)
		}
		votes, err := r.Votes(ctx, "0xabc", 1)
		if err != nil || len(votes) != 1 || votes[0].Voter != "0xvoter" {
			t.Fatalf("votes: %+v %v", votes, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	snap := s.Snapshot()
	if snap[store.BalanceKey("0xuser", "0xabc")] != "40" {
		t.Fatalf("balance key layout mismatch: %v", snap)
	}
	if snap[store.VoteKey("0xabc", 1, "0xvoter")] != "up" {
		t.Fatalf("vote key layout mismatch: %v", snap)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutBalance(ctx, "0xuser", "0xabc", 10); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Fatalf("expected no writes after rollback")
	}
}

func TestCommitHookCanAbort(t *testing.T) {
	ctx := context.Background()
	hookErr := errors.New("disk full")
	s := NewWithState(nil, func(ctx context.Context, next map[string]string) error {
		return hookErr
	})

	err := s.Update(ctx, func(tx store.Tx) error {
		return tx.PutBalance(ctx, "0xuser", "0xabc", 10)
	})
	if !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Fatalf("aborted commit must not be visible")
	}
}

func TestStagedReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutMeme(ctx, model.Meme{ID: 2, EventID: "0xe"}); err != nil {
			return err
		}
		if err := tx.PutMeme(ctx, model.Meme{ID: 1, EventID: "0xe"}); err != nil {
			return err
		}
		memes, err := tx.Memes(ctx, "0xe")
		if err != nil {
			return err
		}
		if len(memes) != 2 || memes[0].ID != 1 || memes[1].ID != 2 {
			t.Fatalf("staged memes not ordered by id: %+v", memes)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}
