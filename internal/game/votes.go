package game

import (
	"context"
	"fmt"

	"cropCircle/internal/ledger"
	"cropCircle/internal/model"
	"cropCircle/internal/store"
)

// Vote records or flips the caller's vote on a meme. Both cost one ticket.
func (e *Engine) Vote(ctx context.Context, caller, eventID string, memeID uint64, isUpvote bool) (model.Meme, error) {
	caller = NormalizeID(caller)
	eventID = NormalizeID(eventID)
	if caller == "" {
		return model.Meme{}, fmt.Errorf("vote: caller required: %w", ErrInvalidInput)
	}
	dir := model.DirectionOf(isUpvote)

	var updated model.Meme
	err := e.mutate(ctx, eventLock(eventID), eventID, func(tx store.Tx, emit func(model.Notification)) error {
		event, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !event.Active {
			return ErrAlreadyEnded
		}
		meme, err := loadMeme(ctx, tx, eventID, memeID)
		if err != nil {
			return err
		}
		if meme.Creator == caller {
			return ErrCannotVoteOwnMeme
		}

		prev, voted, err := tx.Vote(ctx, eventID, memeID, caller)
		if err != nil {
			return err
		}
		if voted && prev == dir {
			return ErrAlreadyVoted
		}

		balance, err := ledger.Debit(ctx, tx, caller, eventID, ledger.VoteCost)
		if err != nil {
			return err
		}

		if voted {
			switch prev {
			case model.Up:
				meme.Upvotes--
			case model.Down:
				meme.Downvotes--
			}
		}
		if dir.IsUp() {
			meme.Upvotes++
		} else {
			meme.Downvotes++
		}

		if err := tx.PutMeme(ctx, meme); err != nil {
			return err
		}
		if err := tx.PutVote(ctx, model.Vote{EventID: eventID, MemeID: memeID, Voter: caller, Direction: dir}); err != nil {
			return err
		}
		updated = meme

		up := isUpvote
		emit(model.Notification{
			Kind:     model.KindVoteCast,
			EventID:  eventID,
			MemeID:   memeID,
			Actor:    caller,
			IsUpvote: &up,
		})
		emit(balanceNotification(eventID, caller, balance))
		return nil
	})
	if err != nil {
		return model.Meme{}, fmt.Errorf("vote: %w", err)
	}
	return updated, nil
}

// VoteOf reports the voter's current direction on a meme, if any.
func (e *Engine) VoteOf(ctx context.Context, eventID string, memeID uint64, voter string) (model.Direction, bool, error) {
	eventID = NormalizeID(eventID)
	voter = NormalizeID(voter)
	var (
		dir   model.Direction
		voted bool
	)
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		dir, voted, err = r.Vote(ctx, eventID, memeID, voter)
		return err
	})
	return dir, voted, err
}
