package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cropCircle/internal/issuer"
	"cropCircle/internal/model"
	"cropCircle/internal/store"
)

// SelectWinner returns the meme with the most upvotes, lowest id on ties.
// Memes without upvotes never win.
func SelectWinner(memes []model.Meme) (model.Meme, bool) {
	var (
		best  model.Meme
		found bool
	)
	for _, m := range memes {
		if m.Upvotes == 0 {
			continue
		}
		if !found || m.Upvotes > best.Upvotes || (m.Upvotes == best.Upvotes && m.ID < best.ID) {
			best = m
			found = true
		}
	}
	return best, found
}

// EndEvent closes an event whose end time has passed, records the winner and
// requests its token. Issuance happens after the close is committed; a
// failed issuance is reported but leaves the event ended.
func (e *Engine) EndEvent(ctx context.Context, eventID string) (model.Event, error) {
	eventID = NormalizeID(eventID)

	var (
		ended   model.Event
		winner  model.Meme
		upvoter []string
	)
	err := e.mutate(ctx, eventLock(eventID), eventID, func(tx store.Tx, emit func(model.Notification)) error {
		event, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !event.Active {
			return ErrAlreadyEnded
		}
		if e.now().Before(event.EndTime) {
			return ErrEventStillOngoing
		}

		memes, err := tx.Memes(ctx, eventID)
		if err != nil {
			return err
		}
		best, ok := SelectWinner(memes)
		if !ok {
			return ErrNoValidWinner
		}

		votes, err := tx.Votes(ctx, eventID, best.ID)
		if err != nil {
			return err
		}
		upvoter = upvoter[:0]
		for _, v := range votes {
			if v.Direction.IsUp() {
				upvoter = append(upvoter, v.Voter)
			}
		}

		event.Active = false
		event.WinningMemeID = best.ID
		if err := tx.PutEvent(ctx, event); err != nil {
			return err
		}
		ended = event
		winner = best

		emit(model.Notification{
			Kind:    model.KindEventEnded,
			EventID: eventID,
			MemeID:  best.ID,
			Actor:   best.Creator,
			Name:    best.Name,
		})
		return nil
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("end event: %w", err)
	}

	e.logger.Info("event ended",
		zap.String("event_id", eventID),
		zap.Uint64("winning_meme_id", winner.ID),
		zap.Int("upvoters", len(upvoter)),
	)

	if e.issuer == nil {
		return ended, nil
	}
	return e.issueToken(ctx, ended, winner, upvoter), nil
}

func (e *Engine) issueToken(ctx context.Context, event model.Event, winner model.Meme, voters []string) model.Event {
	req := issuer.Request{
		EventID:             event.ID,
		Name:                winner.Name,
		Symbol:              issuer.Symbol(winner.Name),
		Creator:             winner.Creator,
		CreatorSharePercent: e.creatorShare,
		TotalSupply:         e.tokenSupply,
		Voters:              voters,
	}

	ref, err := e.issuer.Issue(ctx, req)
	if err != nil {
		e.logger.Error("token issue failed", zap.String("event_id", event.ID), zap.Error(err))
		e.publish(ctx, model.Notification{
			Kind:    model.KindTokenIssueFailed,
			EventID: event.ID,
			MemeID:  winner.ID,
			Error:   err.Error(),
		})
		return event
	}

	var recorded model.Event
	err = e.mutate(ctx, eventLock(event.ID), event.ID, func(tx store.Tx, emit func(model.Notification)) error {
		current, err := loadEvent(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		if current.TokenRef != "" {
			recorded = current
			return nil
		}
		current.TokenRef = ref
		if err := tx.PutEvent(ctx, current); err != nil {
			return err
		}
		recorded = current
		emit(model.Notification{
			Kind:     model.KindTokenIssued,
			EventID:  event.ID,
			MemeID:   winner.ID,
			Actor:    winner.Creator,
			Name:     winner.Name,
			TokenRef: ref,
		})
		return nil
	})
	if err != nil {
		e.logger.Error("record token ref failed",
			zap.String("event_id", event.ID),
			zap.String("token_ref", ref),
			zap.Error(err),
		)
		return event
	}
	return recorded
}
