package game

import (
	"context"
	"fmt"
	"strings"

	"cropCircle/internal/ledger"
	"cropCircle/internal/model"
	"cropCircle/internal/store"
)

func (in MemeInput) normalize() (MemeInput, error) {
	out := MemeInput{
		Name:        strings.TrimSpace(in.Name),
		ContentRef:  strings.TrimSpace(in.ContentRef),
		Description: strings.TrimSpace(in.Description),
	}
	if out.Name == "" || out.ContentRef == "" || out.Description == "" {
		return MemeInput{}, ErrInvalidInput
	}
	return out, nil
}

// SubmitMeme charges the caller the submission cost and adds a meme to an
// active event.
func (e *Engine) SubmitMeme(ctx context.Context, caller, eventID string, in MemeInput) (model.Meme, error) {
	caller = NormalizeID(caller)
	eventID = NormalizeID(eventID)
	if caller == "" {
		return model.Meme{}, fmt.Errorf("submit meme: caller required: %w", ErrInvalidInput)
	}
	input, err := in.normalize()
	if err != nil {
		return model.Meme{}, fmt.Errorf("submit meme: %w", err)
	}

	var created model.Meme
	err = e.mutate(ctx, eventLock(eventID), eventID, func(tx store.Tx, emit func(model.Notification)) error {
		event, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !event.Active {
			return ErrAlreadyEnded
		}

		balance, err := ledger.Debit(ctx, tx, caller, eventID, ledger.SubmissionCost)
		if err != nil {
			return err
		}

		memes, err := tx.Memes(ctx, eventID)
		if err != nil {
			return err
		}
		var next uint64 = 1
		for _, m := range memes {
			if m.ID >= next {
				next = m.ID + 1
			}
		}

		created = model.Meme{
			ID:          next,
			EventID:     eventID,
			Name:        input.Name,
			ContentRef:  input.ContentRef,
			Description: input.Description,
			Creator:     caller,
			CreatedAt:   e.now().UTC(),
			Exists:      true,
		}
		if err := tx.PutMeme(ctx, created); err != nil {
			return err
		}

		emit(model.Notification{
			Kind:    model.KindMemeSubmitted,
			EventID: eventID,
			MemeID:  created.ID,
			Actor:   caller,
			Name:    created.Name,
			Content: created.ContentRef,
		})
		emit(balanceNotification(eventID, caller, balance))
		return nil
	})
	if err != nil {
		return model.Meme{}, fmt.Errorf("submit meme: %w", err)
	}
	return created, nil
}

// Meme returns one meme or ErrNotFound.
func (e *Engine) Meme(ctx context.Context, eventID string, memeID uint64) (model.Meme, error) {
	eventID = NormalizeID(eventID)
	var meme model.Meme
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		meme, err = loadMeme(ctx, r, eventID, memeID)
		return err
	})
	return meme, err
}

// Memes returns every meme of an event, most upvoted or newest first.
func (e *Engine) Memes(ctx context.Context, eventID string, byUpvotes bool) ([]model.Meme, error) {
	eventID = NormalizeID(eventID)
	var memes []model.Meme
	err := e.store.View(ctx, func(r store.Reader) error {
		if _, err := loadEvent(ctx, r, eventID); err != nil {
			return err
		}
		var err error
		memes, err = r.Memes(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	model.SortMemes(memes, byUpvotes)
	return memes, nil
}

// MemesSorted returns meme ids in the order Memes would list them.
func (e *Engine) MemesSorted(ctx context.Context, eventID string, byUpvotes bool) ([]uint64, error) {
	memes, err := e.Memes(ctx, eventID, byUpvotes)
	if err != nil {
		return nil, err
	}
	return model.MemeIDs(memes), nil
}
