package game

import (
	"context"
	"fmt"

	"cropCircle/internal/ledger"
	"cropCircle/internal/model"
	"cropCircle/internal/store"
)

// Balance returns a user's tickets for an event, the initial grant when the
// user has not spent any.
func (e *Engine) Balance(ctx context.Context, user, eventID string) (int64, error) {
	user = NormalizeID(user)
	eventID = NormalizeID(eventID)
	var balance int64
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		balance, err = ledger.Balance(ctx, r, user, eventID)
		return err
	})
	return balance, err
}

// GrantTickets tops up a user's balance. Only the owner may grant.
func (e *Engine) GrantTickets(ctx context.Context, caller, eventID, user string, amount int64) (int64, error) {
	caller = NormalizeID(caller)
	eventID = NormalizeID(eventID)
	user = NormalizeID(user)
	if !e.isOwner(caller) {
		return 0, fmt.Errorf("grant tickets: %w", ErrUnauthorized)
	}
	if user == "" || amount <= 0 {
		return 0, fmt.Errorf("grant tickets: %w", ErrInvalidInput)
	}

	var balance int64
	err := e.mutate(ctx, eventLock(eventID), eventID, func(tx store.Tx, emit func(model.Notification)) error {
		event, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !event.Active {
			return ErrAlreadyEnded
		}
		balance, err = ledger.Credit(ctx, tx, user, eventID, amount)
		if err != nil {
			return err
		}
		emit(balanceNotification(eventID, user, balance))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("grant tickets: %w", err)
	}
	return balance, nil
}
