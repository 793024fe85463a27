// Package ledger tracks per-event ticket (CROP) balances.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"cropCircle/internal/store"
)

// Ticket amounts charged and granted by the game.
const (
	InitialGrant   int64 = 100
	SubmissionCost int64 = 60
	VoteCost       int64 = 1
)

var (
	ErrInsufficientCrop = errors.New("insufficient crop")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
)

// Balance returns the user's balance for an event. Users that were never
// touched hold the initial grant.
func Balance(ctx context.Context, r store.Reader, user, eventID string) (int64, error) {
	amount, ok, err := r.Balance(ctx, user, eventID)
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	if !ok {
		return InitialGrant, nil
	}
	return amount, nil
}

// Debit subtracts amount and returns the new balance. Nothing is written
// when the balance does not cover amount.
func Debit(ctx context.Context, tx store.Tx, user, eventID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := Balance(ctx, tx, user, eventID)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return balance, fmt.Errorf("debit %d from %d: %w", amount, balance, ErrInsufficientCrop)
	}
	next := balance - amount
	if err := tx.PutBalance(ctx, user, eventID, next); err != nil {
		return 0, fmt.Errorf("write balance: %w", err)
	}
	return next, nil
}

// Credit adds amount and returns the new balance.
func Credit(ctx context.Context, tx store.Tx, user, eventID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := Balance(ctx, tx, user, eventID)
	if err != nil {
		return 0, err
	}
	next := balance + amount
	if next < balance {
		return 0, fmt.Errorf("credit %d to %d overflows", amount, balance)
	}
	if err := tx.PutBalance(ctx, user, eventID, next); err != nil {
		return 0, fmt.Errorf("write balance: %w", err)
	}
	return next, nil
}
