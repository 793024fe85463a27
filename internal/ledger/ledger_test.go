package ledger

import (
	"context"
	"errors"
	"testing"

	"cropCircle/internal/store"
	"cropCircle/internal/store/memory"
)

func TestBalanceDefaultsToInitialGrant(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	err := s.View(ctx, func(r store.Reader) error {
		got, err := Balance(ctx, r, "0xuser", "0xevent")
		if err != nil {
			return err
		}
		if got != InitialGrant {
			t.Fatalf("expected %d, got %d", InitialGrant, got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestDebitThenInsufficient(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	err := s.Update(ctx, func(tx store.Tx) error {
		next, err := Debit(ctx, tx, "0xuser", "0xevent", SubmissionCost)
		if err != nil {
			return err
		}
		if next != 40 {
			t.Fatalf("expected 40 after submission, got %d", next)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}

	err = s.Update(ctx, func(tx store.Tx) error {
		_, err := Debit(ctx, tx, "0xuser", "0xevent", SubmissionCost)
		return err
	})
	if !errors.Is(err, ErrInsufficientCrop) {
		t.Fatalf("expected insufficient crop, got %v", err)
	}

	_ = s.View(ctx, func(r store.Reader) error {
		got, _ := Balance(ctx, r, "0xuser", "0xevent")
		if got != 40 {
			t.Fatalf("failed debit must not change balance, got %d", got)
		}
		return nil
	})
}

func TestBalancesArePerEvent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	err := s.Update(ctx, func(tx store.Tx) error {
		_, err := Debit(ctx, tx, "0xuser", "0xa", 99)
		return err
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	_ = s.View(ctx, func(r store.Reader) error {
		if got, _ := Balance(ctx, r, "0xuser", "0xb"); got != InitialGrant {
			t.Fatalf("other event should hold the initial grant, got %d", got)
		}
		return nil
	})
}

func TestCredit(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	err := s.Update(ctx, func(tx store.Tx) error {
		next, err := Credit(ctx, tx, "0xuser", "0xevent", 25)
		if err != nil {
			return err
		}
		if next != 125 {
			t.Fatalf("expected 125, got %d", next)
		}
		if _, err := Credit(ctx, tx, "0xuser", "0xevent", 0); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected invalid amount, got %v", err)
		}
		for _, amount := range []int64{0, -5} {
			if _, err := Debit(ctx, tx, "0xuser", "0xevent", amount); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("debit %d: expected invalid input, got %v", amount, err)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
}
