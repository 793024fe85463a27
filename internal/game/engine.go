// Package game implements the CropCircle accounting rules: per-event ticket
// balances, meme submission, voting and ending events.
package game

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"cropCircle/internal/issuer"
	"cropCircle/internal/lock"
	"cropCircle/internal/model"
	"cropCircle/internal/notify"
	"cropCircle/internal/store"
)

// Defaults applied to token issuance requests.
const (
	DefaultCreatorShare uint8 = 30
)

// DefaultTokenSupply is one million tokens with 18 decimals.
var DefaultTokenSupply = new(big.Int).Mul(big.NewInt(1_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// MemeInput carries the user supplied fields of a submission.
type MemeInput struct {
	Name        string `json:"name"`
	ContentRef  string `json:"content_ref"`
	Description string `json:"description"`
}

// Service is the game as seen by the API and CLI. It is implemented locally
// by Engine and on chain by the contract backend.
type Service interface {
	CreateEvent(ctx context.Context, caller string, durationSeconds int64, uri string) (model.Event, error)
	Event(ctx context.Context, id string) (model.Event, error)
	Events(ctx context.Context) ([]model.Event, error)
	SubmitMeme(ctx context.Context, caller, eventID string, in MemeInput) (model.Meme, error)
	Meme(ctx context.Context, eventID string, memeID uint64) (model.Meme, error)
	MemesSorted(ctx context.Context, eventID string, byUpvotes bool) ([]uint64, error)
	Memes(ctx context.Context, eventID string, byUpvotes bool) ([]model.Meme, error)
	Vote(ctx context.Context, caller, eventID string, memeID uint64, isUpvote bool) (model.Meme, error)
	VoteOf(ctx context.Context, eventID string, memeID uint64, voter string) (model.Direction, bool, error)
	Balance(ctx context.Context, user, eventID string) (int64, error)
	GrantTickets(ctx context.Context, caller, eventID, user string, amount int64) (int64, error)
	EndEvent(ctx context.Context, eventID string) (model.Event, error)
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Owner        string
	Now          func() time.Time
	Notifier     notify.Notifier
	Issuer       issuer.Issuer
	Locker       lock.Locker
	Logger       *zap.Logger
	CreatorShare uint8
	TokenSupply  *big.Int
}

// Engine enforces the game rules on top of a store.Store.
type Engine struct {
	store        store.Store
	owner        string
	now          func() time.Time
	notifier     notify.Notifier
	issuer       issuer.Issuer
	locker       lock.Locker
	logger       *zap.Logger
	creatorShare uint8
	tokenSupply  *big.Int
}

var _ Service = (*Engine)(nil)

// NewEngine builds an engine over st. Zero options fall back to defaults.
func NewEngine(st store.Store, opts Options) *Engine {
	e := &Engine{
		store:        st,
		owner:        NormalizeID(opts.Owner),
		now:          opts.Now,
		notifier:     opts.Notifier,
		issuer:       opts.Issuer,
		locker:       opts.Locker,
		logger:       opts.Logger,
		creatorShare: opts.CreatorShare,
		tokenSupply:  opts.TokenSupply,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.notifier == nil {
		e.notifier = notify.Discard
	}
	if e.locker == nil {
		e.locker = lock.NewKeyed()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.creatorShare == 0 {
		e.creatorShare = DefaultCreatorShare
	}
	if e.tokenSupply == nil || e.tokenSupply.Sign() <= 0 {
		e.tokenSupply = DefaultTokenSupply
	}
	return e
}

// NormalizeID lower-cases and trims an identity or id.
func NormalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (e *Engine) isOwner(caller string) bool {
	return e.owner != "" && caller == e.owner
}

// mutate runs fn as one store transaction while holding the named lock.
// Notifications queued by fn are published only after the commit.
func (e *Engine) mutate(ctx context.Context, lockName, eventID string, fn func(tx store.Tx, emit func(model.Notification)) error) error {
	release, err := e.locker.Acquire(ctx, lockName)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", lockName, err)
	}
	defer release()

	var pending []model.Notification
	err = e.store.Update(ctx, func(tx store.Tx) error {
		pending = pending[:0]
		if eventID != "" {
			if err := tx.LockEvent(ctx, eventID); err != nil {
				return err
			}
		}
		return fn(tx, func(n model.Notification) { pending = append(pending, n) })
	})
	if err != nil {
		return err
	}
	for _, n := range pending {
		e.publish(ctx, n)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, n model.Notification) {
	n = notify.Stamp(n, e.now())
	if err := e.notifier.Publish(ctx, n); err != nil {
		e.logger.Warn("publish notification failed",
			zap.String("kind", string(n.Kind)),
			zap.String("event_id", n.EventID),
			zap.Error(err),
		)
	}
}

func eventLock(id string) string {
	return "event:" + id
}

func loadEvent(ctx context.Context, r store.Reader, id string) (model.Event, error) {
	event, ok, err := r.Event(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return event, nil
}

func loadMeme(ctx context.Context, r store.Reader, eventID string, memeID uint64) (model.Meme, error) {
	meme, ok, err := store.FindMeme(ctx, r, eventID, memeID)
	if err != nil {
		return model.Meme{}, err
	}
	if !ok {
		return model.Meme{}, fmt.Errorf("meme %d of event %s: %w", memeID, eventID, ErrNotFound)
	}
	return meme, nil
}

func balanceNotification(eventID, user string, balance int64) model.Notification {
	b := balance
	return model.Notification{
		Kind:    model.KindBalanceChanged,
		EventID: eventID,
		Actor:   user,
		Balance: &b,
	}
}
