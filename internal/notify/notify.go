// Package notify delivers committed game state changes to collaborators.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"cropCircle/internal/model"
)

// Notifier receives notifications after the state they describe has been
// committed.
type Notifier interface {
	Publish(ctx context.Context, n model.Notification) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n model.Notification) error

func (f Func) Publish(ctx context.Context, n model.Notification) error {
	return f(ctx, n)
}

// Multi publishes to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, target := range m {
		if target == nil {
			continue
		}
		if err := target.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, model.Notification) error { return nil })

// Stamp fills in a fresh id and timestamp when they are missing.
func Stamp(n model.Notification, now time.Time) model.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.At.IsZero() {
		n.At = now.UTC()
	}
	return n
}

// RoutingKey names the topic a notification is routed under, for example
// "cropcircle.vote_cast".
func RoutingKey(n model.Notification) string {
	return "cropcircle." + string(n.Kind)
}
