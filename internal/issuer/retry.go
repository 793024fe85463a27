package issuer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cropCircle/internal/retry"
)

// Retrying retries a failed issuance with exponential backoff.
type Retrying struct {
	next       Issuer
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

func WithRetry(next Issuer, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{next: next, maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

func (r *Retrying) Issue(ctx context.Context, req Request) (string, error) {
	var ref string
	attempt := 0
	err := retry.Do(ctx, r.maxRetries, r.baseDelay, func(ctx context.Context) error {
		attempt++
		var err error
		ref, err = r.next.Issue(ctx, req)
		if err != nil {
			r.logger.Warn("token issue attempt failed",
				zap.String("event_id", req.EventID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	})
	return ref, err
}
