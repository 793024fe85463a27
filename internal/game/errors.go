package game

import (
	"errors"
	"fmt"

	"cropCircle/internal/ledger"
)

// Error kinds returned by Service implementations. Callers match them with
// errors.Is.
var (
	ErrUnauthorized      = errors.New("caller is not the owner")
	ErrInvalidInput      = ledger.ErrInvalidInput
	ErrInvalidURI        = fmt.Errorf("%w: invalid event uri", ErrInvalidInput)
	ErrInvalidDuration   = errors.New("invalid duration")
	ErrInsufficientCrop  = ledger.ErrInsufficientCrop
	ErrCannotVoteOwnMeme = errors.New("cannot vote own meme")
	ErrAlreadyVoted      = errors.New("already voted")
	ErrEventStillOngoing = errors.New("event still ongoing")
	ErrNoValidWinner     = errors.New("no valid winner")
	ErrAlreadyEnded      = errors.New("event already ended")
	ErrNotFound          = errors.New("not found")
	ErrUnsupported       = errors.New("operation not supported by backend")
)
