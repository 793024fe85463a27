package contract

import (
	"errors"
	"fmt"

	"cropCircle/internal/chain"
	"cropCircle/internal/game"
)

var revertReasons = map[string]error{
	"Ownable: caller is not the owner": game.ErrUnauthorized,
	"Invalid duration":                 game.ErrInvalidDuration,
	"Invalid event URI":                game.ErrInvalidURI,
	"Invalid input":                    game.ErrInvalidInput,
	"Insufficient CROP":                game.ErrInsufficientCrop,
	"Cannot vote own meme":             game.ErrCannotVoteOwnMeme,
	"Already voted":                    game.ErrAlreadyVoted,
	"Event still ongoing":              game.ErrEventStillOngoing,
	"No valid winner":                  game.ErrNoValidWinner,
	"Event not active":                 game.ErrAlreadyEnded,
	"Event already ended":              game.ErrAlreadyEnded,
	"Event does not exist":             game.ErrNotFound,
	"Meme does not exist":              game.ErrNotFound,
}

// MapRevert translates a contract revert into the matching game error kind.
// Unknown reasons and non-revert errors are returned unchanged.
func MapRevert(err error) error {
	if err == nil {
		return nil
	}
	var revert *chain.RevertError
	if !errors.As(chain.DecodeRevert(err), &revert) {
		return err
	}
	if kind, ok := revertReasons[revert.Reason]; ok {
		return fmt.Errorf("%s: %w", revert.Reason, kind)
	}
	return revert
}
