package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"cropCircle/internal/content"
	"cropCircle/internal/game"
)

type errorKind struct {
	err    error
	status int
	code   string
}

// Order matters: ErrInvalidURI wraps ErrInvalidInput.
var errorKinds = []errorKind{
	{game.ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED"},
	{game.ErrInvalidURI, http.StatusBadRequest, "INVALID_URI"},
	{game.ErrInvalidDuration, http.StatusBadRequest, "INVALID_DURATION"},
	{game.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{game.ErrInsufficientCrop, http.StatusPaymentRequired, "INSUFFICIENT_CROP"},
	{game.ErrCannotVoteOwnMeme, http.StatusConflict, "CANNOT_VOTE_OWN_MEME"},
	{game.ErrAlreadyVoted, http.StatusConflict, "ALREADY_VOTED"},
	{game.ErrEventStillOngoing, http.StatusConflict, "EVENT_STILL_ONGOING"},
	{game.ErrNoValidWinner, http.StatusConflict, "NO_VALID_WINNER"},
	{game.ErrAlreadyEnded, http.StatusConflict, "ALREADY_ENDED"},
	{game.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{game.ErrUnsupported, http.StatusNotImplemented, "UNSUPPORTED"},
	{content.ErrTooLarge, http.StatusRequestEntityTooLarge, "CONTENT_TOO_LARGE"},
	{content.ErrUnsupportedType, http.StatusUnsupportedMediaType, "UNSUPPORTED_CONTENT_TYPE"},
	{content.ErrEmpty, http.StatusBadRequest, "EMPTY_CONTENT"},
}

func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// codedError carries a machine readable code into GraphQL error extensions.
type codedError struct {
	err  error
	code string
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func (e *codedError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

func gqlError(err error) error {
	if err == nil {
		return nil
	}
	_, code := classify(err)
	return &codedError{err: err, code: code}
}

// ErrorHandler renders errors as {"message", "code"}.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, kind := classify(err)
		msg := err.Error()

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			kind = http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}

		_ = c.JSON(code, map[string]string{"message": msg, "code": kind})
	}
}
