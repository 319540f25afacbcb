package app

import (
	"errors"

	"github.com/okian/shapley/internal/domain/game"
	"github.com/okian/shapley/internal/domain/shapley"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("backpressure")
	ErrJobNotFound  = errors.New("job not found")
)

// Error codes shared by reports and HTTP error bodies.
const (
	CodeEmptyInput       = "empty_input"
	CodeDuplicatePlayers = "duplicate_players"
	CodeFunctionFailure  = "characteristic_function_failure"
	CodeInvalidGame      = "invalid_game"
	CodeTooManyPlayers   = "too_many_players"
	CodeBackpressure     = "backpressure"
	CodeNotFound         = "not_found"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal_error"
)

// ErrorCode maps an error returned by the service to its stable code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, shapley.ErrEmptyInput):
		return CodeEmptyInput
	case errors.Is(err, shapley.ErrDuplicatePlayers):
		return CodeDuplicatePlayers
	case errors.Is(err, shapley.ErrCharacteristicFunction):
		return CodeFunctionFailure
	case errors.Is(err, game.ErrTooManyPlayers):
		return CodeTooManyPlayers
	case errors.Is(err, game.ErrInvalidGame):
		return CodeInvalidGame
	case errors.Is(err, ErrBackpressure):
		return CodeBackpressure
	case errors.Is(err, ErrJobNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotStarted):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}
