package game

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidGame       = errors.New("invalid game")
	ErrTooManyPlayers    = errors.New("too many players")
	ErrUnknownCoalition  = errors.New("unknown coalition")
	ErrLoadGame          = errors.New("load game failed")
	ErrUnsupportedFormat = errors.New("unsupported game file format")
)
