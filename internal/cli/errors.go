package cli

import "errors"

// Sentinel kinds for CLI errors.
var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrRequest       = errors.New("request failed")
	ErrJobFailed     = errors.New("job failed")
)
