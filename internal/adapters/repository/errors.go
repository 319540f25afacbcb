package repository

import "errors"

// Sentinel kinds for report store errors.
var (
	ErrNotFound  = errors.New("report not found")
	ErrMissingID = errors.New("report has no job id")
)
