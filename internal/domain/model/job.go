// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/shapley/internal/domain/game"
)

// Job is a game accepted for asynchronous Shapley computation.
type Job struct {
	ID          string           // unique id, also the idempotency key
	Game        *game.Definition // validated game
	SubmittedAt time.Time
}

// Players returns the number of players in the job's game.
func (j Job) Players() int {
	if j.Game == nil {
		return 0
	}
	return len(j.Game.Players)
}
