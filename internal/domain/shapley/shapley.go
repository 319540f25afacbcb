// Package shapley computes exact Shapley values for a cooperative game.
//
// The value of each player is the average, over every ordering of the
// players, of the marginal value that player adds when joining the
// coalition of players that precede it. The computation is exact and
// exponential: it evaluates the characteristic function 2·n·n! times and is
// meant for small player counts.
//
// Calculate is a pure function of its inputs. It performs no I/O, starts no
// goroutines and keeps no state between calls.
package shapley

import (
	"math"

	"github.com/okian/shapley/internal/domain/permutation"
)

// CharacteristicFunction maps a coalition to its value. The coalition is
// the ordered prefix of the current permutation and must be treated as
// read-only. The empty coalition is a valid input.
//
// A function signals failure by returning an error or by panicking. Both
// abort the calculation with ErrCharacteristicFunction, as does a NaN or
// infinite return value.
type CharacteristicFunction[P comparable] func(coalition []P) (float64, error)

// Result is the Shapley value of a single player.
type Result[P comparable] struct {
	Player P
	Value  float64
}

// Stats reports the work done by a successful calculation.
type Stats struct {
	Permutations int
	Evaluations  int
}

// Option applies a configuration option to a calculation.
type Option func(*settings)

type settings struct {
	stats *Stats
}

// WithStats makes Calculate fill s once it succeeds.
func WithStats(s *Stats) Option {
	return func(c *settings) {
		c.stats = s
	}
}

// Calculate returns the Shapley value of every player, in input order.
//
// Players must be non-empty and unique; otherwise ErrEmptyInput or
// ErrDuplicatePlayers is returned before fn is ever called. Any failure of
// fn is returned as ErrCharacteristicFunction with the original failure as
// its cause. No partial results are returned on error.
func Calculate[P comparable](players []P, fn CharacteristicFunction[P], opts ...Option) ([]Result[P], error) {
	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}

	index, err := indexPlayers(players)
	if err != nil {
		return nil, err
	}

	n := len(players)
	totals := make([]float64, n)
	count := 0
	evaluations := 0

	g := permutation.New(players)
	for g.Next() {
		// Each permutation is a fresh slice, so coalitions handed out below
		// stay valid even if fn retains them.
		perm := g.Permutation()
		count++

		for i, player := range perm {
			without, err := evaluate(fn, perm[:i:i])
			if err != nil {
				return nil, err
			}
			with, err := evaluate(fn, perm[:i+1:i+1])
			if err != nil {
				return nil, err
			}
			evaluations += 2
			totals[index[player]] += with - without
		}
	}

	results := make([]Result[P], n)
	for i, player := range players {
		results[i] = Result[P]{Player: player, Value: totals[i] / float64(count)}
	}

	if cfg.stats != nil {
		cfg.stats.Permutations = count
		cfg.stats.Evaluations = evaluations
	}
	return results, nil
}

// CheckPlayers returns the error Calculate would return for players before
// evaluating anything, or nil if they are acceptable.
func CheckPlayers[P comparable](players []P) error {
	_, err := indexPlayers(players)
	return err
}

// indexPlayers validates the input and maps each player to its position.
func indexPlayers[P comparable](players []P) (map[P]int, error) {
	if len(players) == 0 {
		return nil, &Error{Kind: ErrEmptyInput}
	}
	index := make(map[P]int, len(players))
	for i, p := range players {
		if _, dup := index[p]; dup {
			return nil, duplicateError(p)
		}
		index[p] = i
	}
	return index, nil
}

// evaluate calls fn and converts every way it can fail into
// ErrCharacteristicFunction.
func evaluate[P comparable](fn CharacteristicFunction[P], coalition []P) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = 0, functionError(len(coalition), panicError(r))
		}
	}()

	value, err = fn(coalition)
	if err != nil {
		return 0, functionError(len(coalition), err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, functionError(len(coalition), ErrNonFiniteValue)
	}
	return value, nil
}
