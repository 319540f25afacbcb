// Package game describes cooperative games as data so they can be shipped
// over the wire or stored in files, and turns them into characteristic
// functions for the Shapley engine.
//
// Three kinds are supported:
//   - table: every coalition value is listed explicitly;
//   - weighted_voting: a coalition wins (value 1) when its weight reaches the quota;
//   - additive: a coalition is worth the sum of its members' weights.
package game

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/shapley/internal/domain/shapley"
)

// Kind selects how a Definition values coalitions.
type Kind string

// Supported game kinds.
const (
	KindTable          Kind = "table"
	KindWeightedVoting Kind = "weighted_voting"
	KindAdditive       Kind = "additive"
)

// keySeparator joins member names in a canonical coalition key.
const keySeparator = ","

// emptyAlias may be used in definitions in place of the empty key.
const emptyAlias = "{}"

// Definition is a game as submitted by clients or read from a file.
type Definition struct {
	// ID is optional; the service assigns one when it is empty.
	ID string `koanf:"id" json:"id,omitempty"`

	// Kind defaults to table.
	Kind Kind `koanf:"kind" json:"kind,omitempty"`

	Players []string `koanf:"players" json:"players"`

	// Coalitions maps a coalition key ("A,B"; "" or "{}" for the empty
	// coalition) to its value. Member order inside a key does not matter.
	Coalitions map[string]float64 `koanf:"coalitions" json:"coalitions,omitempty"`

	// Default is used for coalitions missing from a table. Without it a
	// missing coalition is an error.
	Default *float64 `koanf:"default" json:"default,omitempty"`

	// Weights and Quota drive the weighted_voting and additive kinds.
	Weights map[string]float64 `koanf:"weights" json:"weights,omitempty"`
	Quota   float64            `koanf:"quota" json:"quota,omitempty"`
}

// Key returns the canonical key of a coalition: member names sorted and
// joined with a comma. The empty coalition has the empty key.
func Key(coalition []string) string {
	members := slices.Clone(coalition)
	slices.Sort(members)
	return strings.Join(members, keySeparator)
}

func (d *Definition) kind() Kind {
	if d.Kind == "" {
		return KindTable
	}
	return d.Kind
}

// Validate checks the definition against the player limit, the player
// naming rules and the rules of its kind. Names must be non-empty, free of
// commas and surrounding whitespace, and must not be "{}". Empty or repeated players are deliberately left to the engine so
// that its error kinds reach the caller unchanged. maxPlayers <= 0 disables
// the limit.
func (d *Definition) Validate(maxPlayers int) error {
	if maxPlayers > 0 && len(d.Players) > maxPlayers {
		return fmt.Errorf("%w: %d players, limit is %d", ErrTooManyPlayers, len(d.Players), maxPlayers)
	}
	_, err := d.compile()
	return err
}

// Function builds the characteristic function of the game. Every call
// checks ctx, so cancelling it stops a running calculation at the next
// evaluation.
func (d *Definition) Function(ctx context.Context) (shapley.CharacteristicFunction[string], error) {
	eval, err := d.compile()
	if err != nil {
		return nil, err
	}
	return func(coalition []string) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return eval(coalition)
	}, nil
}

// Solve computes the Shapley values of the game.
func Solve(ctx context.Context, d *Definition, opts ...shapley.Option) ([]shapley.Result[string], error) {
	fn, err := d.Function(ctx)
	if err != nil {
		return nil, err
	}
	return shapley.Calculate(d.Players, fn, opts...)
}

type evaluator func(coalition []string) (float64, error)

func (d *Definition) compile() (evaluator, error) {
	declared := make(map[string]struct{}, len(d.Players))
	for _, p := range d.Players {
		if err := checkPlayerName(p); err != nil {
			return nil, err
		}
		declared[p] = struct{}{}
	}

	switch d.kind() {
	case KindTable:
		return d.compileTable(declared)
	case KindWeightedVoting:
		if d.Quota <= 0 {
			return nil, fmt.Errorf("%w: quota must be positive", ErrInvalidGame)
		}
		if err := checkWeights(d.Weights, declared); err != nil {
			return nil, err
		}
		weights, quota := d.Weights, d.Quota
		return func(coalition []string) (float64, error) {
			if sumWeights(weights, coalition) >= quota {
				return 1, nil
			}
			return 0, nil
		}, nil
	case KindAdditive:
		if err := checkWeights(d.Weights, declared); err != nil {
			return nil, err
		}
		weights := d.Weights
		return func(coalition []string) (float64, error) {
			return sumWeights(weights, coalition), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidGame, d.Kind)
	}
}

func (d *Definition) compileTable(declared map[string]struct{}) (evaluator, error) {
	table := make(map[string]float64, len(d.Coalitions))
	for raw, value := range d.Coalitions {
		key, err := normalizeKey(raw, declared)
		if err != nil {
			return nil, err
		}
		if _, dup := table[key]; dup {
			return nil, fmt.Errorf("%w: coalition %q listed twice", ErrInvalidGame, raw)
		}
		table[key] = value
	}

	var fallback *float64
	if d.Default != nil {
		v := *d.Default
		fallback = &v
	}

	return func(coalition []string) (float64, error) {
		key := Key(coalition)
		if v, ok := table[key]; ok {
			return v, nil
		}
		if fallback != nil {
			return *fallback, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrUnknownCoalition, key)
	}, nil
}

// normalizeKey turns a user supplied coalition key into its canonical form.
func normalizeKey(raw string, declared map[string]struct{}) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == emptyAlias {
		return "", nil
	}

	parts := strings.Split(trimmed, keySeparator)
	seen := make(map[string]struct{}, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if _, ok := declared[p]; !ok {
			return "", fmt.Errorf("%w: unknown player %q in coalition %q", ErrInvalidGame, p, raw)
		}
		if _, dup := seen[p]; dup {
			return "", fmt.Errorf("%w: player %q repeated in coalition %q", ErrInvalidGame, p, raw)
		}
		seen[p] = struct{}{}
		parts[i] = p
	}
	return Key(parts), nil
}

// checkPlayerName rejects names that would make coalition keys ambiguous.
func checkPlayerName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty player name", ErrInvalidGame)
	case name == emptyAlias:
		return fmt.Errorf("%w: player name %q is reserved for the empty coalition", ErrInvalidGame, name)
	case strings.Contains(name, keySeparator):
		return fmt.Errorf("%w: player name %q contains %q", ErrInvalidGame, name, keySeparator)
	case strings.TrimSpace(name) != name:
		return fmt.Errorf("%w: player name %q has surrounding whitespace", ErrInvalidGame, name)
	}
	return nil
}

func checkWeights(weights map[string]float64, declared map[string]struct{}) error {
	for p := range weights {
		if _, ok := declared[p]; !ok {
			return fmt.Errorf("%w: weight for unknown player %q", ErrInvalidGame, p)
		}
	}
	return nil
}

func sumWeights(weights map[string]float64, coalition []string) float64 {
	total := 0.0
	for _, p := range coalition {
		total += weights[p]
	}
	return total
}
