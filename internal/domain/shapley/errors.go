package shapley

import (
	"errors"
	"fmt"
)

// ErrShapley is the family every error returned by Calculate belongs to.
var ErrShapley = errors.New("shapley")

// Sentinel kinds. Each one satisfies errors.Is(kind, ErrShapley).
var (
	ErrEmptyInput             = fmt.Errorf("%w: players must not be empty", ErrShapley)
	ErrDuplicatePlayers       = fmt.Errorf("%w: players must not contain duplicates", ErrShapley)
	ErrCharacteristicFunction = fmt.Errorf("%w: characteristic function failed", ErrShapley)
)

// ErrNonFiniteValue is the cause attached to ErrCharacteristicFunction when
// the function returned NaN or an infinity.
var ErrNonFiniteValue = errors.New("non-finite coalition value")

// Error carries the kind of failure, an optional detail message and the
// underlying cause, if any.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	s := e.Kind.Error()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func duplicateError(player any) error {
	return &Error{Kind: ErrDuplicatePlayers, Msg: fmt.Sprintf("%v", player)}
}

func functionError(size int, cause error) error {
	return &Error{
		Kind:  ErrCharacteristicFunction,
		Msg:   fmt.Sprintf("coalition of %d players", size),
		Cause: cause,
	}
}

// panicError turns a recovered panic value into an error, keeping it intact
// when it already is one.
func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}
