// Package permutation enumerates every ordering of a sequence without
// materializing all of them at once.
//
// The generator uses the iterative form of Heap's algorithm: it keeps one
// working buffer and a counter per position, and each step performs a single
// swap. Every ordering is produced exactly once.
package permutation

import (
	"iter"
	"slices"

	"gonum.org/v1/gonum/stat/combin"
)

// Generator walks all n! orderings of a sequence.
//
// Usage:
//
//	g := permutation.New(items)
//	for g.Next() {
//		p := g.Permutation()
//		...
//	}
type Generator[T any] struct {
	items   []T   // working buffer, permuted in place
	c       []int // Heap's algorithm counters, one per position
	i       int
	started bool
	done    bool
}

// New creates a generator over a copy of items. The caller's slice is never
// modified.
func New[T any](items []T) *Generator[T] {
	buf := make([]T, len(items))
	copy(buf, items)
	return &Generator[T]{
		items: buf,
		c:     make([]int, len(items)),
	}
}

// Next advances to the next ordering. It returns false once every ordering
// has been produced. The first call yields the input order.
func (g *Generator[T]) Next() bool {
	if g.done {
		return false
	}
	if !g.started {
		g.started = true
		return true
	}

	n := len(g.items)
	for g.i < n {
		if g.c[g.i] < g.i {
			if g.i%2 == 0 {
				g.items[0], g.items[g.i] = g.items[g.i], g.items[0]
			} else {
				j := g.c[g.i]
				g.items[j], g.items[g.i] = g.items[g.i], g.items[j]
			}
			g.c[g.i]++
			g.i = 0
			return true
		}
		g.c[g.i] = 0
		g.i++
	}

	g.done = true
	return false
}

// Permutation returns the current ordering as a freshly allocated slice that
// the caller owns.
func (g *Generator[T]) Permutation() []T {
	return slices.Clone(g.items)
}

// All returns a sequence over every ordering of items. Each call to the
// returned function starts a fresh enumeration.
func All[T any](items []T) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		g := New(items)
		for g.Next() {
			if !yield(g.Permutation()) {
				return
			}
		}
	}
}

// Count returns n!, the number of orderings of n items. Count(0) is 1.
// It panics if n is negative.
func Count(n int) int {
	return combin.NumPermutations(n, n)
}
