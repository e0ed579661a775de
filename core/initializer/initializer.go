// Package initializer provides named, constraint-ordered bootstrap steps.
// Units declare initializers with optional before/after name constraints;
// the host flattens every unit's list into one collection and resolves it
// into a single total order before running it.
package initializer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Initializer is one named bootstrap step. Name is unique within the owning
// unit only; the flattened collection may legally carry the same name more
// than once across units.
type Initializer[T any] struct {
	// Name identifies the step in constraints and diagnostics.
	Name string
	// Unit names the owning unit, for diagnostics.
	Unit string
	// Before constrains this step to run strictly earlier than every
	// initializer bearing the named anchor. Empty means unconstrained.
	Before string
	// After constrains this step to run strictly later than every
	// initializer bearing the named anchor. Empty means unconstrained.
	After string
	// Block is invoked exactly once with the host application.
	Block func(ctx context.Context, host T) error
}

func (i Initializer[T]) label() string {
	if i.Unit == "" {
		return i.Name
	}
	return i.Unit + ":" + i.Name
}

// Collection is an ordered list of initializers, typically the flattened
// merge across units.
type Collection[T any] []Initializer[T]

// OrderingCycleError is reported when before/after constraints form a
// cycle. Members lists the initializers involved, in discovery order.
type OrderingCycleError struct {
	Members []string
}

func (e *OrderingCycleError) Error() string {
	return fmt.Sprintf("initializer: ordering cycle between %s", strings.Join(e.Members, " -> "))
}

// Names returns the collection's initializer names in order.
func (c Collection[T]) Names() []string {
	out := make([]string, len(c))
	for i, init := range c {
		out[i] = init.Name
	}
	return out
}

// Sort resolves the collection into a total order satisfying every
// before/after constraint. Constraints naming an initializer absent from
// the collection are dropped; the constrained step keeps its natural
// position. Ties resolve by original collection order, so the result is
// deterministic across runs. A constraint cycle returns OrderingCycleError.
func (c Collection[T]) Sort() (Collection[T], error) {
	n := len(c)
	byName := make(map[string][]int, n)
	for i, init := range c {
		byName[init.Name] = append(byName[init.Name], i)
	}

	// edges[i] holds the nodes that must run strictly after i.
	edges := make([][]int, n)
	indegree := make([]int, n)
	addEdge := func(from, to int) {
		if from == to {
			return
		}
		edges[from] = append(edges[from], to)
		indegree[to]++
	}
	for i, init := range c {
		if init.Before != "" {
			for _, j := range byName[init.Before] {
				addEdge(i, j)
			}
		}
		if init.After != "" {
			for _, j := range byName[init.After] {
				addEdge(j, i)
			}
		}
	}

	if cycle := findCycle(edges); cycle != nil {
		members := make([]string, len(cycle))
		for i, idx := range cycle {
			members[i] = c[idx].label()
		}
		return nil, &OrderingCycleError{Members: members}
	}

	// Stable Kahn: among ready nodes always pick the lowest flatten index,
	// preserving registration/declaration order for unconstrained pairs.
	out := make(Collection[T], 0, n)
	done := make([]bool, n)
	for len(out) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			// Unreachable once findCycle passed; guard anyway.
			return nil, &OrderingCycleError{Members: pending(c, done)}
		}
		done[next] = true
		out = append(out, c[next])
		for _, j := range edges[next] {
			indegree[j]--
		}
	}
	return out, nil
}

// findCycle detects a cycle via DFS coloring and returns the member
// indices, or nil when the graph is acyclic.
func findCycle(edges [][]int) []int {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(edges))
	var stack []int

	var visit func(i int) []int
	visit = func(i int) []int {
		color[i] = gray
		stack = append(stack, i)
		for _, j := range edges[i] {
			switch color[j] {
			case gray:
				// Slice the current path from j onward: that is the cycle.
				for k, v := range stack {
					if v == j {
						return append(append([]int(nil), stack[k:]...), j)
					}
				}
			case white:
				if cycle := visit(j); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return nil
	}

	for i := range edges {
		if color[i] == white {
			if cycle := visit(i); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func pending[T any](c Collection[T], done []bool) []string {
	var out []string
	for i, init := range c {
		if !done[i] {
			out = append(out, init.label())
		}
	}
	return out
}

// Run invokes each block exactly once, synchronously, in collection order,
// passing the host. The first failing block aborts the remainder; its error
// propagates unwrapped apart from positional context.
func (c Collection[T]) Run(ctx context.Context, host T, logger zerolog.Logger) error {
	for _, init := range c {
		if init.Block == nil {
			continue
		}
		start := time.Now()
		if err := init.Block(ctx, host); err != nil {
			logger.Error().
				Str("initializer", init.Name).
				Str("unit", init.Unit).
				Err(err).
				Msg("initializer failed, aborting boot")
			return fmt.Errorf("initializer %s: %w", init.label(), err)
		}
		logger.Debug().
			Str("initializer", init.Name).
			Str("unit", init.Unit).
			Dur("took", time.Since(start)).
			Msg("initializer ran")
	}
	return nil
}
