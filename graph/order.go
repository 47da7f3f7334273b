package graph

import (
	"fmt"
	"slices"
	"strings"
)

// UnresolvedError reports that no startup order exists for the remaining
// nodes, because of a cycle among them.
type UnresolvedError struct {
	// Remaining holds the names still unordered when resolution stalled,
	// in input order.
	Remaining []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("no startup order for [%s]: dependency cycle", strings.Join(e.Remaining, ", "))
}

// ResolveStartupOrder orders nodes so that nobody appears before a member of
// the list it depends on. Dependencies on names outside the list are ignored.
//
// Each pass takes the first remaining node, in input order, whose
// dependencies inside the remaining set have all been placed. That keeps the
// result stable for a given input.
//
// If a pass finds no such node the input is returned unchanged together with
// an *UnresolvedError naming the stuck nodes. A partial order is never
// returned. The returned slice is always a fresh copy.
func ResolveStartupOrder[T Node](nodes []T) ([]T, error) {
	candidates := slices.Clone(nodes)
	ordered := make([]T, 0, len(nodes))

	for len(candidates) > 0 {
		next := -1
		for i, c := range candidates {
			if len(DependenciesWithin(candidates, c)) == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return slices.Clone(nodes), &UnresolvedError{Remaining: Names(candidates)}
		}
		ordered = append(ordered, candidates[next])
		candidates = slices.Delete(candidates, next, next+1)
	}
	return ordered, nil
}

// ResolveShutdownOrder is the reverse of ResolveStartupOrder: dependents come
// before the nodes they depend on. On an unresolvable input it returns the
// input reversed together with the *UnresolvedError.
func ResolveShutdownOrder[T Node](nodes []T) ([]T, error) {
	ordered, err := ResolveStartupOrder(nodes)
	slices.Reverse(ordered)
	return ordered, err
}
