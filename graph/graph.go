// Package graph answers dependency questions over small sets of named nodes
// and computes startup-safe orderings.
//
// Edges are never stored. They are derived on demand by matching each node's
// declared dependency names against the names of the other nodes in the set
// being examined, so every function here is a pure function of its inputs.
package graph

import "slices"

// Node is anything that has a unique name and declares the names it depends on.
// core.Module and module.Descriptor both satisfy it.
type Node interface {
	Name() string
	DependsOn() []string
}

// DependenciesWithin returns every candidate that m declares as a dependency,
// in candidate order. m does not need to be a member of candidates.
func DependenciesWithin[T Node](candidates []T, m T) []T {
	required := m.DependsOn()
	if len(required) == 0 {
		return nil
	}
	var out []T
	for _, c := range candidates {
		if slices.Contains(required, c.Name()) {
			out = append(out, c)
		}
	}
	return out
}

// Dependents returns the members of set that directly depend on target.
func Dependents[T Node](set []T, target T) []T {
	name := target.Name()
	var out []T
	for _, n := range set {
		if n.Name() == name {
			continue
		}
		if slices.Contains(n.DependsOn(), name) {
			out = append(out, n)
		}
	}
	return out
}

// TransitiveDependents returns every member of set that depends on target
// directly or through other members, in set order. Cycles are tolerated.
func TransitiveDependents[T Node](set []T, target T) []T {
	reached := map[string]bool{target.Name(): true}
	frontier := []string{target.Name()}
	for len(frontier) > 0 {
		name := frontier[0]
		frontier = frontier[1:]
		for _, n := range set {
			if reached[n.Name()] {
				continue
			}
			if slices.Contains(n.DependsOn(), name) {
				reached[n.Name()] = true
				frontier = append(frontier, n.Name())
			}
		}
	}

	var out []T
	for _, n := range set {
		if n.Name() != target.Name() && reached[n.Name()] {
			out = append(out, n)
		}
	}
	return out
}

// Missing returns, per node, the declared dependency names that no member of
// set provides.
func Missing[T Node](set []T) map[string][]string {
	names := make(map[string]bool, len(set))
	for _, n := range set {
		names[n.Name()] = true
	}
	out := map[string][]string{}
	for _, n := range set {
		for _, d := range n.DependsOn() {
			if !names[d] {
				out[n.Name()] = append(out[n.Name()], d)
			}
		}
	}
	return out
}

// Names lists node names in order.
func Names[T Node](nodes []T) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}
