// Package honeycomb provides the ring topology of detector strings.
//
// # Overview
//
// Strings are laid out on a hexagonal grid. For a center string, ring 0 is
// the string itself and ring k holds the strings whose shortest hop
// distance on the grid is k. The splitter asks one question of this
// structure: "in which ring of A does B sit?" ([Topology.RingOf]).
//
// # Building
//
// A [Topology] is built once from static geometry and is immutable
// afterwards. Use a [Builder]:
//
//	b := honeycomb.NewBuilder()
//	_ = b.AddCenter(36)
//	_ = b.AddRing(36, 1, []int{26, 27, 35, 37, 45, 46})
//	_ = b.MutualAdd(36, 79, 1)
//	topo := b.Build()
//
// [Builder.AddRing] must be called in ascending ring order without gaps.
// [Builder.MutualAdd] registers a relation in both directions; nothing else
// symmetrizes, checks transitivity or cross-checks against geometry.
//
// When only a first-neighbour relation is known, [Builder.AddAdjacency]
// derives all rings up to a depth by breadth-first search, and [Neighbors]
// derives that relation from string positions.
//
// # Sparse Topology
//
// Strings that were never declared are a normal state (uninstalled
// strings, partial detectors). Lookups against them report "absent"
// instead of failing.
//
// # Density
//
// Each string carries a [Density] class. Two strings of the same class use
// that class's causality limits; mixed pairs fall back to [Single].
//
// # Concurrency
//
// A built [Topology] is safe for concurrent use by any number of goroutines.
// [Builder] is not safe for concurrent use.
package honeycomb
