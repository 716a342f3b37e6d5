package honeycomb

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// Position is the horizontal location of a string, in metres.
type Position struct {
	X float64 `json:"x" toml:"x" yaml:"x"`
	Y float64 `json:"y" toml:"y" yaml:"y"`
}

// Dist returns the horizontal distance between p and q.
func (p Position) Dist(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Neighbors derives the first-neighbour relation from string positions.
// Two strings are neighbours when their distance is at most
// spacing*(1+tolerance). The result is symmetric and every neighbour list
// is sorted.
func Neighbors(positions map[int]Position, spacing, tolerance float64) map[int][]int {
	limit := spacing * (1 + tolerance)
	ids := slices.Sorted(maps.Keys(positions))
	adj := make(map[int][]int, len(ids))
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			if positions[a].Dist(positions[b]) <= limit {
				adj[a] = append(adj[a], b)
				adj[b] = append(adj[b], a)
			}
		}
	}
	for _, s := range ids {
		slices.Sort(adj[s])
	}
	return adj
}

// AddAdjacency declares every string mentioned in adj as a center and adds
// rings 1..maxRing by breadth-first search over adj. Rings stop early once
// no further strings are reachable. Strings already declared are rejected
// with [ErrDuplicateCenter].
func (b *Builder) AddAdjacency(adj map[int][]int, maxRing int) error {
	if maxRing < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRing, maxRing)
	}

	all := make(map[int]struct{})
	for s, ns := range adj {
		all[s] = struct{}{}
		for _, n := range ns {
			all[n] = struct{}{}
		}
	}

	for _, center := range slices.Sorted(maps.Keys(all)) {
		if err := b.AddCenter(center); err != nil {
			return err
		}
		visited := map[int]bool{center: true}
		frontier := []int{center}
		for k := 1; k <= maxRing && len(frontier) > 0; k++ {
			var next []int
			for _, s := range frontier {
				for _, n := range adj[s] {
					if !visited[n] {
						visited[n] = true
						next = append(next, n)
					}
				}
			}
			if len(next) == 0 {
				break
			}
			if err := b.AddRing(center, k, next); err != nil {
				return err
			}
			frontier = next
		}
	}
	return nil
}

// HexGrid lays out rows*cols strings on a hexagonal grid with the given
// spacing. Strings are numbered from 1 in row-major order and odd rows are
// shifted by half a spacing, so every interior string has six neighbours
// at exactly spacing.
func HexGrid(rows, cols int, spacing float64) map[int]Position {
	pos := make(map[int]Position, rows*cols)
	dy := spacing * math.Sqrt(3) / 2
	for r := 0; r < rows; r++ {
		shift := 0.0
		if r%2 == 1 {
			shift = spacing / 2
		}
		for c := 0; c < cols; c++ {
			pos[r*cols+c+1] = Position{X: float64(c)*spacing + shift, Y: float64(r) * dy}
		}
	}
	return pos
}
