package honeycomb

import (
	"math"
	"slices"
	"testing"
)

func TestHexGridNeighbours(t *testing.T) {
	pos := HexGrid(5, 5, 125)
	adj := Neighbors(pos, 125, 0.05)

	// String 13 is the middle of a 5x5 grid (row 2, col 2).
	want := []int{7, 8, 12, 14, 17, 18}
	if got := adj[13]; !slices.Equal(got, want) {
		t.Errorf("neighbours of 13 = %v, want %v", got, want)
	}
	// Corner string 1 touches 2 and 6 only.
	if got := adj[1]; !slices.Equal(got, []int{2, 6}) {
		t.Errorf("neighbours of 1 = %v, want [2 6]", got)
	}
	for s, ns := range adj {
		for _, n := range ns {
			if !slices.Contains(adj[n], s) {
				t.Errorf("adjacency not symmetric: %d -> %d", s, n)
			}
		}
	}
}

func TestPositionDist(t *testing.T) {
	p := Position{X: 0, Y: 0}
	q := Position{X: 3, Y: 4}
	if d := p.Dist(q); math.Abs(d-5) > 1e-12 {
		t.Errorf("Dist = %v, want 5", d)
	}
}

func TestAddAdjacencyRings(t *testing.T) {
	b := NewBuilder()
	if err := b.AddAdjacency(Neighbors(HexGrid(5, 5, 125), 125, 0.05), 2); err != nil {
		t.Fatalf("AddAdjacency: %v", err)
	}
	topo := b.Build()

	if len(topo.Centers()) != 25 {
		t.Fatalf("centers = %d, want 25", len(topo.Centers()))
	}
	if got := len(topo.Ring(13, 1)); got != 6 {
		t.Errorf("|ring 1 of 13| = %d, want 6", got)
	}
	if got := len(topo.Ring(13, 2)); got != 12 {
		t.Errorf("|ring 2 of 13| = %d, want 12", got)
	}
	if topo.MaxRing() != 2 {
		t.Errorf("MaxRing = %d, want 2", topo.MaxRing())
	}
	// Opposite corners are more than two hops apart.
	if _, ok := topo.RingOf(1, 25); ok {
		t.Error("RingOf(1, 25) found beyond max ring")
	}
	for _, c := range topo.Centers() {
		for k := 1; k < topo.RingCount(c); k++ {
			for _, m := range topo.Ring(c, k) {
				if back, ok := topo.RingOf(m, c); !ok || back != k {
					t.Errorf("ring asymmetry: RingOf(%d,%d)=%d but RingOf(%d,%d)=%d,%v", c, m, k, m, c, back, ok)
				}
			}
		}
	}
}

func TestAddAdjacencyStopsWhenExhausted(t *testing.T) {
	b := NewBuilder()
	adj := map[int][]int{1: {2}, 2: {1}}
	if err := b.AddAdjacency(adj, 5); err != nil {
		t.Fatalf("AddAdjacency: %v", err)
	}
	if got := b.Build().RingCount(1); got != 2 {
		t.Errorf("RingCount(1) = %d, want 2", got)
	}
}

func TestAddAdjacencyRejectsDeclaredCenters(t *testing.T) {
	b := NewBuilder()
	_ = b.AddCenter(1)
	if err := b.AddAdjacency(map[int][]int{1: {2}, 2: {1}}, 1); err == nil {
		t.Error("AddAdjacency accepted an already declared center")
	}
}
