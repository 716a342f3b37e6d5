package honeycomb

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrInvalidString is returned when a string number is not positive.
	ErrInvalidString = errors.New("string number must be positive")

	// ErrDuplicateCenter is returned by [Builder.AddCenter] when the string
	// is already declared as a center.
	ErrDuplicateCenter = errors.New("duplicate center")

	// ErrUnknownCenter is returned by [Builder.AddRing] when the center was
	// never declared with [Builder.AddCenter].
	ErrUnknownCenter = errors.New("unknown center")

	// ErrRingOrder is returned by [Builder.AddRing] when rings are not added
	// in ascending order starting at 1.
	ErrRingOrder = errors.New("rings must be added in ascending order without gaps")

	// ErrInvalidRing is returned when a ring index below 1 is used where a
	// neighbour ring is required.
	ErrInvalidRing = errors.New("ring index must be at least 1")

	// ErrSelfInRing is returned when a center is listed in one of its own
	// outer rings.
	ErrSelfInRing = errors.New("center cannot be a member of its own outer ring")
)

// Density classifies the string spacing of a detector region.
type Density int

const (
	// Single is the standard string spacing and the default class.
	Single Density = iota
	// Double marks a region with roughly twice the string density.
	Double
	// Triple marks the densest infill region.
	Triple
)

// Densities lists all classes in ascending order.
var Densities = []Density{Single, Double, Triple}

func (d Density) String() string {
	switch d {
	case Single:
		return "single"
	case Double:
		return "double"
	case Triple:
		return "triple"
	}
	return fmt.Sprintf("density(%d)", int(d))
}

// ParseDensity parses "single", "double" or "triple". The empty string
// yields Single.
func ParseDensity(s string) (Density, error) {
	switch s {
	case "", "single":
		return Single, nil
	case "double":
		return Double, nil
	case "triple":
		return Triple, nil
	}
	return Single, fmt.Errorf("unknown density %q", s)
}

// record holds the rings of one center. rings[0] is always {center}.
type record struct {
	rings [][]int
}

// Builder accumulates centers and rings. The zero value is not usable;
// use [NewBuilder].
type Builder struct {
	centers   map[int]*record
	densities map[int]Density
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		centers:   make(map[int]*record),
		densities: make(map[int]Density),
	}
}

// AddCenter declares str as a topology root with ring 0 = {str}.
func (b *Builder) AddCenter(str int) error {
	if str < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidString, str)
	}
	if _, ok := b.centers[str]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateCenter, str)
	}
	b.centers[str] = &record{rings: [][]int{{str}}}
	return nil
}

// AddRing assigns members to ring k of center. Rings must be added in
// ascending order with no gaps, so k must equal the number of rings the
// center already has. Duplicate members are collapsed.
func (b *Builder) AddRing(center, k int, members []int) error {
	rec, ok := b.centers[center]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCenter, center)
	}
	if k < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRing, k)
	}
	if k != len(rec.rings) {
		return fmt.Errorf("%w: center %d has %d rings, got ring %d", ErrRingOrder, center, len(rec.rings)-1, k)
	}
	ring := make([]int, 0, len(members))
	for _, m := range members {
		if m < 1 {
			return fmt.Errorf("%w: %d in ring %d of %d", ErrInvalidString, m, k, center)
		}
		if m == center {
			return fmt.Errorf("%w: %d", ErrSelfInRing, center)
		}
		ring = append(ring, m)
	}
	slices.Sort(ring)
	rec.rings = append(rec.rings, slices.Compact(ring))
	return nil
}

// MutualAdd inserts b into ring k of a and a into ring k of b. Centers that
// are not yet declared are declared on the fly, and missing intermediate
// rings are created empty. Consistency with the detector geometry is the
// caller's responsibility.
func (b *Builder) MutualAdd(strA, strB, k int) error {
	if k < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRing, k)
	}
	if strA == strB {
		return fmt.Errorf("%w: %d", ErrSelfInRing, strA)
	}
	for _, s := range []int{strA, strB} {
		if s < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidString, s)
		}
		if _, ok := b.centers[s]; !ok {
			b.centers[s] = &record{rings: [][]int{{s}}}
		}
	}
	b.insert(strA, strB, k)
	b.insert(strB, strA, k)
	return nil
}

func (b *Builder) insert(center, member, k int) {
	rec := b.centers[center]
	for len(rec.rings) <= k {
		rec.rings = append(rec.rings, nil)
	}
	ring := rec.rings[k]
	if i, found := slices.BinarySearch(ring, member); !found {
		rec.rings[k] = slices.Insert(ring, i, member)
	}
}

// SetDensity assigns a density class to str. Strings without an explicit
// class are [Single].
func (b *Builder) SetDensity(str int, d Density) error {
	if str < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidString, str)
	}
	if d < Single || d > Triple {
		return fmt.Errorf("invalid density %d for string %d", int(d), str)
	}
	b.densities[str] = d
	return nil
}

// HasCenter reports whether str has been declared.
func (b *Builder) HasCenter(str int) bool {
	_, ok := b.centers[str]
	return ok
}

// Build returns an immutable snapshot of the builder. The builder may be
// reused afterwards without affecting the snapshot.
func (b *Builder) Build() *Topology {
	t := &Topology{
		centers:   make(map[int]*entry, len(b.centers)),
		densities: maps.Clone(b.densities),
	}
	for s, rec := range b.centers {
		e := &entry{
			rings:  make([][]int, len(rec.rings)),
			lookup: make(map[int]int),
		}
		for k, ring := range rec.rings {
			e.rings[k] = slices.Clone(ring)
			for _, m := range ring {
				if _, seen := e.lookup[m]; !seen {
					e.lookup[m] = k
				}
			}
		}
		t.centers[s] = e
		if len(rec.rings)-1 > t.maxRing {
			t.maxRing = len(rec.rings) - 1
		}
	}
	return t
}

type entry struct {
	rings  [][]int     // sorted members per ring
	lookup map[int]int // member -> smallest ring
}

// Topology is the immutable ring structure produced by [Builder.Build].
// The zero value is an empty topology in which every lookup is absent.
type Topology struct {
	centers   map[int]*entry
	densities map[int]Density
	maxRing   int
}

// RingOf returns the smallest k such that query is a member of ring k of
// center. The second result is false when center was never declared or
// query appears in none of its rings.
func (t *Topology) RingOf(center, query int) (int, bool) {
	e, ok := t.centers[center]
	if !ok {
		return 0, false
	}
	k, ok := e.lookup[query]
	return k, ok
}

// IsRing reports whether query is a member of exactly ring k of center.
func (t *Topology) IsRing(center, k, query int) bool {
	e, ok := t.centers[center]
	if !ok || k < 0 || k >= len(e.rings) {
		return false
	}
	_, found := slices.BinarySearch(e.rings[k], query)
	return found
}

// Ring returns a copy of ring k of center, sorted ascending. It returns nil
// when the center or ring does not exist.
func (t *Topology) Ring(center, k int) []int {
	e, ok := t.centers[center]
	if !ok || k < 0 || k >= len(e.rings) {
		return nil
	}
	return slices.Clone(e.rings[k])
}

// RingCount returns the number of rings recorded for center, including
// ring 0. It returns 0 for undeclared centers.
func (t *Topology) RingCount(center int) int {
	if e, ok := t.centers[center]; ok {
		return len(e.rings)
	}
	return 0
}

// HasCenter reports whether str was declared.
func (t *Topology) HasCenter(str int) bool {
	_, ok := t.centers[str]
	return ok
}

// Centers returns all declared strings in ascending order.
func (t *Topology) Centers() []int {
	return slices.Sorted(maps.Keys(t.centers))
}

// MaxRing returns the deepest ring index recorded for any center.
func (t *Topology) MaxRing() int { return t.maxRing }

// Density returns the density class of str ([Single] if unset).
func (t *Topology) Density(str int) Density { return t.densities[str] }

// PairDensity returns the density class governing a pair of strings: the
// shared class when both strings have the same one, [Single] otherwise.
func (t *Topology) PairDensity(a, b int) Density {
	da, db := t.Density(a), t.Density(b)
	if da == db {
		return da
	}
	return Single
}
