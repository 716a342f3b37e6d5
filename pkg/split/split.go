package split

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/hivesplit/pkg/causality"
	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	"github.com/matzehuels/hivesplit/pkg/honeycomb"
	"github.com/matzehuels/hivesplit/pkg/omkey"
)

// Clusterer is an immutable, fully validated splitter configuration.
type Clusterer struct {
	layout  omkey.Layout
	topo    *honeycomb.Topology
	profile *causality.Profile
}

// New returns a clusterer over the given layout, topology and profile.
// A nil topology or profile, or an empty layout, is an
// INVALID_CONFIGURATION error.
func New(layout omkey.Layout, topo *honeycomb.Topology, profile *causality.Profile) (*Clusterer, error) {
	if layout.Size() == 0 {
		return nil, hserrors.New(hserrors.ErrCodeInvalidConfiguration, "empty detector layout")
	}
	if topo == nil {
		return nil, hserrors.New(hserrors.ErrCodeInvalidConfiguration, "nil topology")
	}
	if profile == nil {
		return nil, hserrors.New(hserrors.ErrCodeInvalidConfiguration, "nil causality profile")
	}
	return &Clusterer{layout: layout, topo: topo, profile: profile}, nil
}

// Layout returns the detector layout.
func (c *Clusterer) Layout() omkey.Layout { return c.layout }

// Topology returns the ring topology.
func (c *Clusterer) Topology() *honeycomb.Topology { return c.topo }

// Profile returns the causality profile.
func (c *Clusterer) Profile() *causality.Profile { return c.profile }

// SplitHits is Split specialised to the canonical Hit record.
func (c *Clusterer) SplitHits(hits []Hit) *Result {
	return Split(c, hits)
}

// node is the working copy of one accepted hit.
type node struct {
	pos int // index in the caller's slice
	idx omkey.Index
	key omkey.Key
	t   float64
	q   float64
}

// cluster is an active or finalized group of nodes.
type cluster struct {
	start   float64
	first   int // order of the earliest member in the sorted stream
	members []int
}

// Split partitions pulses into subevents. pulses need not be sorted; the
// result refers to them by index.
func Split[P Pulse](c *Clusterer, pulses []P) *Result {
	res := &Result{Mode: c.profile.Mode(), Input: len(pulses)}

	nodes := make([]node, 0, len(pulses))
	for i, p := range pulses {
		k := p.HitKey()
		t := p.HitTime()
		idx, err := c.layout.ToIndex(k)
		q := p.HitCharge()
		if err != nil || !finite(t) || !finite(q) {
			res.Rejected = append(res.Rejected, i)
			continue
		}
		nodes = append(nodes, node{pos: i, idx: idx, key: k, t: t, q: q})
	}
	slices.SortStableFunc(nodes, func(a, b node) int {
		if r := cmp.Compare(a.t, b.t); r != 0 {
			return r
		}
		return cmp.Compare(a.idx, b.idx)
	})

	finalized := c.cluster(nodes)

	var survivors []*cluster
	for _, cl := range finalized {
		slices.Sort(cl.members)
		if len(cl.members) >= c.profile.Multiplicity() {
			survivors = append(survivors, cl)
		} else {
			res.Noise = append(res.Noise, summarize(members(nodes, cl.members)))
		}
	}

	if c.profile.Mode() == causality.Unify && len(survivors) > 1 {
		all := &cluster{start: survivors[0].start, first: survivors[0].first}
		for _, cl := range survivors {
			all.members = append(all.members, cl.members...)
		}
		slices.Sort(all.members)
		survivors = []*cluster{all}
	}

	res.Subevents = make([]Subevent, len(survivors))
	for i, cl := range survivors {
		res.Subevents[i] = summarize(members(nodes, cl.members))
	}
	return res
}

func members(nodes []node, order []int) []*node {
	out := make([]*node, len(order))
	for i, o := range order {
		out[i] = &nodes[o]
	}
	return out
}

// cluster runs the streaming pass over time-ordered nodes and returns all
// finalized clusters ordered by their earliest member.
func (c *Clusterer) cluster(nodes []node) []*cluster {
	window := c.profile.TimeWindow()
	var active, done []*cluster

	for i := range nodes {
		cur := &nodes[i]

		// Retire clusters that can no longer accept members.
		kept := active[:0]
		for _, cl := range active {
			if cur.t-cl.start > window {
				done = append(done, cl)
			} else {
				kept = append(kept, cl)
			}
		}
		active = kept

		var target *cluster
		merged := active[:0]
		for _, cl := range active {
			if !c.reaches(nodes, cl, cur) {
				merged = append(merged, cl)
				continue
			}
			if target == nil {
				target = cl
				merged = append(merged, cl)
				continue
			}
			// cl joins target; clusters are visited in creation order, so
			// target always holds the earliest first member.
			target.members = append(target.members, cl.members...)
			target.start = math.Min(target.start, cl.start)
		}
		active = merged

		if target == nil {
			active = append(active, &cluster{start: cur.t, first: i, members: []int{i}})
		} else {
			target.members = append(target.members, i)
		}
	}

	done = append(done, active...)
	slices.SortFunc(done, func(a, b *cluster) int { return cmp.Compare(a.first, b.first) })
	return done
}

// reaches reports whether cur is directly connected to any member of cl.
func (c *Clusterer) reaches(nodes []node, cl *cluster, cur *node) bool {
	for j := len(cl.members) - 1; j >= 0; j-- {
		if c.connected(&nodes[cl.members[j]], cur) {
			return true
		}
	}
	return false
}

// connected is the direct connection test for a hit a and a hit b that
// does not precede it.
func (c *Clusterer) connected(a, b *node) bool {
	dt := b.t - a.t

	if a.idx == b.idx {
		return c.profile.ConeWindow().Contains(dt)
	}

	k, ok := c.topo.RingOf(a.key.Str, b.key.Str)
	if !ok {
		return false
	}
	w, ok := c.profile.CausalWindow(c.topo.PairDensity(a.key.Str, b.key.Str), k)
	if !ok {
		return false
	}
	if c.profile.DOMSpacings() {
		limit, err := c.profile.DOMSpacingLimit(k)
		if err != nil || absInt(a.key.OM-b.key.OM) > limit {
			return false
		}
	}
	return w.Contains(dt)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
