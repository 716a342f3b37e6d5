package config

import (
	"time"

	"github.com/matzehuels/hivesplit/pkg/cache"
	"github.com/matzehuels/hivesplit/pkg/causality"
	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	"github.com/matzehuels/hivesplit/pkg/honeycomb"
	"github.com/matzehuels/hivesplit/pkg/omkey"
	"github.com/matzehuels/hivesplit/pkg/split"
)

// Setup is the validated domain configuration derived from a File.
type Setup struct {
	Layout    omkey.Layout
	Topology  *honeycomb.Topology
	Profile   *causality.Profile
	Clusterer *split.Clusterer

	// Hash identifies the detector, profile and topology sections. Host
	// sections do not contribute, so cached results survive a change of
	// listen address or cache backend.
	Hash string
}

// Build constructs the layout, topology, profile and clusterer. Every
// failure is an INVALID_CONFIGURATION error.
func (f *File) Build() (*Setup, error) {
	layout, err := f.Layout()
	if err != nil {
		return nil, err
	}
	topo, err := f.BuildTopology()
	if err != nil {
		return nil, err
	}
	pcfg, err := f.CausalityConfig()
	if err != nil {
		return nil, err
	}
	profile, err := causality.New(pcfg)
	if err != nil {
		return nil, err
	}
	c, err := split.New(layout, topo, profile)
	if err != nil {
		return nil, err
	}
	hash, err := cache.HashJSON(f)
	if err != nil {
		return nil, hserrors.Wrap(hserrors.ErrCodeInternal, err, "hash configuration")
	}
	return &Setup{Layout: layout, Topology: topo, Profile: profile, Clusterer: c, Hash: hash}, nil
}

// Layout returns the detector layout, defaulting to [omkey.IceCube].
func (f *File) Layout() (omkey.Layout, error) {
	if f.Detector.MaxStrings == 0 && f.Detector.MaxOMs == 0 {
		return omkey.IceCube, nil
	}
	return omkey.NewLayout(f.Detector.MaxStrings, f.Detector.MaxOMs)
}

// CausalityConfig converts the profile section.
func (f *File) CausalityConfig() (causality.Config, error) {
	p := f.Profile
	mode, err := causality.ParseMode(p.Mode)
	if err != nil {
		return causality.Config{}, err
	}
	return causality.Config{
		Name:                  p.Name,
		Multiplicity:          p.Multiplicity,
		TimeWindow:            p.TimeWindow,
		TimeConeMinus:         p.TimeConeMinus,
		TimeConePlus:          p.TimeConePlus,
		DOMSpacings:           p.DOMSpacings,
		DOMSpacingLimits:      p.DOMSpacingLimits,
		Mode:                  mode,
		SingleDenseRingLimits: p.SingleDenseRingLimits,
		DoubleDenseRingLimits: p.DoubleDenseRingLimits,
		TripleDenseRingLimits: p.TripleDenseRingLimits,
	}, nil
}

// BuildTopology applies the topology section to a fresh builder.
func (f *File) BuildTopology() (*honeycomb.Topology, error) {
	t := f.Topology
	b := honeycomb.NewBuilder()

	if g := t.Geometry; g != nil {
		positions := make(map[int]honeycomb.Position)
		if g.Grid != nil {
			positions = honeycomb.HexGrid(g.Grid.Rows, g.Grid.Cols, g.Spacing)
		}
		for _, p := range g.Positions {
			positions[p.String] = honeycomb.Position{X: p.X, Y: p.Y}
		}
		if err := b.AddAdjacency(honeycomb.Neighbors(positions, g.Spacing, g.Tolerance), g.MaxRing); err != nil {
			return nil, topologyError(err, "geometry")
		}
	}

	for _, c := range t.Centers {
		if err := b.AddCenter(c.String); err != nil {
			return nil, topologyError(err, "center %d", c.String)
		}
		for k, ring := range c.Rings {
			if err := b.AddRing(c.String, k+1, ring); err != nil {
				return nil, topologyError(err, "center %d", c.String)
			}
		}
	}

	for _, l := range t.Links {
		if err := b.MutualAdd(l.A, l.B, l.Ring); err != nil {
			return nil, topologyError(err, "link %d-%d", l.A, l.B)
		}
	}

	for _, d := range t.Densities {
		class, err := honeycomb.ParseDensity(d.Class)
		if err != nil {
			return nil, topologyError(err, "density")
		}
		for _, s := range d.Strings {
			if err := b.SetDensity(s, class); err != nil {
				return nil, topologyError(err, "density")
			}
		}
	}
	return b.Build(), nil
}

func topologyError(err error, format string, args ...any) error {
	return hserrors.Wrap(hserrors.ErrCodeInvalidConfiguration, err, "topology "+format, args...)
}

// ResultTTL parses the cache ttl, defaulting to [cache.ResultTTL].
func (c Cache) ResultTTL() (time.Duration, error) {
	if c.TTL == "" {
		return cache.ResultTTL, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0, hserrors.New(hserrors.ErrCodeInvalidConfiguration, "cache ttl %q is not a non-negative duration", c.TTL)
	}
	return d, nil
}
