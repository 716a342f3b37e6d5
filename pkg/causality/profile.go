// Package causality holds the causality profile used by the splitter.
//
// A [Profile] bundles the multiplicity threshold, the global time window,
// the asymmetric time cone and three ring-indexed limit tables, one per
// [honeycomb.Density] class. Each table is a flat sequence of
// (lower, upper) pairs in nanoseconds; pair k bounds the time difference
// of two hits whose strings sit in ring k of each other.
//
// Profiles are validated once by [New] and are immutable afterwards, so a
// single profile can be shared by any number of concurrent splits. The
// limit tables are calibration input; this package never derives or
// extrapolates them.
package causality

import (
	"errors"
	"fmt"
	"math"
	"slices"

	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	"github.com/matzehuels/hivesplit/pkg/honeycomb"
)

// ErrRingOutOfRange is the cause of lookups past the end of a limit table.
var ErrRingOutOfRange = errors.New("ring beyond limit table")

// Mode selects how surviving subevents are reported.
type Mode int

const (
	// Split reports every surviving subevent separately.
	Split Mode = iota
	// Unify merges all surviving subevents into a single group.
	Unify
)

func (m Mode) String() string {
	switch m {
	case Split:
		return "split"
	case Unify:
		return "unify"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses "split" or "unify". The empty string yields Split.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "split":
		return Split, nil
	case "unify":
		return Unify, nil
	}
	return Split, hserrors.New(hserrors.ErrCodeInvalidConfiguration, "unknown mode %q (want split or unify)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m != Split && m != Unify {
		return nil, hserrors.New(hserrors.ErrCodeInvalidConfiguration, "unknown mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Config is the raw, unvalidated form of a profile. All times are in ns.
type Config struct {
	Name string

	// Multiplicity is the minimum number of hits a subevent must hold.
	Multiplicity int
	// TimeWindow is the maximum span of a subevent.
	TimeWindow float64
	// TimeConeMinus and TimeConePlus clip every ring window to
	// [-TimeConeMinus, +TimeConePlus].
	TimeConeMinus float64
	TimeConePlus  float64

	// DOMSpacings enables the module-number allowance check. When set,
	// DOMSpacingLimits[k] is the largest |ΔOM| allowed between hits on
	// strings in ring k of each other.
	DOMSpacings      bool
	DOMSpacingLimits []int

	Mode Mode

	SingleDenseRingLimits []float64
	DoubleDenseRingLimits []float64
	TripleDenseRingLimits []float64
}

// Window is a closed interval of allowed time differences.
type Window struct {
	Lower, Upper float64
}

// Contains reports whether dt lies in the window.
func (w Window) Contains(dt float64) bool { return dt >= w.Lower && dt <= w.Upper }

// Profile is a validated, immutable causality configuration.
type Profile struct {
	cfg Config

	// windows[d][k] is ring k's table window clipped to the time cone.
	windows [3][]Window
}

// New validates cfg and returns the profile. Any defect is reported as an
// INVALID_CONFIGURATION error. Empty double or triple tables fall back to
// the single-dense table.
func New(cfg Config) (*Profile, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	p := &Profile{cfg: cloneConfig(cfg)}
	for _, d := range honeycomb.Densities {
		table := p.table(d)
		ws := make([]Window, len(table)/2)
		for k := range ws {
			ws[k] = Window{
				Lower: math.Max(table[2*k], -cfg.TimeConeMinus),
				Upper: math.Min(table[2*k+1], cfg.TimeConePlus),
			}
		}
		p.windows[d] = ws
	}
	return p, nil
}

func invalid(format string, args ...any) error {
	return hserrors.New(hserrors.ErrCodeInvalidConfiguration, format, args...)
}

func validate(cfg Config) error {
	if cfg.Multiplicity < 1 {
		return invalid("multiplicity must be at least 1, got %d", cfg.Multiplicity)
	}
	if !(cfg.TimeWindow > 0) || math.IsInf(cfg.TimeWindow, 0) {
		return invalid("time window must be positive and finite, got %v", cfg.TimeWindow)
	}
	if !(cfg.TimeConeMinus >= 0) || math.IsInf(cfg.TimeConeMinus, 0) {
		return invalid("time cone minus must be non-negative and finite, got %v", cfg.TimeConeMinus)
	}
	if !(cfg.TimeConePlus >= 0) || math.IsInf(cfg.TimeConePlus, 0) {
		return invalid("time cone plus must be non-negative and finite, got %v", cfg.TimeConePlus)
	}
	if cfg.Mode != Split && cfg.Mode != Unify {
		return invalid("unknown mode %d", int(cfg.Mode))
	}
	if len(cfg.SingleDenseRingLimits) == 0 {
		return invalid("single dense ring limits must not be empty")
	}

	tables := map[honeycomb.Density][]float64{
		honeycomb.Single: cfg.SingleDenseRingLimits,
		honeycomb.Double: cfg.DoubleDenseRingLimits,
		honeycomb.Triple: cfg.TripleDenseRingLimits,
	}
	depth := 0
	for _, d := range honeycomb.Densities {
		table := tables[d]
		if len(table)%2 != 0 {
			return invalid("%s dense ring limits must hold (lower, upper) pairs, got %d values", d, len(table))
		}
		for k := 0; k < len(table); k += 2 {
			lo, hi := table[k], table[k+1]
			if math.IsNaN(lo) || math.IsNaN(hi) {
				return invalid("%s dense ring %d limit is NaN", d, k/2)
			}
			if lo > hi {
				return invalid("%s dense ring %d lower bound %v exceeds upper bound %v", d, k/2, lo, hi)
			}
		}
		depth = max(depth, len(table)/2)
	}

	if cfg.DOMSpacings {
		if len(cfg.DOMSpacingLimits) < depth {
			return invalid("dom spacing limits cover %d rings, limit tables need %d", len(cfg.DOMSpacingLimits), depth)
		}
		for k, v := range cfg.DOMSpacingLimits {
			if v < 0 {
				return invalid("dom spacing limit for ring %d is negative", k)
			}
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	cfg.DOMSpacingLimits = slices.Clone(cfg.DOMSpacingLimits)
	cfg.SingleDenseRingLimits = slices.Clone(cfg.SingleDenseRingLimits)
	cfg.DoubleDenseRingLimits = slices.Clone(cfg.DoubleDenseRingLimits)
	cfg.TripleDenseRingLimits = slices.Clone(cfg.TripleDenseRingLimits)
	return cfg
}

func (p *Profile) table(d honeycomb.Density) []float64 {
	switch d {
	case honeycomb.Double:
		if len(p.cfg.DoubleDenseRingLimits) > 0 {
			return p.cfg.DoubleDenseRingLimits
		}
	case honeycomb.Triple:
		if len(p.cfg.TripleDenseRingLimits) > 0 {
			return p.cfg.TripleDenseRingLimits
		}
	}
	return p.cfg.SingleDenseRingLimits
}

// Name returns the profile's name.
func (p *Profile) Name() string { return p.cfg.Name }

// Multiplicity returns the minimum subevent size.
func (p *Profile) Multiplicity() int { return p.cfg.Multiplicity }

// TimeWindow returns the maximum subevent span in ns.
func (p *Profile) TimeWindow() float64 { return p.cfg.TimeWindow }

// TimeCone returns the look-back and look-ahead bounds in ns.
func (p *Profile) TimeCone() (minus, plus float64) {
	return p.cfg.TimeConeMinus, p.cfg.TimeConePlus
}

// DOMSpacings reports whether the module-number allowance is enforced.
func (p *Profile) DOMSpacings() bool { return p.cfg.DOMSpacings }

// Mode returns the reporting mode.
func (p *Profile) Mode() Mode { return p.cfg.Mode }

// Config returns a copy of the configuration the profile was built from.
func (p *Profile) Config() Config { return cloneConfig(p.cfg) }

// MaxRing returns the deepest ring covered by the table for d.
func (p *Profile) MaxRing(d honeycomb.Density) int { return len(p.windows[d]) - 1 }

// RingTimeLimit returns the raw (lower, upper) table entry for ring of
// density class d. Rings outside the table are an INVALID_CONFIGURATION
// error wrapping [ErrRingOutOfRange].
func (p *Profile) RingTimeLimit(d honeycomb.Density, ring int) (lower, upper float64, err error) {
	if d < honeycomb.Single || d > honeycomb.Triple {
		return 0, 0, invalid("unknown density class %d", int(d))
	}
	table := p.table(d)
	if ring < 0 || ring > len(table)/2-1 {
		return 0, 0, hserrors.Wrap(hserrors.ErrCodeInvalidConfiguration, ErrRingOutOfRange,
			"%s dense ring %d (table covers 0..%d)", d, ring, len(table)/2-1)
	}
	return table[2*ring], table[2*ring+1], nil
}

// CausalWindow returns the ring window for d clipped to the time cone.
// The second result is false when ring lies beyond the table, meaning the
// two strings are out of causal reach.
func (p *Profile) CausalWindow(d honeycomb.Density, ring int) (Window, bool) {
	if d < honeycomb.Single || d > honeycomb.Triple {
		return Window{}, false
	}
	ws := p.windows[d]
	if ring < 0 || ring >= len(ws) {
		return Window{}, false
	}
	return ws[ring], true
}

// ConeWindow returns the bare time cone [-minus, +plus]. It governs pairs of
// hits on the same module, where no ring table applies.
func (p *Profile) ConeWindow() Window {
	return Window{Lower: -p.cfg.TimeConeMinus, Upper: p.cfg.TimeConePlus}
}

// DOMSpacingLimit returns the largest allowed |ΔOM| for ring.
func (p *Profile) DOMSpacingLimit(ring int) (int, error) {
	if ring < 0 || ring >= len(p.cfg.DOMSpacingLimits) {
		return 0, hserrors.Wrap(hserrors.ErrCodeInvalidConfiguration, ErrRingOutOfRange,
			"dom spacing ring %d (table covers 0..%d)", ring, len(p.cfg.DOMSpacingLimits)-1)
	}
	return p.cfg.DOMSpacingLimits[ring], nil
}
