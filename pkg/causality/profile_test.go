package causality

import (
	"errors"
	"math"
	"testing"

	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	"github.com/matzehuels/hivesplit/pkg/honeycomb"
)

func validConfig() Config {
	return Config{
		Name:                  "test",
		Multiplicity:          2,
		TimeWindow:            2000,
		TimeConeMinus:         1000,
		TimeConePlus:          1000,
		SingleDenseRingLimits: []float64{-300, 300, -500, 500, -1500, 1500},
		DoubleDenseRingLimits: []float64{-200, 200, -400, 400},
	}
}

func TestNewValid(t *testing.T) {
	p, err := New(validConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Multiplicity() != 2 || p.TimeWindow() != 2000 || p.Name() != "test" {
		t.Errorf("accessors returned %d, %v, %q", p.Multiplicity(), p.TimeWindow(), p.Name())
	}
	if minus, plus := p.TimeCone(); minus != 1000 || plus != 1000 {
		t.Errorf("TimeCone() = %v, %v", minus, plus)
	}
	if p.Mode() != Split {
		t.Errorf("Mode() = %v, want split", p.Mode())
	}
}

func TestNewRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero multiplicity", func(c *Config) { c.Multiplicity = 0 }},
		{"zero window", func(c *Config) { c.TimeWindow = 0 }},
		{"negative window", func(c *Config) { c.TimeWindow = -5 }},
		{"nan window", func(c *Config) { c.TimeWindow = math.NaN() }},
		{"infinite window", func(c *Config) { c.TimeWindow = math.Inf(1) }},
		{"negative cone minus", func(c *Config) { c.TimeConeMinus = -1 }},
		{"negative cone plus", func(c *Config) { c.TimeConePlus = -1 }},
		{"empty single table", func(c *Config) { c.SingleDenseRingLimits = nil }},
		{"odd single table", func(c *Config) { c.SingleDenseRingLimits = []float64{-1, 1, 2} }},
		{"odd triple table", func(c *Config) { c.TripleDenseRingLimits = []float64{1} }},
		{"inverted pair", func(c *Config) { c.SingleDenseRingLimits = []float64{300, -300} }},
		{"nan bound", func(c *Config) { c.DoubleDenseRingLimits = []float64{math.NaN(), 1} }},
		{"bad mode", func(c *Config) { c.Mode = Mode(9) }},
		{"short dom spacing table", func(c *Config) {
			c.DOMSpacings = true
			c.DOMSpacingLimits = []int{5, 10}
		}},
		{"negative dom spacing", func(c *Config) {
			c.DOMSpacings = true
			c.DOMSpacingLimits = []int{5, -1, 10}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			p, err := New(cfg)
			if err == nil {
				t.Fatal("New() succeeded")
			}
			if p != nil {
				t.Error("New() returned a profile alongside an error")
			}
			if !hserrors.IsConfiguration(err) {
				t.Errorf("code = %v, want %v", hserrors.GetCode(err), hserrors.ErrCodeInvalidConfiguration)
			}
		})
	}
}

func TestRingTimeLimit(t *testing.T) {
	p, _ := New(validConfig())

	tests := []struct {
		name    string
		d       honeycomb.Density
		ring    int
		lo, hi  float64
		wantErr bool
	}{
		{"single ring 0", honeycomb.Single, 0, -300, 300, false},
		{"single ring 2", honeycomb.Single, 2, -1500, 1500, false},
		{"single ring 3", honeycomb.Single, 3, 0, 0, true},
		{"negative ring", honeycomb.Single, -1, 0, 0, true},
		{"double ring 1", honeycomb.Double, 1, -400, 400, false},
		{"double ring 2", honeycomb.Double, 2, 0, 0, true},
		{"triple falls back to single", honeycomb.Triple, 2, -1500, 1500, false},
		{"unknown density", honeycomb.Density(5), 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, err := p.RingTimeLimit(tt.d, tt.ring)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !hserrors.IsConfiguration(err) {
					t.Errorf("code = %v", hserrors.GetCode(err))
				}
				return
			}
			if lo != tt.lo || hi != tt.hi {
				t.Errorf("RingTimeLimit = (%v, %v), want (%v, %v)", lo, hi, tt.lo, tt.hi)
			}
		})
	}

	if _, _, err := p.RingTimeLimit(honeycomb.Single, 3); !errors.Is(err, ErrRingOutOfRange) {
		t.Errorf("out of range error %v does not wrap ErrRingOutOfRange", err)
	}
}

func TestCausalWindowClipsToCone(t *testing.T) {
	p, _ := New(validConfig())

	w, ok := p.CausalWindow(honeycomb.Single, 2)
	if !ok {
		t.Fatal("ring 2 out of reach")
	}
	if w.Lower != -1000 || w.Upper != 1000 {
		t.Errorf("window = %+v, want [-1000, 1000]", w)
	}

	w, _ = p.CausalWindow(honeycomb.Single, 0)
	if w.Lower != -300 || w.Upper != 300 {
		t.Errorf("window = %+v, want [-300, 300]", w)
	}
	if !w.Contains(300) || w.Contains(300.5) || !w.Contains(-300) {
		t.Error("Contains is not a closed interval")
	}

	if _, ok := p.CausalWindow(honeycomb.Single, 3); ok {
		t.Error("ring 3 reported in reach")
	}
	if p.MaxRing(honeycomb.Single) != 2 || p.MaxRing(honeycomb.Double) != 1 {
		t.Errorf("MaxRing = %d/%d", p.MaxRing(honeycomb.Single), p.MaxRing(honeycomb.Double))
	}

	cone := p.ConeWindow()
	if cone.Lower != -1000 || cone.Upper != 1000 {
		t.Errorf("ConeWindow = %+v", cone)
	}
}

func TestDOMSpacingLimit(t *testing.T) {
	cfg := validConfig()
	cfg.DOMSpacings = true
	cfg.DOMSpacingLimits = []int{10, 6, 3}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !p.DOMSpacings() {
		t.Error("DOMSpacings() = false")
	}
	if v, err := p.DOMSpacingLimit(1); err != nil || v != 6 {
		t.Errorf("DOMSpacingLimit(1) = %d, %v", v, err)
	}
	if _, err := p.DOMSpacingLimit(3); !errors.Is(err, ErrRingOutOfRange) {
		t.Errorf("DOMSpacingLimit(3) err = %v", err)
	}
}

func TestProfileIsImmutable(t *testing.T) {
	cfg := validConfig()
	p, _ := New(cfg)
	cfg.SingleDenseRingLimits[0] = -1

	if lo, _, _ := p.RingTimeLimit(honeycomb.Single, 0); lo != -300 {
		t.Errorf("profile aliased caller table: lower = %v", lo)
	}
	out := p.Config()
	out.SingleDenseRingLimits[1] = 1
	if _, hi, _ := p.RingTimeLimit(honeycomb.Single, 0); hi != 300 {
		t.Errorf("Config() aliased internal table: upper = %v", hi)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Split, Unify} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if m, err := ParseMode(""); err != nil || m != Split {
		t.Errorf("ParseMode(\"\") = %v, %v", m, err)
	}
	if _, err := ParseMode("merge"); !hserrors.IsConfiguration(err) {
		t.Errorf("ParseMode(merge) err = %v", err)
	}
}

func TestModeText(t *testing.T) {
	var m Mode
	if err := m.UnmarshalText([]byte("unify")); err != nil || m != Unify {
		t.Errorf("UnmarshalText(unify) = %v, %v", m, err)
	}
	if b, err := Unify.MarshalText(); err != nil || string(b) != "unify" {
		t.Errorf("MarshalText = %q, %v", b, err)
	}
	if _, err := Mode(7).MarshalText(); err == nil {
		t.Error("MarshalText accepted an unknown mode")
	}
	if err := m.UnmarshalText([]byte("both")); err == nil {
		t.Error("UnmarshalText accepted an unknown mode")
	}
}
