// Package config loads a splitter run configuration from TOML or YAML.
//
// A configuration names the detector layout, the causality profile, the
// ring topology and, optionally, the cache, store and server settings of
// the host process:
//
//	[detector]
//	max_strings = 86
//	max_oms = 64
//
//	[profile]
//	multiplicity = 4
//	time_window = 2000.0
//	time_cone_minus = 1000.0
//	time_cone_plus = 1000.0
//	single_dense_ring_limits = [-300.0, 300.0, -400.0, 400.0]
//
//	[topology.geometry]
//	grid = { rows = 9, cols = 9 }
//	spacing = 125.0
//	max_ring = 2
//
// Ring limit tables are calibration input. This package never fills them
// in.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
)

// Format is a configuration file syntax.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
)

// File is the decoded configuration file.
type File struct {
	Detector Detector `json:"detector" toml:"detector" yaml:"detector"`
	Profile  Profile  `json:"profile" toml:"profile" yaml:"profile" validate:"required"`
	Topology Topology `json:"topology" toml:"topology" yaml:"topology"`

	Cache  Cache  `json:"-" toml:"cache" yaml:"cache"`
	Store  Store  `json:"-" toml:"store" yaml:"store"`
	Server Server `json:"-" toml:"server" yaml:"server"`
}

// Detector sets the module layout. Zero values mean 86 strings of 64 OMs.
type Detector struct {
	MaxStrings int `json:"max_strings" toml:"max_strings" yaml:"max_strings" validate:"gte=0"`
	MaxOMs     int `json:"max_oms" toml:"max_oms" yaml:"max_oms" validate:"gte=0"`
}

// Profile is the causality profile section. Times are in ns.
type Profile struct {
	Name                  string    `json:"name" toml:"name" yaml:"name"`
	Multiplicity          int       `json:"multiplicity" toml:"multiplicity" yaml:"multiplicity" validate:"gte=1"`
	TimeWindow            float64   `json:"time_window" toml:"time_window" yaml:"time_window" validate:"gt=0"`
	TimeConeMinus         float64   `json:"time_cone_minus" toml:"time_cone_minus" yaml:"time_cone_minus" validate:"gte=0"`
	TimeConePlus          float64   `json:"time_cone_plus" toml:"time_cone_plus" yaml:"time_cone_plus" validate:"gte=0"`
	DOMSpacings           bool      `json:"dom_spacings" toml:"dom_spacings" yaml:"dom_spacings"`
	DOMSpacingLimits      []int     `json:"dom_spacing_limits" toml:"dom_spacing_limits" yaml:"dom_spacing_limits" validate:"required_if=DOMSpacings true,dive,gte=0"`
	Mode                  string    `json:"mode" toml:"mode" yaml:"mode" validate:"omitempty,oneof=split unify"`
	SingleDenseRingLimits []float64 `json:"single_dense_ring_limits" toml:"single_dense_ring_limits" yaml:"single_dense_ring_limits" validate:"required,min=2"`
	DoubleDenseRingLimits []float64 `json:"double_dense_ring_limits" toml:"double_dense_ring_limits" yaml:"double_dense_ring_limits"`
	TripleDenseRingLimits []float64 `json:"triple_dense_ring_limits" toml:"triple_dense_ring_limits" yaml:"triple_dense_ring_limits"`
}

// Topology describes the ring structure. Geometry is applied first, then
// explicit centers, then links, then density classes.
type Topology struct {
	Geometry  *Geometry      `json:"geometry,omitempty" toml:"geometry" yaml:"geometry"`
	Centers   []Center       `json:"centers,omitempty" toml:"center" yaml:"centers" validate:"dive"`
	Links     []Link         `json:"links,omitempty" toml:"link" yaml:"links" validate:"dive"`
	Densities []DensityClass `json:"densities,omitempty" toml:"density" yaml:"densities" validate:"dive"`
}

// Geometry derives rings from string positions.
type Geometry struct {
	Grid      *Grid      `json:"grid,omitempty" toml:"grid" yaml:"grid" validate:"required_without=Positions"`
	Positions []Position `json:"positions,omitempty" toml:"positions" yaml:"positions" validate:"dive"`
	Spacing   float64    `json:"spacing" toml:"spacing" yaml:"spacing" validate:"gt=0"`
	// Tolerance is the relative slack on Spacing when matching neighbours.
	Tolerance float64 `json:"tolerance" toml:"tolerance" yaml:"tolerance" validate:"gte=0,lt=1"`
	MaxRing   int     `json:"max_ring" toml:"max_ring" yaml:"max_ring" validate:"gte=1"`
}

// Grid lays strings out on a regular hexagonal grid.
type Grid struct {
	Rows int `json:"rows" toml:"rows" yaml:"rows" validate:"gte=1"`
	Cols int `json:"cols" toml:"cols" yaml:"cols" validate:"gte=1"`
}

// Position places one string.
type Position struct {
	String int     `json:"string" toml:"string" yaml:"string" validate:"gte=1"`
	X      float64 `json:"x" toml:"x" yaml:"x"`
	Y      float64 `json:"y" toml:"y" yaml:"y"`
}

// Center declares a string with explicit rings 1..n.
type Center struct {
	String int     `json:"string" toml:"string" yaml:"string" validate:"gte=1"`
	Rings  [][]int `json:"rings" toml:"rings" yaml:"rings" validate:"dive,dive,gte=1"`
}

// Link places A and B in ring Ring of each other.
type Link struct {
	A    int `json:"a" toml:"a" yaml:"a" validate:"gte=1"`
	B    int `json:"b" toml:"b" yaml:"b" validate:"gte=1,nefield=A"`
	Ring int `json:"ring" toml:"ring" yaml:"ring" validate:"gte=1"`
}

// DensityClass assigns a density class to a set of strings.
type DensityClass struct {
	Class   string `json:"class" toml:"class" yaml:"class" validate:"oneof=single double triple"`
	Strings []int  `json:"strings" toml:"strings" yaml:"strings" validate:"required,dive,gte=1"`
}

// Cache configures result caching.
type Cache struct {
	Backend   string `toml:"backend" yaml:"backend" validate:"omitempty,oneof=none file redis"`
	Dir       string `toml:"dir" yaml:"dir"`
	RedisAddr string `toml:"redis_addr" yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int    `toml:"redis_db" yaml:"redis_db" validate:"gte=0"`
	TTL       string `toml:"ttl" yaml:"ttl"`

	// Scope prefixes every key so several detectors can share a backend.
	Scope string `toml:"scope" yaml:"scope"`
}

// Store configures result persistence.
type Store struct {
	MongoURI   string `toml:"mongo_uri" yaml:"mongo_uri" validate:"omitempty,uri"`
	Database   string `toml:"database" yaml:"database"`
	Collection string `toml:"collection" yaml:"collection"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormatOf infers the file format from the path extension.
func FormatOf(path string) (Format, error) {
	if err := hserrors.ValidateExtension(path, ".toml", ".yaml", ".yml"); err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOML, nil
	}
	return YAML, nil
}

// Load reads and validates the configuration file at path.
func Load(path string) (*File, error) {
	if err := hserrors.ValidatePath(path); err != nil {
		return nil, err
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, hserrors.Wrap(hserrors.ErrCodeFileNotFound, err, "config %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode parses and validates a configuration in the given format.
// Unknown keys are rejected.
func Decode(r io.Reader, format Format) (*File, error) {
	var f File
	switch format {
	case TOML:
		md, err := toml.NewDecoder(r).Decode(&f)
		if err != nil {
			return nil, hserrors.Wrap(hserrors.ErrCodeInvalidConfiguration, err, "decode toml")
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return nil, hserrors.New(hserrors.ErrCodeInvalidConfiguration, "unknown key %q", undec[0].String())
		}
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && err != io.EOF {
			return nil, hserrors.Wrap(hserrors.ErrCodeInvalidConfiguration, err, "decode yaml")
		}
	default:
		return nil, hserrors.New(hserrors.ErrCodeUnsupported, "unknown config format %q", format)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks field-level constraints. Cross-field invariants of the
// profile and topology are checked again by their constructors in Build.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return hserrors.Wrap(hserrors.ErrCodeInvalidConfiguration, err, "invalid configuration")
	}
	return nil
}
