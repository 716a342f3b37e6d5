package omkey

import (
	"errors"
	"fmt"

	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
)

// ErrOutOfRange is the cause of every identity error returned by this
// package. Check it with errors.Is.
var ErrOutOfRange = errors.New("module key out of range")

// Key is the natural identity of a detector module.
type Key struct {
	Str int `json:"string" bson:"string" toml:"string" yaml:"string"`
	OM  int `json:"om" bson:"om" toml:"om" yaml:"om"`
}

// String formats the key as "string-om", e.g. "36-12".
func (k Key) String() string { return fmt.Sprintf("%d-%d", k.Str, k.OM) }

// Index is the dense encoding of a Key within a Layout.
type Index uint32

// Layout holds the detector dimensions that bound module keys.
// The zero value has no valid keys; use [NewLayout] or [IceCube].
type Layout struct {
	maxStrings int
	maxOMs     int
}

// IceCube is the default layout: 86 strings with up to 64 modules each.
var IceCube = Layout{maxStrings: 86, maxOMs: 64}

// NewLayout returns a layout for maxStrings strings of maxOMs modules.
// Both dimensions must be positive and their product must fit an Index.
func NewLayout(maxStrings, maxOMs int) (Layout, error) {
	if maxStrings < 1 || maxOMs < 1 {
		return Layout{}, hserrors.New(hserrors.ErrCodeInvalidConfiguration,
			"layout dimensions must be positive (strings=%d, oms=%d)", maxStrings, maxOMs)
	}
	if uint64(maxStrings)*uint64(maxOMs) > 1<<32 {
		return Layout{}, hserrors.New(hserrors.ErrCodeInvalidConfiguration,
			"layout %dx%d exceeds the index range", maxStrings, maxOMs)
	}
	return Layout{maxStrings: maxStrings, maxOMs: maxOMs}, nil
}

// MaxStrings returns the highest valid string number.
func (l Layout) MaxStrings() int { return l.maxStrings }

// MaxOMs returns the highest valid module number.
func (l Layout) MaxOMs() int { return l.maxOMs }

// Size returns the number of distinct indices, MaxStrings*MaxOMs.
func (l Layout) Size() int { return l.maxStrings * l.maxOMs }

// IsHashable reports whether k lies inside the layout. It is false for
// exactly those keys ToIndex rejects.
func (l Layout) IsHashable(k Key) bool {
	return k.Str >= 1 && k.Str <= l.maxStrings && k.OM >= 1 && k.OM <= l.maxOMs
}

// ToIndex returns the dense index of k.
func (l Layout) ToIndex(k Key) (Index, error) {
	if !l.IsHashable(k) {
		return 0, hserrors.Wrap(hserrors.ErrCodeInvalidIdentity, ErrOutOfRange,
			"module %s outside layout %dx%d", k, l.maxStrings, l.maxOMs)
	}
	return Index((k.Str-1)*l.maxOMs + (k.OM - 1)), nil
}

// ToKey returns the module key encoded by i.
func (l Layout) ToKey(i Index) (Key, error) {
	if int64(i) >= int64(l.Size()) {
		return Key{}, hserrors.Wrap(hserrors.ErrCodeInvalidIdentity, ErrOutOfRange,
			"index %d outside layout %dx%d", i, l.maxStrings, l.maxOMs)
	}
	n := int(i)
	return Key{Str: n/l.maxOMs + 1, OM: n%l.maxOMs + 1}, nil
}

// MustIndex is like ToIndex but panics on an invalid key.
// It is intended for tables built from constants.
func (l Layout) MustIndex(k Key) Index {
	i, err := l.ToIndex(k)
	if err != nil {
		panic(err)
	}
	return i
}
