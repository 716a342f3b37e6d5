// Package omkey maps detector module keys to dense array indices.
//
// A module is identified by its string number and its module (OM) number
// on that string, both 1-based. Many splitter tables are plain slices
// indexed by module, so keys are converted to a dense [Index] in
// [0, MaxStrings*MaxOMs):
//
//	index = (string-1)*MaxOMs + (om-1)
//
// The bounds are carried by an immutable [Layout] value rather than global
// constants. [IceCube] is the layout used by default.
//
//	idx, err := omkey.IceCube.ToIndex(omkey.Key{Str: 36, OM: 12})
//	key, err := omkey.IceCube.ToKey(idx)
//
// Out-of-range keys and indices are rejected with an INVALID_IDENTITY
// error wrapping [ErrOutOfRange]; they are never wrapped around. Use
// [Layout.IsHashable] to test a key without allocating an error.
//
// All functions are pure and safe for concurrent use.
package omkey
