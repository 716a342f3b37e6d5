// Package split partitions a readout's hits into causally connected
// subevents.
//
// # Overview
//
// A [Clusterer] combines a detector [omkey.Layout], a ring
// [honeycomb.Topology] and a [causality.Profile]. It is immutable once
// built and can serve any number of readouts concurrently; every call to
// [Split] allocates its own working set.
//
// # Direct Connection
//
// Two hits a (earlier) and b are directly connected when, with
// dt = b.time - a.time:
//
//   - they sit on the same module and dt lies in the bare time cone, or
//   - b's string lies in ring k of a's string, k is covered by the profile's
//     table for the pair's density class, the module-number difference is
//     within the ring's allowance (when enabled), and dt lies in the ring
//     window clipped to the time cone.
//
// # Algorithm
//
// Hits are ordered by (time, dense module index, input position) and
// streamed once. Each incoming hit is tested against every member of every
// active cluster; all clusters it connects to are merged together with it.
// A cluster stays active while the incoming hit is within the profile's
// time window of the cluster's first hit, after which it is finalized.
// Finalized clusters below the multiplicity threshold are reported as
// noise. In [causality.Unify] mode the surviving subevents are merged into
// a single group.
//
// Hits whose module key falls outside the layout, or whose time or charge
// is not finite, are rejected before clustering and listed in [Result.Rejected].
//
// # Determinism
//
// For identical input and configuration the output, including the order of
// subevents and of hits within them, is identical across runs.
package split
