package split

import "github.com/matzehuels/hivesplit/pkg/omkey"

// Pulse is the minimal capability the clusterer needs from a hit record.
// Any hit representation can be split by implementing it.
type Pulse interface {
	HitKey() omkey.Key
	HitTime() float64
	HitCharge() float64
}

// Hit is the canonical hit record. Times are in ns.
type Hit struct {
	Key    omkey.Key `json:"key" bson:"key"`
	Time   float64   `json:"time" bson:"time"`
	Charge float64   `json:"charge" bson:"charge"`
}

func (h Hit) HitKey() omkey.Key  { return h.Key }
func (h Hit) HitTime() float64   { return h.Time }
func (h Hit) HitCharge() float64 { return h.Charge }

// Select returns the elements of pulses at the given indices, in order.
// It is the usual way to materialize a subevent from [Subevent.Hits].
func Select[P any](pulses []P, indices []int) []P {
	out := make([]P, len(indices))
	for i, idx := range indices {
		out[i] = pulses[idx]
	}
	return out
}
