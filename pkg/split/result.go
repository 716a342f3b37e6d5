package split

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/hivesplit/pkg/causality"
)

// Subevent is one group of causally connected hits.
type Subevent struct {
	// Hits holds indices into the caller's input slice, in time order.
	Hits []int `json:"hits" bson:"hits"`

	Start    float64 `json:"start" bson:"start"`
	End      float64 `json:"end" bson:"end"`
	Charge   float64 `json:"charge" bson:"charge"`
	MeanTime float64 `json:"mean_time" bson:"mean_time"` // charge weighted when charges are positive
	TimeRMS  float64 `json:"time_rms" bson:"time_rms"`
	Strings  int     `json:"strings" bson:"strings"`
	Modules  int     `json:"modules" bson:"modules"`
}

// Len returns the number of hits.
func (s Subevent) Len() int { return len(s.Hits) }

// Duration returns End - Start.
func (s Subevent) Duration() float64 { return s.End - s.Start }

// Result is the outcome of splitting one readout.
type Result struct {
	Mode causality.Mode `json:"mode" bson:"mode"`

	// Subevents are the surviving groups, ordered by their first hit.
	Subevents []Subevent `json:"subevents" bson:"subevents"`

	// Noise holds finalized clusters below the multiplicity threshold.
	Noise []Subevent `json:"noise,omitempty" bson:"noise,omitempty"`

	// Rejected lists input indices dropped before clustering because their
	// module key was outside the layout or their time or charge was not
	// finite.
	Rejected []int `json:"rejected,omitempty" bson:"rejected,omitempty"`

	// Input is the length of the input slice.
	Input int `json:"input" bson:"input"`
}

// Len returns the number of subevents.
func (r *Result) Len() int { return len(r.Subevents) }

// Masks returns one inclusion mask per subevent over the input slice.
func (r *Result) Masks() [][]bool {
	masks := make([][]bool, len(r.Subevents))
	for i, s := range r.Subevents {
		m := make([]bool, r.Input)
		for _, h := range s.Hits {
			m[h] = true
		}
		masks[i] = m
	}
	return masks
}

// Assignment returns, for every input index, the subevent it belongs to or
// -1 for noise and rejected hits.
func (r *Result) Assignment() []int {
	out := make([]int, r.Input)
	for i := range out {
		out[i] = -1
	}
	for i, s := range r.Subevents {
		for _, h := range s.Hits {
			out[h] = i
		}
	}
	return out
}

// summarize fills the bookkeeping fields of a subevent from its members.
func summarize(members []*node) Subevent {
	s := Subevent{Hits: make([]int, len(members))}
	if len(members) == 0 {
		return s
	}

	times := make([]float64, len(members))
	weights := make([]float64, len(members))
	positive := true
	strs := make(map[int]struct{})
	mods := make(map[uint32]struct{})
	for i, n := range members {
		s.Hits[i] = n.pos
		times[i] = n.t
		weights[i] = n.q
		s.Charge += n.q
		if n.q <= 0 {
			positive = false
		}
		strs[n.key.Str] = struct{}{}
		mods[uint32(n.idx)] = struct{}{}
	}
	if !positive {
		weights = nil
	}

	s.Start = members[0].t
	s.End = members[len(members)-1].t
	s.MeanTime = stat.Mean(times, weights)
	if len(members) > 1 {
		s.TimeRMS = math.Sqrt(stat.PopVariance(times, weights))
	}
	s.Strings = len(strs)
	s.Modules = len(mods)
	return s
}
