package split_test

import (
	"fmt"

	"github.com/matzehuels/hivesplit/pkg/causality"
	"github.com/matzehuels/hivesplit/pkg/honeycomb"
	"github.com/matzehuels/hivesplit/pkg/omkey"
	"github.com/matzehuels/hivesplit/pkg/split"
)

func Example() {
	b := honeycomb.NewBuilder()
	_ = b.MutualAdd(36, 35, 1)
	topo := b.Build()

	profile, _ := causality.New(causality.Config{
		Multiplicity:          2,
		TimeWindow:            2000,
		TimeConeMinus:         1000,
		TimeConePlus:          1000,
		SingleDenseRingLimits: []float64{-300, 300, -400, 400},
	})
	c, _ := split.New(omkey.IceCube, topo, profile)

	hits := []split.Hit{
		{Key: omkey.Key{Str: 36, OM: 30}, Time: 10000, Charge: 1.2},
		{Key: omkey.Key{Str: 35, OM: 31}, Time: 10120, Charge: 0.8},
		{Key: omkey.Key{Str: 36, OM: 31}, Time: 10060, Charge: 2.0},
		{Key: omkey.Key{Str: 35, OM: 12}, Time: 14000, Charge: 0.4},
	}
	res := c.SplitHits(hits)
	for i, s := range res.Subevents {
		fmt.Printf("subevent %d: hits %v, %d strings\n", i, s.Hits, s.Strings)
	}
	fmt.Println("noise:", len(res.Noise))
	// Output:
	// subevent 0: hits [0 2 1], 2 strings
	// noise: 1
}
