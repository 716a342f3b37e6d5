package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/hivesplit/pkg/split"
)

// Output is the split result of one readout together with its provenance.
type Output struct {
	ReadoutID  string        `json:"readout_id" bson:"readout_id"`
	RunID      string        `json:"run_id" bson:"run_id"`
	ConfigHash string        `json:"config_hash,omitempty" bson:"config_hash"`
	Cached     bool          `json:"cached,omitempty" bson:"-"`
	Result     *split.Result `json:"result" bson:"result"`
}

// WriteReadouts encodes readouts in the array layout accepted by
// [ReadReadouts].
func WriteReadouts(readouts []Readout, w io.Writer) error {
	out := make([]readout, len(readouts))
	for i, ro := range readouts {
		hits := make([]hit, len(ro.Hits))
		for j, h := range ro.Hits {
			hits[j] = hit{String: h.Key.Str, OM: h.Key.OM, Time: h.Time, Charge: h.Charge}
		}
		out[i] = readout{ID: ro.ID, Hits: hits}
	}
	return encode(out, w)
}

// WriteOutputs encodes outputs as an indented JSON array.
func WriteOutputs(outputs []Output, w io.Writer) error {
	if outputs == nil {
		outputs = []Output{}
	}
	return encode(outputs, w)
}

// ExportOutputs writes outputs to a JSON file at path.
func ExportOutputs(outputs []Output, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteOutputs(outputs, f)
}

func encode(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
