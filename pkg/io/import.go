package io

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	"github.com/matzehuels/hivesplit/pkg/omkey"
	"github.com/matzehuels/hivesplit/pkg/split"
)

// Readout is one decoded readout.
type Readout struct {
	ID   string      `json:"id"`
	Hits []split.Hit `json:"hits"`
}

type readout struct {
	ID   string `json:"id"`
	Hits []hit  `json:"hits"`
}

type hit struct {
	String int     `json:"string"`
	OM     int     `json:"om"`
	Time   float64 `json:"time"`
	Charge float64 `json:"charge,omitempty"`
}

// ReadReadouts decodes every readout in r. See the package documentation
// for the accepted layouts. Malformed JSON and invalid readout ids are
// INVALID_INPUT errors naming the offending readout. Hit keys are not
// checked here; the splitter reports out-of-layout hits as rejected.
func ReadReadouts(r io.Reader) ([]Readout, error) {
	dec := json.NewDecoder(r)
	var out []Readout

	for n := 0; ; n++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, hserrors.Wrap(hserrors.ErrCodeInvalidInput, err, "decode readout %d", n)
		}

		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '[' {
			var batch []readout
			if err := json.Unmarshal(raw, &batch); err != nil {
				return nil, hserrors.Wrap(hserrors.ErrCodeInvalidInput, err, "decode readout array")
			}
			for i, rd := range batch {
				ro, err := rd.convert(len(out) + i)
				if err != nil {
					return nil, err
				}
				out = append(out, ro)
			}
			continue
		}

		var rd readout
		if err := json.Unmarshal(raw, &rd); err != nil {
			return nil, hserrors.Wrap(hserrors.ErrCodeInvalidInput, err, "decode readout %d", len(out))
		}
		ro, err := rd.convert(len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, ro)
	}
	return out, nil
}

func (rd readout) convert(pos int) (Readout, error) {
	if rd.ID != "" {
		if err := hserrors.ValidateReadoutID(rd.ID); err != nil {
			return Readout{}, fmt.Errorf("readout %d: %w", pos, err)
		}
	}
	hits := make([]split.Hit, len(rd.Hits))
	for i, h := range rd.Hits {
		hits[i] = split.Hit{
			Key:    omkey.Key{Str: h.String, OM: h.OM},
			Time:   h.Time,
			Charge: h.Charge,
		}
	}
	return Readout{ID: rd.ID, Hits: hits}, nil
}

// ImportReadouts reads the JSON file at path. See [ReadReadouts].
func ImportReadouts(path string) ([]Readout, error) {
	if err := hserrors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, hserrors.Wrap(hserrors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadReadouts(f)
}
