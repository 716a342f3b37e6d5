// Package io provides JSON import and export for detector readouts and
// split results.
//
// # Readout Format
//
// A readout is one time-ordered (or unordered) list of hits:
//
//	{
//	  "id": "run-120398/event-17",
//	  "hits": [
//	    {"string": 36, "om": 30, "time": 10012.5, "charge": 1.2},
//	    {"string": 35, "om": 31, "time": 10140.0, "charge": 0.8}
//	  ]
//	}
//
// Times are in nanoseconds. "charge" is optional and defaults to zero.
// "id" is optional; the pipeline assigns one when it is missing.
//
// An input stream may hold a single readout, a JSON array of readouts, or
// a sequence of readout objects separated by whitespace (JSON Lines).
//
// # Output Format
//
// [WriteOutputs] writes one [Output] per readout. Hits are referred to by
// their position in the readout's "hits" array:
//
//	{
//	  "readout_id": "run-120398/event-17",
//	  "run_id": "5d1c...",
//	  "result": {
//	    "mode": "split",
//	    "subevents": [{"hits": [0, 1], "start": 10012.5, ...}],
//	    "input": 2
//	  }
//	}
package io
