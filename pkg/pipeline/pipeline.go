// Package pipeline runs the splitter over readouts with caching,
// concurrency and optional persistence.
//
// The same [Runner] backs the CLI and the HTTP server, so both agree on
// cache keys, logging and metrics.
//
// # Usage
//
//	setup, _ := cfg.Build()
//	runner := pipeline.NewRunner(setup.Clusterer, setup.Hash, fileCache, nil, logger)
//	outputs, err := runner.RunAll(ctx, readouts, pipeline.Options{Workers: 8})
//
// Each readout is split independently. Outputs are returned in input
// order regardless of the number of workers.
package pipeline

import (
	"context"
	"runtime"

	pkgio "github.com/matzehuels/hivesplit/pkg/io"
)

// DefaultWorkers is used when Options.Workers is zero.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// Options controls one batch.
type Options struct {
	// Workers bounds the number of readouts split concurrently.
	Workers int

	// Refresh skips cache lookups. Fresh results are still written.
	Refresh bool

	// RunID labels the batch. A random UUID is used when empty.
	RunID string

	// OnDone, when set, is called once per finished readout. RunAll calls
	// it from worker goroutines, so it must be safe for concurrent use.
	OnDone func(pkgio.Output)
}

func (o *Options) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
}

// Sink receives the outputs of every completed batch.
type Sink interface {
	Save(ctx context.Context, outputs []pkgio.Output) error
}
