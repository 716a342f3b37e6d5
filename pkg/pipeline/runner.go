package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/hivesplit/pkg/cache"
	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	pkgio "github.com/matzehuels/hivesplit/pkg/io"
	"github.com/matzehuels/hivesplit/pkg/observability"
	"github.com/matzehuels/hivesplit/pkg/split"
)

const resultKeyType = "result"

// Runner splits readouts with caching. It holds no per-run state, so one
// Runner may serve concurrent batches.
type Runner struct {
	Clusterer  *split.Clusterer
	ConfigHash string

	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	Logger *log.Logger

	// Sink, when set, receives every completed batch.
	Sink Sink
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// means [cache.DefaultKeyer] and a nil logger means log.Default().
func NewRunner(c *split.Clusterer, configHash string, store cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if store == nil {
		store = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Clusterer:  c,
		ConfigHash: configHash,
		Cache:      store,
		Keyer:      keyer,
		TTL:        cache.ResultTTL,
		Logger:     logger,
	}
}

// Run splits a single readout. A readout without an id gets a random one.
func (r *Runner) Run(ctx context.Context, ro pkgio.Readout, opts Options) (pkgio.Output, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if ro.ID == "" {
		ro.ID = uuid.NewString()
	}
	return r.run(ctx, ro, opts)
}

// RunAll splits readouts concurrently and returns their outputs in input
// order. The first error cancels the remaining work. Readouts without an
// id are named "<run id>/<position>".
func (r *Runner) RunAll(ctx context.Context, readouts []pkgio.Readout, opts Options) ([]pkgio.Output, error) {
	opts.setDefaults()
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	start := time.Now()

	outputs := make([]pkgio.Output, len(readouts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, ro := range readouts {
		if ro.ID == "" {
			ro.ID = fmt.Sprintf("%s/%d", opts.RunID, i)
		}
		g.Go(func() error {
			out, err := r.run(gctx, ro, opts)
			if err != nil {
				return fmt.Errorf("readout %s: %w", ro.ID, err)
			}
			outputs[i] = out
			if opts.OnDone != nil {
				opts.OnDone(out)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if r.Sink != nil {
		if err := r.Sink.Save(ctx, outputs); err != nil {
			return nil, fmt.Errorf("save results: %w", err)
		}
	}

	subevents, cached := 0, 0
	for _, o := range outputs {
		subevents += o.Result.Len()
		if o.Cached {
			cached++
		}
	}
	r.Logger.Info("split batch",
		"run", opts.RunID,
		"readouts", len(outputs),
		"subevents", subevents,
		"cached", cached,
		"duration", time.Since(start))
	return outputs, nil
}

func (r *Runner) run(ctx context.Context, ro pkgio.Readout, opts Options) (pkgio.Output, error) {
	if err := ctx.Err(); err != nil {
		return pkgio.Output{}, err
	}
	if r.Clusterer == nil {
		return pkgio.Output{}, hserrors.New(hserrors.ErrCodeInvalidConfiguration, "runner has no clusterer")
	}
	if err := hserrors.ValidateReadoutID(ro.ID); err != nil {
		return pkgio.Output{}, err
	}

	out := pkgio.Output{ReadoutID: ro.ID, RunID: opts.RunID, ConfigHash: r.ConfigHash}

	// Readouts with non-finite times or charges cannot be encoded and are
	// not cached.
	var key string
	if readoutHash, err := cache.HashJSON(ro.Hits); err == nil {
		key = r.Keyer.ResultKey(readoutHash, r.ConfigHash)
	}

	if key != "" && !opts.Refresh {
		if res, ok := r.lookup(ctx, key); ok {
			out.Result = res
			out.Cached = true
			r.Logger.Debug("cache hit", "readout", ro.ID, "subevents", res.Len())
			return out, nil
		}
	}

	observability.Split().OnSplitStart(ctx, ro.ID, len(ro.Hits))
	start := time.Now()
	res := r.Clusterer.SplitHits(ro.Hits)
	elapsed := time.Since(start)
	observability.Split().OnSplitComplete(ctx, ro.ID, observability.SplitStats{
		Hits:      len(ro.Hits),
		Subevents: res.Len(),
		Noise:     len(res.Noise),
		Rejected:  len(res.Rejected),
	}, elapsed, nil)

	if len(res.Rejected) > 0 {
		r.Logger.Warn("rejected hits", "readout", ro.ID, "count", len(res.Rejected))
	}
	r.Logger.Debug("split readout",
		"readout", ro.ID,
		"hits", len(ro.Hits),
		"subevents", res.Len(),
		"noise", len(res.Noise),
		"duration", elapsed)

	if key != "" {
		r.store(ctx, key, res)
	}
	out.Result = res
	return out, nil
}

// lookup treats backend errors and undecodable entries as misses.
func (r *Runner) lookup(ctx context.Context, key string) (*split.Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, resultKeyType)
		return nil, false
	}
	var res split.Result
	if err := json.Unmarshal(data, &res); err != nil {
		observability.Cache().OnCacheMiss(ctx, resultKeyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, resultKeyType)
	return &res, true
}

func (r *Runner) store(ctx context.Context, key string, res *split.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, resultKeyType, len(data))
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
