package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromHooks implements every hook interface on Prometheus collectors.
type PromHooks struct {
	splits       *prometheus.CounterVec
	splitLatency prometheus.Histogram
	subevents    prometheus.Histogram
	hits         *prometheus.CounterVec
	cache        *prometheus.CounterVec
	cacheBytes   prometheus.Counter
	requests     *prometheus.CounterVec
	reqLatency   *prometheus.HistogramVec
}

// NewPromHooks creates the collectors and registers them with reg.
func NewPromHooks(reg prometheus.Registerer) *PromHooks {
	f := promauto.With(reg)
	return &PromHooks{
		splits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hivesplit_splits_total",
			Help: "Readouts split, by result",
		}, []string{"result"}),
		splitLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hivesplit_split_duration_seconds",
			Help:    "Time to split one readout",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),
		subevents: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hivesplit_subevents_per_readout",
			Help:    "Subevents produced per readout",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		hits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hivesplit_hits_total",
			Help: "Hits processed, by fate",
		}, []string{"fate"}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hivesplit_cache_events_total",
			Help: "Cache events by key type and outcome",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "hivesplit_cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hivesplit_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		reqLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hivesplit_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (p *PromHooks) OnSplitStart(context.Context, string, int) {}

func (p *PromHooks) OnSplitComplete(_ context.Context, _ string, s SplitStats, d time.Duration, err error) {
	if err != nil {
		p.splits.WithLabelValues("error").Inc()
		return
	}
	p.splits.WithLabelValues("ok").Inc()
	p.splitLatency.Observe(d.Seconds())
	p.subevents.Observe(float64(s.Subevents))
	p.hits.WithLabelValues("rejected").Add(float64(s.Rejected))
	p.hits.WithLabelValues("accepted").Add(float64(s.Hits - s.Rejected))
}

func (p *PromHooks) OnCacheHit(_ context.Context, keyType string) {
	p.cache.WithLabelValues(keyType, "hit").Inc()
}

func (p *PromHooks) OnCacheMiss(_ context.Context, keyType string) {
	p.cache.WithLabelValues(keyType, "miss").Inc()
}

func (p *PromHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cache.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.Add(float64(size))
}

func (p *PromHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.reqLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ SplitHooks = (*PromHooks)(nil)
	_ CacheHooks = (*PromHooks)(nil)
	_ HTTPHooks  = (*PromHooks)(nil)
)
