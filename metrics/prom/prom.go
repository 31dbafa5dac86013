// Package prom exports cache statistics as Prometheus metrics.
package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/cache/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Adapter is a hook that mirrors the events of a cache into Prometheus
// counters and gauges. Safe for concurrent use; all Prometheus metric types
// are goroutine-safe.
type Adapter struct {
	hits           prometheus.Counter
	misses         prometheus.Counter
	prefetchHits   prometheus.Counter
	prefetchMisses prometheus.Counter
	prefetched     prometheus.Counter
	evicts         *prometheus.CounterVec
	occupied       prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(
	reg prometheus.Registerer,
	ns, sub string,
	constLabels prometheus.Labels,
) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
	}

	a := &Adapter{
		hits:   counter("hits_total", "Primary accesses that hit"),
		misses: counter("misses_total", "Primary accesses that missed"),
		prefetchHits: counter("prefetch_hits_total",
			"Speculative accesses that found the line resident"),
		prefetchMisses: counter("prefetch_misses_total",
			"Speculative accesses that brought a line in"),
		prefetched: counter("lines_prefetched_total",
			"Lines the prefetcher asked for"),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Evicted lines by dirtiness",
				ConstLabels: constLabels,
			},
			[]string{"dirty"},
		),
		occupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "occupied_lines",
			Help:        "Number of valid lines",
			ConstLabels: constLabels,
		}),
	}

	reg.MustRegister(a.hits, a.misses, a.prefetchHits, a.prefetchMisses,
		a.prefetched, a.evicts, a.occupied)

	return a
}

// Func updates the metrics according to the event carried by ctx.
func (a *Adapter) Func(ctx hooking.HookCtx) {
	switch info := ctx.Item.(type) {
	case cache.AccessInfo:
		a.access(info)
	case cache.EvictionInfo:
		dirty := info.Status == tagging.Modified
		a.evicts.WithLabelValues(strconv.FormatBool(dirty)).Inc()
		a.occupied.Dec()
	case cache.PrefetchInfo:
		a.prefetched.Add(float64(info.NumLines))
	}
}

func (a *Adapter) access(info cache.AccessInfo) {
	if info.Outcome == cache.Miss {
		a.occupied.Inc()
	}

	switch {
	case info.Speculative && info.Outcome == cache.Hit:
		a.prefetchHits.Inc()
	case info.Speculative:
		a.prefetchMisses.Inc()
	case info.Outcome == cache.Hit:
		a.hits.Inc()
	default:
		a.misses.Inc()
	}
}

// Compile-time check: ensure Adapter is a hook.
var _ hooking.Hook = (*Adapter)(nil)
