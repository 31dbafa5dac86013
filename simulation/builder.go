package simulation

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/metrics/prom"
	"github.com/sarchlab/cachesim/monitoring"
)

// Builder can be used to build a simulation.
type Builder struct {
	name         string
	cacheBuilder cache.Builder

	recordOn       bool
	outputFileName string

	monitor     *monitoring.Monitor
	registerer  prometheus.Registerer
	logger      *log.Logger
	logPrefetch bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		name:         "Cache",
		cacheBuilder: cache.MakeBuilder(),
	}
}

// WithName sets the name of the simulated cache.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithCacheBuilder sets how the simulated cache is built.
func (b Builder) WithCacheBuilder(cb cache.Builder) Builder {
	b.cacheBuilder = cb
	return b
}

// WithRecording makes the simulation record every access and eviction into
// an SQLite database. An empty file name picks a unique name.
func (b Builder) WithRecording(filename string) Builder {
	b.recordOn = true
	b.outputFileName = filename

	return b
}

// WithMonitor registers the simulation with a monitor.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// WithPrometheus exports the cache events as Prometheus metrics.
func (b Builder) WithPrometheus(reg prometheus.Registerer) Builder {
	b.registerer = reg
	return b
}

// WithAccessLogger prints every access into the logger. Prefetch-issued
// accesses are printed when includePrefetch is set.
func (b Builder) WithAccessLogger(
	logger *log.Logger,
	includePrefetch bool,
) Builder {
	b.logger = logger
	b.logPrefetch = includePrefetch

	return b
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	s := &Simulation{
		id:      xid.New().String(),
		monitor: b.monitor,
	}

	cb := b.cacheBuilder

	if b.registerer != nil {
		adapter := prom.New(b.registerer, "cachesim", "",
			prometheus.Labels{"cache": b.name})
		cb = cb.WithHook(adapter)
	}

	if b.logger != nil {
		logger := cache.NewAccessLogger(b.logger)
		logger.IncludeSpeculative = b.logPrefetch
		cb = cb.WithHook(logger)
	}

	c, err := cb.Build(b.name)
	if err != nil {
		return nil, err
	}

	s.cache = c

	if b.recordOn {
		s.dataRecorder = datarecording.New(b.outputFileName)
		s.cache.AcceptHook(trace.NewDBTracer(s.dataRecorder))
	}

	if b.monitor != nil {
		b.monitor.RegisterCache(s)
	}

	return s, nil
}
