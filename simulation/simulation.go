// Package simulation drives caches with memory traces.
package simulation

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/cache/tagging"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
)

// A Simulation feeds a trace into one cache. The inspection methods can be
// called from other goroutines while Run is in progress.
type Simulation struct {
	id string

	lock  sync.Mutex
	cache *cache.System

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Name returns the name of the simulated cache.
func (s *Simulation) Name() string {
	return s.cache.Name()
}

// Config returns the configuration of the simulated cache.
func (s *Simulation) Config() cache.Config {
	return s.cache.Config()
}

// Stats returns the current statistics of the simulated cache.
func (s *Simulation) Stats() cache.Stats {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.cache.Stats()
}

// Occupancy returns the number of valid lines in the simulated cache.
func (s *Simulation) Occupancy() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.cache.Occupancy()
}

// SetLines returns a copy of the lines of one set.
func (s *Simulation) SetLines(setID int) ([]tagging.Line, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.cache.SetLines(setID)
}

// GetDataRecorder returns the data recorder used in the simulation. It is nil
// if the simulation does not record.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation, if any.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

type sizedSource interface {
	Len() int
}

// Run performs one access per trace entry until the source is exhausted and
// returns the statistics of the cache. The context is checked between
// entries.
func (s *Simulation) Run(ctx context.Context, src trace.Source) (
	cache.Stats, error,
) {
	var bar *monitoring.ProgressBar

	if s.monitor != nil {
		total := uint64(0)
		if sized, ok := src.(sizedSource); ok {
			total = uint64(sized.Len())
		}

		bar = s.monitor.CreateProgressBar(s.Name(), total)
		defer s.monitor.CompleteProgressBar(bar)
	}

	for {
		if err := ctx.Err(); err != nil {
			return s.Stats(), err
		}

		entry, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return s.Stats(), err
		}

		s.lock.Lock()
		s.cache.Access(entry.Address, entry.Op)
		s.lock.Unlock()

		if bar != nil {
			bar.IncrementFinished(1)
		}
	}

	return s.Stats(), nil
}

// Terminate releases the cache and flushes and closes the data recorder.
func (s *Simulation) Terminate() error {
	s.lock.Lock()
	err := s.cache.Close()
	s.lock.Unlock()

	if s.dataRecorder != nil {
		if closeErr := s.dataRecorder.Close(); err == nil {
			err = closeErr
		}
	}

	return err
}
