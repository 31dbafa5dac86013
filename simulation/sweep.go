package simulation

import (
	"context"
	"runtime"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"golang.org/x/sync/errgroup"
)

// Sweep builds one simulation per builder and runs all of them over the same
// trace concurrently. The results are in the order of the builders. The first
// error cancels the remaining runs.
func Sweep(
	ctx context.Context,
	builders []Builder,
	entries []trace.Entry,
) ([]cache.Stats, error) {
	results := make([]cache.Stats, len(builders))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, b := range builders {
		i, b := i, b
		g.Go(func() error {
			s, err := b.Build()
			if err != nil {
				return err
			}

			stats, err := s.Run(ctx, trace.NewSliceSource(entries))
			if termErr := s.Terminate(); err == nil {
				err = termErr
			}

			results[i] = stats

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
