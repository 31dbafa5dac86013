package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/cachesim/mem/cache"
)

func printReport(w io.Writer, config cache.Config, stats cache.Stats) {
	fmt.Fprintf(w,
		"Cache %s: %d sets, %d-way, %d B lines (%d B), "+
			"replacement %s, prefetcher %s\n",
		config.Name, config.NumSets, config.Associativity, config.LineSize,
		config.TotalSize(), config.Policy, config.Prefetcher)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	row := func(label string, value uint64) {
		fmt.Fprintf(tw, "%s\t%d\t\n", label, value)
	}

	row("Accesses", stats.Accesses)
	row("Reads", stats.Reads)
	row("Writes", stats.Writes)
	row("Hits", stats.Hits)
	row("Misses", stats.Misses)
	fmt.Fprintf(tw, "Hit ratio\t%.4f\t\n", stats.HitRatio())
	fmt.Fprintf(tw, "Miss ratio\t%.4f\t\n", stats.MissRatio())
	row("Evictions", stats.Evictions)
	row("Dirty evictions", stats.DirtyEvictions)
	row("Lines prefetched", stats.LinesPrefetched)
	row("Prefetch hits", stats.PrefetchHits)
	row("Prefetch misses", stats.PrefetchMisses)

	tw.Flush()
}
