package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/cache/prefetching"
	"github.com/sarchlab/cachesim/mem/cache/replacement"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/simulation"
	"github.com/spf13/cobra"
)

var (
	sweepPolicies = []string{
		replacement.LRUName,
		replacement.RandomName,
		replacement.LRUPreferCleanName,
	}
	sweepPrefetchers = []string{
		cache.NoPrefetcher,
		prefetching.SequentialName,
		prefetching.AdjacentName,
		prefetching.StridedName,
	}
)

func newSweepCmd() *cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep <trace>",
		Short: "Run every replacement policy and prefetcher over a trace.",
		Long: "`sweep <trace>` loads the trace once and runs one cache per " +
			"replacement policy and prefetcher combination in parallel.",
		Args: cobra.ExactArgs(1),
		RunE: runSweep,
	}

	addCacheFlags(sweepCmd.Flags(), false)

	return sweepCmd
}

type sweepCase struct {
	policy     string
	prefetcher string
}

func runSweep(cmd *cobra.Command, args []string) error {
	if err := applyDefaults(cmd); err != nil {
		return err
	}

	src, closeTrace, err := openTrace(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer closeTrace()

	entries, err := trace.ReadAll(src)
	if err != nil {
		return err
	}

	base := cacheBuilderFromFlags(cmd.Flags())

	var (
		cases    []sweepCase
		builders []simulation.Builder
	)

	for _, policy := range sweepPolicies {
		for _, prefetcher := range sweepPrefetchers {
			cases = append(cases, sweepCase{policy, prefetcher})
			builders = append(builders, simulation.MakeBuilder().
				WithName(policy+"/"+prefetcher).
				WithCacheBuilder(base.
					WithReplacementPolicy(policy).
					WithPrefetcher(prefetcher)))
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := simulation.Sweep(ctx, builders, entries)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "replacement\tprefetcher\thits\tmisses\thit ratio\t"+
		"dirty evictions\tprefetched\t")

	for i, c := range cases {
		r := results[i]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.4f\t%d\t%d\t\n",
			c.policy, c.prefetcher, r.Hits, r.Misses, r.HitRatio(),
			r.DirtyEvictions, r.LinesPrefetched)
	}

	return tw.Flush()
}
