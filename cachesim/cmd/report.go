package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report <recording.sqlite3>",
		Short: "Summarize a recording by set.",
		Long: "`report <recording.sqlite3>` reads a database written by " +
			"`run --record` and lists the sets with the most misses.",
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	reportCmd.Flags().Int("top", 10, "Number of sets to list")

	return reportCmd
}

type setSummary struct {
	setID          int
	misses         int
	evictions      int
	dirtyEvictions int
}

func runReport(cmd *cobra.Command, args []string) error {
	reader, err := datarecording.NewReader(args[0])
	if err != nil {
		return err
	}
	defer reader.Close()

	trace.MapTables(reader)

	misses, totalMisses, err := trace.Accesses(cmd.Context(), reader,
		datarecording.QueryParams{
			Where: "Outcome = ? AND Speculative = ?",
			Args:  []any{"miss", false},
		})
	if err != nil {
		return err
	}

	evictions, _, err := trace.Evictions(cmd.Context(), reader,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	sets := map[int]*setSummary{}
	summaryOf := func(setID int) *setSummary {
		s, ok := sets[setID]
		if !ok {
			s = &setSummary{setID: setID}
			sets[setID] = s
		}

		return s
	}

	for _, a := range misses {
		summaryOf(a.SetID).misses++
	}

	for _, e := range evictions {
		s := summaryOf(e.SetID)
		s.evictions++

		if e.Dirty {
			s.dirtyEvictions++
		}
	}

	summaries := make([]*setSummary, 0, len(sets))
	for _, s := range sets {
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].misses != summaries[j].misses {
			return summaries[i].misses > summaries[j].misses
		}

		return summaries[i].setID < summaries[j].setID
	})

	top, _ := cmd.Flags().GetInt("top")
	if top > 0 && len(summaries) > top {
		summaries = summaries[:top]
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Primary misses: %d\n", totalMisses)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "set\tmisses\tevictions\tdirty evictions\t")

	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t\n",
			s.setID, s.misses, s.evictions, s.dirtyEvictions)
	}

	return tw.Flush()
}
