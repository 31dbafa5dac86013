// Package cmd provides the command-line interface of cachesim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCmd creates the cachesim command with all its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "cachesim",
		Short: "cachesim simulates a set-associative cache driven by a " +
			"memory trace.",
		Long: `cachesim replays a memory trace through a set-associative ` +
			`cache with a configurable replacement policy and prefetcher, ` +
			`and reports hits, misses, evictions and prefetch activity.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newReportCmd())

	return rootCmd
}

// Execute runs the root command and exits. Registered exit handlers, such as
// the flushing of data recorders, run before the process ends.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
