package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/simulation"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <trace>",
		Short: "Run one cache over a trace and print its statistics.",
		Long: "`run <trace>` replays the trace, one \"<op> <address>\" per " +
			"line, through a cache. Use - to read the trace from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: runSimulation,
	}

	addCacheFlags(runCmd.Flags(), true)
	runCmd.Flags().String("name", "L1", "Name of the simulated cache")
	runCmd.Flags().String("record", "",
		"Record accesses and evictions into <record>.sqlite3")
	runCmd.Flags().Bool("monitor", false, "Serve the monitoring web page")
	runCmd.Flags().Int("monitor-port", 0,
		"Port of the monitoring server (default: random)")
	runCmd.Flags().Bool("open-browser", false,
		"Open the monitoring page in a browser")
	runCmd.Flags().BoolP("verbose", "v", false, "Print every access to stderr")
	runCmd.Flags().Bool("log-prefetch", false,
		"Also print prefetch-issued accesses when verbose")

	return runCmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if err := applyDefaults(cmd); err != nil {
		return err
	}

	flags := cmd.Flags()

	name, _ := flags.GetString("name")
	b := simulation.MakeBuilder().
		WithName(name).
		WithCacheBuilder(cacheBuilderFromFlags(flags))

	if record, _ := flags.GetString("record"); record != "" {
		b = b.WithRecording(strings.TrimSuffix(record, ".sqlite3"))
	}

	if verbose, _ := flags.GetBool("verbose"); verbose {
		logPrefetch, _ := flags.GetBool("log-prefetch")
		b = b.WithAccessLogger(log.New(cmd.ErrOrStderr(), "", 0), logPrefetch)
	}

	var monitor *monitoring.Monitor

	if monitorOn, _ := flags.GetBool("monitor"); monitorOn {
		port, _ := flags.GetInt("monitor-port")
		reg := prometheus.NewRegistry()
		monitor = monitoring.NewMonitor().
			WithPortNumber(port).
			WithGatherer(reg)
		b = b.WithMonitor(monitor).WithPrometheus(reg)
	}

	s, err := b.Build()
	if err != nil {
		return err
	}

	if monitor != nil {
		url := monitor.StartServer()

		if open, _ := flags.GetBool("open-browser"); open {
			if err := browser.OpenURL(url); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(),
					"Cannot open browser: %v\n", err)
			}
		}
	}

	src, closeTrace, err := openTrace(args[0], cmd.InOrStdin())
	if err != nil {
		return errors.Join(err, s.Terminate())
	}
	defer closeTrace()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	stats, runErr := s.Run(ctx, src)
	termErr := s.Terminate()

	printReport(cmd.OutOrStdout(), s.Config(), stats)

	return errors.Join(runErr, termErr)
}

func openTrace(path string, stdin io.Reader) (trace.Source, func(), error) {
	if path == "-" {
		return trace.NewReader(stdin), func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	return trace.NewReader(f), func() { f.Close() }, nil
}
