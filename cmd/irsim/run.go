package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/irsim/monitor"
	"github.com/sarchlab/irsim/persist"
	"github.com/sarchlab/irsim/runner"
	"github.com/sarchlab/irsim/trace"
)

var (
	flagSample          string
	flagTraceOut        string
	flagDB              string
	flagMonitorInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a built-in sample graph to completion.",
	Run:   runSample,
}

func init() {
	runCmd.Flags().StringVar(&flagSample, "sample", "s1", "built-in sample graph to run (see list-samples)")
	runCmd.Flags().StringVar(&flagTraceOut, "trace-out", "trace.json", "path to write the Chrome-tracing JSON output")
	runCmd.Flags().StringVar(&flagDB, "db", "", "optional SQLite database path (without extension) to record retired ops into")
	runCmd.Flags().DurationVar(&flagMonitorInterval, "monitor-interval", 0, "resource-usage sampling interval; 0 disables the monitor")

	rootCmd.AddCommand(runCmd)
}

func runSample(cmd *cobra.Command, args []string) {
	s, ok := findSample(flagSample)
	if !ok {
		log.Fatalf("irsim: unknown sample %q (see 'irsim list-samples')", flagSample)
	}

	traceFile, err := os.Create(flagTraceOut)
	if err != nil {
		log.Fatalf("irsim: creating trace output: %v", err)
	}
	defer traceFile.Close()

	sink, err := trace.NewSink(traceFile)
	if err != nil {
		log.Fatalf("irsim: opening trace sink: %v", err)
	}

	g := s.build()

	r, err := runner.New(g, sink, s.memCost, s.dmaCost)
	if err != nil {
		log.Fatalf("irsim: building runner: %v", err)
	}

	if flagDB != "" {
		rec, err := persist.NewRecorder(flagDB)
		if err != nil {
			log.Fatalf("irsim: opening database: %v", err)
		}
		defer rec.Close()
		r.SetRecorder(rec)
	}

	if flagMonitorInterval > 0 {
		sampler, err := monitor.NewSampler(flagMonitorInterval, r)
		if err != nil {
			log.Fatalf("irsim: starting monitor: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go sampler.Run(ctx)
	}

	if err := r.Run(); err != nil {
		log.Fatalf("irsim: simulation failed: %v", err)
	}

	fmt.Printf("irsim: sample %q finished at virtual time %d, trace written to %s\n",
		flagSample, r.CurrentTime(), flagTraceOut)
}
