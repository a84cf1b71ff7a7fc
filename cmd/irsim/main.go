// Command irsim drives the dataflow-graph simulator over a built-in
// sample graph, writing a Chrome-tracing JSON file and, optionally, a
// SQLite record of every retired op (spec.md §6). Structured the way
// the teacher's akita CLI is: a cobra root command with subcommands
// registered from sibling files.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "irsim",
	Short: "irsim runs the dataflow-graph discrete-event simulator over a sample graph.",
	Long: `irsim runs the dataflow-graph discrete-event simulator over a sample ` +
		`graph, emitting a Chrome-tracing JSON file of the run and, optionally, ` +
		`a SQLite table of every retired op.`,
}

func main() {
	// godotenv loads a .env file, if present, into the process
	// environment; a missing .env is expected, not an error. The flag
	// defaults are fixed in the subcommands and do not read the
	// environment.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
