// Command jobsearch runs the job search service: the HTTP API with its
// watch scheduler, one-off searches, and schema migration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:           "jobsearch",
	Short:         "Job search aggregation service",
	Long:          "jobsearch aggregates job listings from several boards, filters them for relevance and freshness, and stores search tasks.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
