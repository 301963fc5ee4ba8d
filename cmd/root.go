package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "propdefs",
	Short: "Property definitions ingester",
	Long: `propdefs keeps the catalog of event and property definitions in sync
with live analytics traffic.

It consumes raw events from Kafka, derives the definition updates each event
implies, deduplicates them aggressively (a per-worker compaction set in front
of a shared filter cache) and issues the survivors to Postgres in bounded
batches under a strict concurrency ceiling.
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
