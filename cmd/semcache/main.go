package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "semcache",
		Short: "Semcache: semantic response cache for an LLM tool assistant",
		// Errors are printed once below.
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       version,
	}

	root.AddCommand(
		newServeCmd(),
		newCacheCmd(),
		newSessionsCmd(),
		newMCPCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
