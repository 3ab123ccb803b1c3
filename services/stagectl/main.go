// Command stagectl is a command-line client for the StAGE and WRQS map
// services: list sites, pull timeseries to the terminal or a file, and dump
// water-right features for a basin.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagBaseURL string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "stagectl",
	Short: "Montana DNRC StAGE data client",
	Long: `stagectl retrieves hydrological monitoring data from the Montana DNRC
StAGE map service and water-right features from the WRQS feature service.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "override the StAGE service base URL")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
