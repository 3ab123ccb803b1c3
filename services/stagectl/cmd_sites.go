package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List monitored sites",
	Long:  `List every StAGE site across all station status classes.`,
	RunE:  runSites,
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}

func runSites(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := newStageClient(logger)
	sites, err := client.SiteList(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tSTATUS")
	for _, s := range sites {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.LocationCode, s.LocationName, s.StatusDesc)
	}
	return w.Flush()
}
