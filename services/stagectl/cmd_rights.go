package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mthydro/stagedata/wrqs"
)

var flagRightsOutput string

var rightsCmd = &cobra.Command{
	Use:   "rights <basin-code>",
	Short: "Dump water-right features for a basin",
	Long: `Fetch the point-of-diversion, place-of-use and reservoir features for
one administrative basin from the WRQS feature service and print them as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runRights,
}

func init() {
	rightsCmd.Flags().StringVarP(&flagRightsOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(rightsCmd)
}

func runRights(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := wrqs.NewClient(wrqs.WithLogger(logger))
	rights, err := client.BasinRights(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if flagRightsOutput != "" {
		f, err := os.Create(flagRightsOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rights)
}
