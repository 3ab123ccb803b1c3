package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mthydro/stagedata/export"
	"github.com/mthydro/stagedata/stage"
)

var (
	flagTimestep string
	flagDatasets []string
	flagStart    string
	flagEnd      string
	flagPolicy   string
	flagFormat   string
	flagOutput   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <site-code>",
	Short: "Fetch a site's timeseries",
	Long: `Fetch the daily or instantaneous record for one site and print it as a
table, or write it as CSV or XLSX.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&flagTimestep, "timestep", "t", "daily", "timestep: daily or instant")
	fetchCmd.Flags().StringSliceVarP(&flagDatasets, "dataset", "d", nil, "parameter codes to include (default all)")
	fetchCmd.Flags().StringVar(&flagStart, "start", "", "start date (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&flagEnd, "end", "", "end date (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&flagPolicy, "policy", "", "window policy when no dates given: most_recent, last_7_days, last_30_days, none")
	fetchCmd.Flags().StringVarP(&flagFormat, "format", "f", "table", "output format: table, csv or xlsx")
	fetchCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	filter := stage.AllDatasets()
	if len(flagDatasets) > 0 {
		filter = stage.Datasets(flagDatasets...)
	}

	client := newStageClient(logger)
	builder := stage.NewBuilder(client, logger)

	ds, err := builder.Build(cmd.Context(), stage.BuildRequest{
		SiteCode: args[0],
		Timestep: stage.Timestep(flagTimestep),
		Dataset:  filter,
		Start:    flagStart,
		End:      flagEnd,
		Policy:   stage.DefaultPolicy(flagPolicy),
	})
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch flagFormat {
	case "table":
		return printTable(out, ds)
	case "csv":
		return export.WriteCSV(out, ds)
	case "xlsx":
		if flagOutput == "" {
			return fmt.Errorf("xlsx output requires --output")
		}
		return export.WriteXLSX(out, ds)
	default:
		return fmt.Errorf("unknown format %q", flagFormat)
	}
}

func printTable(out io.Writer, ds *stage.SiteDataset) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if ds.Timestep == stage.TimestepDaily {
		fmt.Fprintln(w, "DATE\tDATASET\tVALUE\tGRADE\tAPPROVAL")
		for _, s := range ds.Samples {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				s.Date, s.DatasetLabel, formatValue(s.Value), s.GradeName, s.ApprovalName)
		}
	} else {
		fmt.Fprintln(w, "DATETIME\tDATASET\tVALUE\tGRADE\tAPPROVAL")
		for _, s := range ds.Samples {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				s.LocalTime.Format("2006-01-02 15:04:05"), s.DatasetLabel,
				formatValue(s.Value), s.GradeName, s.ApprovalName)
		}
	}
	return w.Flush()
}

func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}
