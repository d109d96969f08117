package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	failedLimit int64
	failedJSON  bool
)

var failedNotificationsCmd = &cobra.Command{
	Use:   "failed-notifications",
	Short: "List candidate emails that could not be delivered",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := connect(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		failed, err := a.failures.List(ctx, failedLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if failedJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(failed)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "AT\tKIND\tCANDIDATE\tERROR")
		for _, f := range failed {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.At.Format(time.RFC3339), f.Kind, f.CandidateID, f.Error)
		}
		return tw.Flush()
	},
}

func init() {
	failedNotificationsCmd.Flags().Int64Var(&failedLimit, "limit", 50, "maximum entries to show, 0 for all")
	failedNotificationsCmd.Flags().BoolVar(&failedJSON, "json", false, "print the full records as JSON")
	rootCmd.AddCommand(failedNotificationsCmd)
}
