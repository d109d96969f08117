package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reconcileOwner string
	reconcileAll   bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [candidateID]",
	Short: "Check the calendar for interviews booked outside the booking page",
	Long: `Reconcile one candidate (requires --owner) or, with --all, every
candidate holding an open interview invite.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if reconcileAll == (len(args) == 1) {
			return fmt.Errorf("pass either a candidate ID or --all")
		}
		if !reconcileAll && reconcileOwner == "" {
			return fmt.Errorf("--owner is required when reconciling one candidate")
		}

		ctx := cmd.Context()
		a, err := connect(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.service(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if reconcileAll {
			booked, err := svc.SweepBookings(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d interview(s) reconciled\n", booked)
			return nil
		}

		res, err := svc.ReconcileBooking(ctx, reconcileOwner, args[0])
		if err != nil {
			return err
		}
		if !res.Booked {
			fmt.Fprintln(out, "no booking found")
			return nil
		}
		fmt.Fprintf(out, "scheduled at %s (%s)\n", res.Candidate.InterviewDate.Format("2006-01-02 15:04 MST"), res.Candidate.MeetingLink)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileOwner, "owner", "", "recruiter user ID owning the candidate's job")
	reconcileCmd.Flags().BoolVar(&reconcileAll, "all", false, "reconcile every candidate awaiting a booking")
	rootCmd.AddCommand(reconcileCmd)
}
