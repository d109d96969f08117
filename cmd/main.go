// pipeline-service
//
// Hiring pipeline for job candidates.
// Exposes a REST API (public application, assignment and booking pages plus
// the recruiter dashboard) and a gRPC API used by the Gateway:
//   - submitApplication(jobId, form)    : AI screening, then APPLIED / ASSIGNMENT_SENT / REJECTED
//   - submitAssignment(candidateId)     : ASSIGNMENT_SENT → ASSIGNMENT_RECEIVED
//   - approve / reject(candidateId)     : recruiter decisions
//   - bookSlot(candidateId, slot)       : Google Calendar event, interview SCHEDULED
//
// Publishes EVENT_CANDIDATE_MOVED to Redis after every committed change.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:           "pipeline",
	Short:         "Hiring pipeline service",
	Long:          "Candidate lifecycle engine: screening, assignments, approvals and interview booking.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[pipeline-service] Error: %v\n", err)
		os.Exit(1)
	}
}
