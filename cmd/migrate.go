package main

import (
	"github.com/spf13/cobra"

	"hirelane/pipeline-service/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return db.Migrate(cmd.Context(), a.pool)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
