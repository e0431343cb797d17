package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dealdesk/internal/store/postgres"
	dealsync "github.com/alfredjeanlab/dealdesk/internal/sync"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every record as JSONL to stdout",
	Long: `Write every record as JSONL to stdout, in the same format as the backup
sync. Reads the database directly.`,
	GroupID:           "system",
	PersistentPreRunE: skipClient,
	Args:              cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbURL, _ := cmd.Flags().GetString("database-url")
		if dbURL == "" {
			dbURL = os.Getenv("DEALDESK_DATABASE_URL")
		}
		if dbURL == "" {
			return errors.New("--database-url or DEALDESK_DATABASE_URL is required")
		}

		store, err := postgres.New(dbURL)
		if err != nil {
			return err
		}
		defer store.Close()

		return dealsync.ExportJSONL(cmd.Context(), store, cmd.OutOrStdout())
	},
}

func init() {
	exportCmd.Flags().String("database-url", "", "PostgreSQL URL (default $DEALDESK_DATABASE_URL)")
}
