package main

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show dashboard figures",
	GroupID: "followup",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := dealClient.GetStats(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), s)
		}
		printStats(cmd.OutOrStdout(), s)
		return nil
	},
}
