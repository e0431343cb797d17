package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dealdesk/internal/client"
	"github.com/alfredjeanlab/dealdesk/internal/ui"
)

var companyCmd = &cobra.Command{
	Use:     "company",
	Aliases: []string{"societe"},
	Short:   "Manage companies approached during mandates",
	GroupID: "dossiers",
}

var companyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := dealClient.ListCompanies(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), cs)
		}
		if len(cs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no companies")
			return nil
		}
		printCompanies(cmd.OutOrStdout(), cs)
		return nil
	},
}

var companyAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.CreateCompanyRequest{Name: args[0]}
		req.Sector, _ = cmd.Flags().GetString("sector")
		req.Country, _ = cmd.Flags().GetString("country")

		c, err := dealClient.CreateCompany(cmd.Context(), req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), c)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", ui.RenderAccent(c.ID), c.Name)
		return nil
	},
}

var companyLinkCmd = &cobra.Command{
	Use:   "link <dossier-id> <company-id>",
	Short: "Add a company to a dossier's roadshow",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dealClient.LinkCompany(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s linked to %s\n", ui.RenderSuccess("✓"), args[1], args[0])
		return nil
	},
}

func init() {
	companyAddCmd.Flags().String("sector", "", "business sector")
	companyAddCmd.Flags().String("country", "", "country")

	companyCmd.AddCommand(companyListCmd, companyAddCmd, companyLinkCmd)
}
