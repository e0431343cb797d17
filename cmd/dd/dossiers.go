package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dealdesk/internal/client"
	"github.com/alfredjeanlab/dealdesk/internal/querycache"
	"github.com/alfredjeanlab/dealdesk/internal/ui"
	"github.com/alfredjeanlab/dealdesk/internal/views"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List dossiers",
	GroupID: "dossiers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("statut")
		filter, err := views.ParseFilter(raw)
		if err != nil {
			return err
		}

		cache := querycache.New()
		defer cache.Close()
		list := views.NewDossierList(cache, dealClient)
		list.SetFilter(filter)
		if err := list.Load(cmd.Context()); err != nil {
			return err
		}

		visible := list.Visible()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), visible)
		}
		if len(visible) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no dossiers (%s)\n", filter.Label())
			return nil
		}
		printDossierTable(cmd.OutOrStdout(), visible, list.Total())
		return nil
	},
}

var boardCmd = &cobra.Command{
	Use:     "board",
	Short:   "Show dossiers by pipeline stage",
	GroupID: "dossiers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("statut")
		filter, err := views.ParseFilter(raw)
		if err != nil {
			return err
		}

		cache := querycache.New()
		defer cache.Close()
		list := views.NewDossierList(cache, dealClient)
		list.SetFilter(filter)
		if err := list.Load(cmd.Context()); err != nil {
			return err
		}

		cols := list.Board()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), cols)
		}
		printBoard(cmd.OutOrStdout(), cols)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a dossier with its roadshow",
	GroupID: "dossiers",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := dealClient.GetRoadshow(cmd.Context(), args[0])
		if err != nil {
			if client.IsNotFound(err) {
				return fmt.Errorf("dossier %s not found", args[0])
			}
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rs)
		}

		out := cmd.OutOrStdout()
		printDossier(out, rs.Dossier)
		if len(rs.Companies) > 0 {
			fmt.Fprintln(out, ui.RenderAccent("\nRoadshow"))
			printCompanies(out, rs.Companies)
		}
		if len(rs.Interactions) > 0 {
			fmt.Fprintln(out, ui.RenderAccent("\nInteractions"))
			printInteractions(out, rs.Interactions)
		}
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:     "create <name>",
	Short:   "Create a dossier",
	GroupID: "dossiers",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.CreateDossierRequest{Name: args[0]}
		req.Type, _ = cmd.Flags().GetString("type")
		req.Status, _ = cmd.Flags().GetString("statut")
		req.Stage, _ = cmd.Flags().GetString("stage")
		req.StartDate, _ = cmd.Flags().GetString("start")
		req.Description, _ = cmd.Flags().GetString("description")

		d, err := dealClient.CreateDossier(cmd.Context(), req)
		if err != nil {
			var ae *client.APIError
			if errors.As(err, &ae) && len(ae.Fields) > 0 {
				for field, msg := range ae.Fields {
					fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
				}
			}
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), d)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", ui.RenderAccent(d.ID), d.Name)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status <id> <statut>",
	Short:   "Change the status of a dossier",
	Long:    "Change the status of a dossier. The status is one of actif, clos, stand_by, echoue\nor their labels Active, Closed, Stand-by (Paused), Failed.",
	GroupID: "dossiers",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := querycache.New()
		defer cache.Close()
		control := views.NewStatusControl(dealClient, cache, newNotifier())

		d, err := control.Change(cmd.Context(), args[0], args[1])
		if err != nil {
			return reported(err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Short:   "Delete a dossier",
	GroupID: "dossiers",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		cache := querycache.New()
		defer cache.Close()
		nav := &cliNavigator{}
		flow := views.NewDeleteFlow(args[0], dealClient, cache, newNotifier(), nav)

		if err := flow.RequestDelete(); err != nil {
			return err
		}
		if !yes {
			if !ui.IsInteractive() {
				_ = flow.Cancel()
				return errors.New("refusing to delete without confirmation; pass --yes")
			}
			ok, err := ui.Confirm(os.Stdin, os.Stderr, fmt.Sprintf("Delete dossier %s?", args[0]))
			if err != nil {
				return errors.Join(err, flow.Cancel())
			}
			if !ok {
				return flow.Cancel()
			}
		}

		if err := flow.Confirm(cmd.Context()); err != nil {
			return reported(err)
		}
		if nav.target != "" && !jsonOutput {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMuted("→ "+nav.target))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().String("statut", "ALL", "filter: ALL, actif, clos, stand_by, echoue (labels accepted)")
	boardCmd.Flags().String("statut", "ALL", "filter: ALL, actif, clos, stand_by, echoue (labels accepted)")

	createCmd.Flags().String("type", "", "cession, acquisition, levee_fonds or autre")
	createCmd.Flags().String("statut", "", "initial status (default actif)")
	createCmd.Flags().String("stage", "", "kanban stage (default origination)")
	createCmd.Flags().String("start", "", "start date, YYYY-MM-DD (default today)")
	createCmd.Flags().String("description", "", "free-form description")

	deleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
}
