package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/querycache"
	"github.com/alfredjeanlab/dealdesk/internal/ui"
	"github.com/alfredjeanlab/dealdesk/internal/views"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log an interaction with a company",
	Long: `Log an interaction with a company.

The dossier defaults to DEALDESK_FALLBACK_DOSSIER. Notes may be given with
--notes or piped on stdin.`,
	GroupID: "followup",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dossierID, _ := cmd.Flags().GetString("dossier")
		companyID, _ := cmd.Flags().GetString("company")

		cache := querycache.New()
		defer cache.Close()
		form := views.NewInteractionForm(dealClient, cache, newNotifier(), views.InteractionFormConfig{
			DossierID:         dossierID,
			CompanyID:         companyID,
			FallbackDossierID: clientCfg.FallbackDossierID,
			Actor:             actor,
		})

		values := form.Values()
		if cmd.Flags().Changed("type") {
			t, _ := cmd.Flags().GetString("type")
			values.Type = model.InteractionType(t)
		}
		if cmd.Flags().Changed("date") {
			values.Date, _ = cmd.Flags().GetString("date")
		}
		values.ContactID, _ = cmd.Flags().GetString("contact")
		values.Notes, _ = cmd.Flags().GetString("notes")
		if values.Notes == "" && !ui.IsInteractive() {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading notes from stdin: %w", err)
			}
			values.Notes = strings.TrimSpace(string(data))
		}
		form.SetValues(values)

		created, err := form.Submit(cmd.Context())
		if err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				printFieldErrors(os.Stderr, ve)
				return errors.New("interaction not logged")
			}
			return reported(err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), created)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s on %s\n", ui.RenderAccent(created.ID), created.DossierID)
		return nil
	},
}

func printFieldErrors(w io.Writer, ve *model.ValidationError) {
	for _, fe := range ve.Errors {
		fmt.Fprintf(w, "  %s: %s\n", ui.RenderWarning(fe.Field), fe.Message)
	}
}

func interactionTypeNames() string {
	names := make([]string, len(model.InteractionTypes))
	for i, t := range model.InteractionTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func init() {
	logCmd.Flags().String("dossier", "", "dossier ID")
	logCmd.Flags().String("company", "", "company ID (required)")
	logCmd.Flags().String("type", string(model.InteractionCall), "one of "+interactionTypeNames())
	logCmd.Flags().String("date", "", "when it happened, ISO 8601 (default now)")
	logCmd.Flags().String("notes", "", "what was said")
	logCmd.Flags().String("contact", "", "contact ID")
}
