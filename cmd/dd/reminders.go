package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dealdesk/internal/client"
	"github.com/alfredjeanlab/dealdesk/internal/querycache"
	"github.com/alfredjeanlab/dealdesk/internal/ui"
	"github.com/alfredjeanlab/dealdesk/internal/views"
)

var remindersCmd = &cobra.Command{
	Use:     "reminders",
	Aliases: []string{"rappels"},
	Short:   "List reminders",
	GroupID: "followup",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			return watchOverdue(cmd.Context())
		}
		overdue, _ := cmd.Flags().GetBool("overdue")
		rs, err := dealClient.ListReminders(cmd.Context(), overdue)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rs)
		}
		if len(rs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no reminders")
			return nil
		}
		printReminders(cmd.OutOrStdout(), rs, time.Now())
		return nil
	},
}

// watchOverdue mounts the overdue badge and prints the count whenever it
// changes, until interrupted.
func watchOverdue(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	cache := querycache.New()
	defer cache.Close()

	badge := views.NewReminderBadge(cache, dealClient, clientCfg.ReminderPoll)
	last := -1
	badge.Mount(func(n int, err error) {
		if err != nil {
			fmt.Fprintln(os.Stderr, ui.RenderError("✗"), err)
			return
		}
		if n == last {
			return
		}
		last = n
		if jsonOutput {
			_ = printJSON(os.Stdout, map[string]any{"at": time.Now(), "overdue": n})
			return
		}
		fmt.Printf("%s overdue reminders: %s\n", ui.RenderMuted(time.Now().Format(timeLayout)), ui.RenderBadge(n))
	})
	defer badge.Unmount()

	<-ctx.Done()
	return nil
}

var remindersDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a reminder as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := dealClient.CompleteReminder(cmd.Context(), args[0])
		if err != nil {
			if client.IsNotFound(err) {
				return fmt.Errorf("reminder %s not found", args[0])
			}
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), r)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.RenderSuccess("✓"), r.Title)
		return nil
	},
}

var remindCmd = &cobra.Command{
	Use:     "remind <title>",
	Short:   "Create a reminder",
	GroupID: "followup",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		due, _ := cmd.Flags().GetString("due")
		if due == "" {
			return fmt.Errorf("--due is required")
		}
		dossierID, _ := cmd.Flags().GetString("dossier")

		r, err := dealClient.CreateReminder(cmd.Context(), &client.CreateReminderRequest{
			DossierID: dossierID,
			Title:     args[0],
			DueAt:     due,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), r)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s due %s\n", ui.RenderAccent(r.ID), r.DueAt.Local().Format(timeLayout))
		return nil
	},
}

func init() {
	remindersCmd.Flags().Bool("overdue", false, "only reminders past due and not done")
	remindersCmd.Flags().BoolP("watch", "w", false, "keep polling the overdue count")
	remindersCmd.AddCommand(remindersDoneCmd)

	remindCmd.Flags().String("due", "", "due date, ISO 8601 (required)")
	remindCmd.Flags().String("dossier", "", "attach to this dossier")
}
