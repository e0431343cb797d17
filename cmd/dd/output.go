package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"

	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/ui"
	"github.com/alfredjeanlab/dealdesk/internal/views"
)

const timeLayout = "2006-01-02 15:04"

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printDossier(w io.Writer, d *model.Dossier) {
	fmt.Fprintf(w, "ID:           %s\n", d.ID)
	fmt.Fprintf(w, "Name:         %s\n", d.Name)
	fmt.Fprintf(w, "Type:         %s\n", d.Type)
	fmt.Fprintf(w, "Status:       %s\n", ui.RenderStatus(d.Status))
	fmt.Fprintf(w, "Stage:        %s\n", d.Stage)
	fmt.Fprintf(w, "Started:      %s\n", d.StartDate.Format(time.DateOnly))
	if d.CloseDate != nil {
		fmt.Fprintf(w, "Closed:       %s\n", d.CloseDate.Format(time.DateOnly))
	}
	if d.Description != "" {
		fmt.Fprintf(w, "Description:  %s\n", d.Description)
	}
	fmt.Fprintf(w, "Companies:    %d\n", d.CompanyCount)
	fmt.Fprintf(w, "Interactions: %d\n", d.InteractionCount)
	if d.LastActivity != nil {
		fmt.Fprintf(w, "Last active:  %s\n", d.LastActivity.Local().Format(timeLayout))
	}
	if d.Role != "" {
		fmt.Fprintf(w, "Your role:    %s\n", d.Role)
	}
}

func printDossierTable(w io.Writer, ds []*model.Dossier, total int) {
	nameWidth := max(20, ui.Width()-70)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTAGE\tTYPE\tNAME\tCOMPANIES\tINTERACTIONS")
	for _, d := range ds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			d.ID,
			ui.RenderStatus(d.Status),
			d.Stage,
			d.Type,
			ui.Truncate(d.Name, nameWidth),
			d.CompanyCount,
			d.InteractionCount,
		)
	}
	tw.Flush()
	fmt.Fprintln(w, ui.RenderMuted(fmt.Sprintf("\n%d dossiers (%d total)", len(ds), total)))
}

func printBoard(w io.Writer, cols []views.Column) {
	for _, col := range cols {
		fmt.Fprintf(w, "%s %s\n", ui.RenderAccent(string(col.Stage)), ui.RenderMuted(fmt.Sprintf("(%d)", len(col.Dossiers))))
		for _, d := range col.Dossiers {
			fmt.Fprintf(w, "  %s  %s  %s\n", d.ID, ui.Truncate(d.Name, 40), ui.RenderStatus(d.Status))
		}
	}
}

func printCompanies(w io.Writer, cs []*model.Company) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSECTOR\tCOUNTRY")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Sector, c.Country)
	}
	tw.Flush()
}

func printInteractions(w io.Writer, is []*model.Interaction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tCOMPANY\tAUTHOR\tNOTES")
	for _, i := range is {
		notes := strings.ReplaceAll(i.Notes, "\n", " ")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			i.Date.Local().Format(timeLayout), i.Type, i.CompanyID, i.Author, ui.Truncate(notes, 60))
	}
	tw.Flush()
}

func printReminders(w io.Writer, rs []*model.Reminder, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDUE\tDOSSIER\tTITLE\tSTATE")
	for _, r := range rs {
		state := "open"
		switch {
		case r.Done:
			state = ui.RenderMuted("done")
		case r.Overdue(now):
			state = ui.RenderError("overdue")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.DueAt.Local().Format(timeLayout), r.DossierID, r.Title, state)
	}
	tw.Flush()
}

func printStats(w io.Writer, s *model.DashboardStats) {
	fmt.Fprintf(w, "Dossiers:              %d\n", s.Total)
	for _, st := range model.Statuses {
		fmt.Fprintf(w, "  %-20s %d\n", st.Label(), s.ByStatus[st])
	}
	fmt.Fprintf(w, "Interactions (30 days): %d\n", s.RecentInteractions)
	fmt.Fprintf(w, "Overdue reminders:      %s\n", ui.RenderBadge(s.OverdueReminders))
}

// cliNotifier prints view notifications to stderr.
type cliNotifier struct {
	w io.Writer
}

func newNotifier() cliNotifier { return cliNotifier{w: os.Stderr} }

func (n cliNotifier) Notify(note views.Notification) {
	switch note.Level {
	case views.LevelError:
		if note.Err != nil {
			fmt.Fprintf(n.w, "%s %s: %v\n", ui.RenderError("✗"), note.Message, note.Err)
			return
		}
		fmt.Fprintf(n.w, "%s %s\n", ui.RenderError("✗"), note.Message)
	default:
		fmt.Fprintf(n.w, "%s %s\n", ui.RenderSuccess("✓"), note.Message)
	}
}

// cliNavigator records where the screen would go next; commands print it.
type cliNavigator struct {
	target string
}

func (n *cliNavigator) Navigate(path string) { n.target = path }
