package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/ui"
	"github.com/alfredjeanlab/dealdesk/internal/views"
)

func init() {
	ui.ForceNoColor()
}

func TestPrintReminders_States(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rs := []*model.Reminder{
		{ID: "rap-late", Title: "Relancer Acme", DueAt: now.Add(-time.Hour)},
		{ID: "rap-soon", Title: "Envoyer teaser", DueAt: now.Add(time.Hour)},
		{ID: "rap-done", Title: "NDA", DueAt: now.Add(-time.Hour), Done: true},
	}

	var buf bytes.Buffer
	printReminders(&buf, rs, now)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3:\n%s", len(lines), buf.String())
	}
	for _, want := range []struct{ id, state string }{
		{"rap-late", "overdue"},
		{"rap-soon", "open"},
		{"rap-done", "done"},
	} {
		found := false
		for _, l := range lines {
			if strings.HasPrefix(l, want.id) {
				found = true
				if !strings.HasSuffix(strings.TrimSpace(l), want.state) {
					t.Errorf("%s: line %q, want state %q", want.id, l, want.state)
				}
			}
		}
		if !found {
			t.Errorf("%s missing from output", want.id)
		}
	}
}

func TestPrintBoard(t *testing.T) {
	ds := []*model.Dossier{
		{ID: "dos-1", Name: "Projet Atlas", Status: model.StatusActive, Stage: model.Stages[0]},
		{ID: "dos-2", Name: "Projet Boreal", Status: model.StatusStandBy, Stage: model.Stages[0]},
	}

	var buf bytes.Buffer
	printBoard(&buf, views.BoardColumns(ds))

	out := buf.String()
	if !strings.Contains(out, string(model.Stages[0])+" (2)") {
		t.Errorf("missing first column header with count:\n%s", out)
	}
	if !strings.Contains(out, "Projet Boreal") || !strings.Contains(out, model.StatusStandBy.Label()) {
		t.Errorf("missing dossier row:\n%s", out)
	}
	for _, st := range model.Stages[1:] {
		if !strings.Contains(out, string(st)+" (0)") {
			t.Errorf("empty column %s not shown:\n%s", st, out)
		}
	}
}

func TestPrintDossierTable_Footer(t *testing.T) {
	ds := []*model.Dossier{{ID: "dos-1", Name: "Projet Atlas", Status: model.StatusClosed}}

	var buf bytes.Buffer
	printDossierTable(&buf, ds, 7)

	if !strings.Contains(buf.String(), "1 dossiers (7 total)") {
		t.Errorf("footer missing:\n%s", buf.String())
	}
}

func TestCLINotifier(t *testing.T) {
	var buf bytes.Buffer
	n := cliNotifier{w: &buf}

	n.Notify(views.Notification{Level: views.LevelSuccess, Message: "Status changed to Closed"})
	n.Notify(views.Notification{Level: views.LevelError, Message: "Could not delete", Err: errors.New("boom")})

	want := "✓ Status changed to Closed\n✗ Could not delete: boom\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestReported(t *testing.T) {
	base := errors.New("server said no")
	err := reported(base)
	if !errors.Is(err, errReported) || !errors.Is(err, base) {
		t.Errorf("reported(%v) = %v, want both sentinels", base, err)
	}
	if reported(nil) != nil {
		t.Error("reported(nil) should be nil")
	}
}

func TestColorizeHelp_NoColorIsIdentity(t *testing.T) {
	in := "Dossiers:\n  list    List dossiers\n\nFlags:\n      --statut string   filter (default \"ALL\")\n"
	if got := colorizeHelp(in); got != in {
		t.Errorf("colorizeHelp changed text with colour off:\n%s", got)
	}
}
