package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/store"
)

// FormatVersion is bumped when the record layout changes.
const FormatVersion = "1"

// Record types, in the order they appear in an export.
const (
	TypeHeader      = "header"
	TypeDossier     = "dossier"
	TypeCompany     = "societe"
	TypeInteraction = "interaction"
	TypeReminder    = "rappel"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version          string    `json:"version"`
	Type             string    `json:"type"`
	Timestamp        time.Time `json:"timestamp"`
	DossierCount     int       `json:"dossier_count"`
	CompanyCount     int       `json:"societe_count"`
	InteractionCount int       `json:"interaction_count"`
	ReminderCount    int       `json:"rappel_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// exportedDossier is a dossier with the companies on its roadshow.
type exportedDossier struct {
	*model.Dossier
	CompanyIDs []string `json:"societe_ids"`
}

// ExportJSONL writes every dossier, company, interaction and reminder in the
// store to w, one JSON record per line after a header. Each section is
// sorted by ID so that unchanged data exports byte-identically apart from
// the header timestamp.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	dossiers, _, err := s.ListDossiers(ctx, model.DossierFilter{Sort: "created_at"})
	if err != nil {
		return fmt.Errorf("list dossiers: %w", err)
	}
	sort.Slice(dossiers, func(i, j int) bool { return dossiers[i].ID < dossiers[j].ID })

	exported := make([]exportedDossier, len(dossiers))
	for i, d := range dossiers {
		companies, err := s.GetDossierCompanies(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("get companies for %s: %w", d.ID, err)
		}
		ids := make([]string, len(companies))
		for j, c := range companies {
			ids[j] = c.ID
		}
		sort.Strings(ids)
		exported[i] = exportedDossier{Dossier: d, CompanyIDs: ids}
	}

	companies, err := s.ListCompanies(ctx)
	if err != nil {
		return fmt.Errorf("list companies: %w", err)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].ID < companies[j].ID })

	interactions, err := s.ListInteractions(ctx, "")
	if err != nil {
		return fmt.Errorf("list interactions: %w", err)
	}
	sort.Slice(interactions, func(i, j int) bool { return interactions[i].ID < interactions[j].ID })

	reminders, err := s.ListReminders(ctx, nil)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}
	sort.Slice(reminders, func(i, j int) bool { return reminders[i].ID < reminders[j].ID })

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:          FormatVersion,
		Type:             TypeHeader,
		Timestamp:        time.Now().UTC(),
		DossierCount:     len(exported),
		CompanyCount:     len(companies),
		InteractionCount: len(interactions),
		ReminderCount:    len(reminders),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, d := range exported {
		if err := enc.Encode(record{Type: TypeDossier, Data: d}); err != nil {
			return fmt.Errorf("encode dossier %s: %w", d.ID, err)
		}
	}
	for _, c := range companies {
		if err := enc.Encode(record{Type: TypeCompany, Data: c}); err != nil {
			return fmt.Errorf("encode company %s: %w", c.ID, err)
		}
	}
	for _, in := range interactions {
		if err := enc.Encode(record{Type: TypeInteraction, Data: in}); err != nil {
			return fmt.Errorf("encode interaction %s: %w", in.ID, err)
		}
	}
	for _, r := range reminders {
		if err := enc.Encode(record{Type: TypeReminder, Data: r}); err != nil {
			return fmt.Errorf("encode reminder %s: %w", r.ID, err)
		}
	}
	return nil
}
