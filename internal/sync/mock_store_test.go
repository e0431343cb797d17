package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/store"
)

// mockStore is a read-mostly in-memory store.Store for export tests.
type mockStore struct {
	dossiers     map[string]*model.Dossier
	companies    map[string]*model.Company
	links        map[string][]string // dossier id -> company ids
	interactions []*model.Interaction
	reminders    []*model.Reminder

	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		dossiers:  make(map[string]*model.Dossier),
		companies: make(map[string]*model.Company),
		links:     make(map[string][]string),
	}
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) CreateDossier(_ context.Context, d *model.Dossier) error {
	m.dossiers[d.ID] = d
	return nil
}

func (m *mockStore) GetDossier(_ context.Context, id, _ string) (*model.Dossier, error) {
	d, ok := m.dossiers[id]
	if !ok {
		return nil, fmt.Errorf("dossier %s not found", id)
	}
	return d, nil
}

// ListDossiers returns dossiers in map order; the export sorts them.
func (m *mockStore) ListDossiers(_ context.Context, _ model.DossierFilter) ([]*model.Dossier, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []*model.Dossier
	for _, d := range m.dossiers {
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *mockStore) UpdateDossier(_ context.Context, d *model.Dossier) error {
	m.dossiers[d.ID] = d
	return nil
}

func (m *mockStore) UpdateDossierStatus(_ context.Context, id string, status model.Status) (*model.Dossier, error) {
	d, ok := m.dossiers[id]
	if !ok {
		return nil, fmt.Errorf("dossier %s not found", id)
	}
	d.Status = status
	return d, nil
}

func (m *mockStore) DeleteDossier(_ context.Context, id string) error {
	delete(m.dossiers, id)
	return nil
}

func (m *mockStore) AddMember(context.Context, *model.Member) error { return nil }

func (m *mockStore) CreateCompany(_ context.Context, c *model.Company) error {
	m.companies[c.ID] = c
	return nil
}

func (m *mockStore) ListCompanies(context.Context) ([]*model.Company, error) {
	var out []*model.Company
	for _, c := range m.companies {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockStore) LinkCompany(_ context.Context, dossierID, companyID string) error {
	m.links[dossierID] = append(m.links[dossierID], companyID)
	return nil
}

func (m *mockStore) GetDossierCompanies(_ context.Context, dossierID string) ([]*model.Company, error) {
	var out []*model.Company
	for _, id := range m.links[dossierID] {
		if c, ok := m.companies[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) CreateInteraction(_ context.Context, i *model.Interaction) error {
	m.interactions = append(m.interactions, i)
	return nil
}

func (m *mockStore) ListInteractions(_ context.Context, dossierID string) ([]*model.Interaction, error) {
	var out []*model.Interaction
	for _, i := range m.interactions {
		if dossierID == "" || i.DossierID == dossierID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *mockStore) CreateReminder(_ context.Context, r *model.Reminder) error {
	m.reminders = append(m.reminders, r)
	return nil
}

func (m *mockStore) ListReminders(_ context.Context, overdueAt *time.Time) ([]*model.Reminder, error) {
	var out []*model.Reminder
	for _, r := range m.reminders {
		if overdueAt == nil || r.Overdue(*overdueAt) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) CompleteReminder(_ context.Context, id string) (*model.Reminder, error) {
	for _, r := range m.reminders {
		if r.ID == id {
			r.Done = true
			return r, nil
		}
	}
	return nil, fmt.Errorf("reminder %s not found", id)
}

func (m *mockStore) GetStats(context.Context, time.Time) (*model.DashboardStats, error) {
	return &model.DashboardStats{Total: len(m.dossiers)}, nil
}

func (m *mockStore) RecordEvent(context.Context, *model.Event) error { return nil }

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }
