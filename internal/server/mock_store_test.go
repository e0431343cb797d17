package server

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/store"
)

// mockStore is an in-memory store.Store. Dossiers keep insertion order so
// list assertions are deterministic.
type mockStore struct {
	mu sync.Mutex

	dossiers     map[string]*model.Dossier
	order        []string
	members      map[string]map[string]string // dossier -> user -> role
	companies    map[string]*model.Company
	links        map[string][]string // dossier -> company ids
	interactions []*model.Interaction
	reminders    map[string]*model.Reminder
	events       []*model.Event

	// failWith, when non-nil, is returned by every write.
	failWith error
}

func newMockStore() *mockStore {
	return &mockStore{
		dossiers:  make(map[string]*model.Dossier),
		members:   make(map[string]map[string]string),
		companies: make(map[string]*model.Company),
		links:     make(map[string][]string),
		reminders: make(map[string]*model.Reminder),
	}
}

func (m *mockStore) CreateDossier(_ context.Context, d *model.Dossier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	clone := *d
	m.dossiers[d.ID] = &clone
	m.order = append(m.order, d.ID)
	return nil
}

// view returns a copy of the dossier with computed fields filled in. The
// caller holds m.mu.
func (m *mockStore) view(id, viewer string) (*model.Dossier, bool) {
	d, ok := m.dossiers[id]
	if !ok {
		return nil, false
	}
	out := *d
	out.CompanyCount = len(m.links[id])
	out.InteractionCount = 0
	out.LastActivity = nil
	for _, i := range m.interactions {
		if i.DossierID != id {
			continue
		}
		out.InteractionCount++
		if out.LastActivity == nil || i.Date.After(*out.LastActivity) {
			t := i.Date
			out.LastActivity = &t
		}
	}
	if role, ok := m.members[id][viewer]; ok && viewer != "" {
		out.IsMember = true
		out.Role = role
	}
	return &out, true
}

func (m *mockStore) GetDossier(_ context.Context, id, viewer string) (*model.Dossier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.view(id, viewer)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d, nil
}

func (m *mockStore) ListDossiers(_ context.Context, filter model.DossierFilter) ([]*model.Dossier, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Dossier
	for _, id := range m.order {
		d, _ := m.view(id, filter.Viewer)
		if len(filter.Status) > 0 {
			found := false
			for _, s := range filter.Status {
				if d.Status == s {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if filter.Search != "" {
			q := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(d.Name), q) && !strings.Contains(strings.ToLower(d.Description), q) {
				continue
			}
		}
		result = append(result, d)
	}
	total := len(result)
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			result = nil
		} else {
			result = result[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

func (m *mockStore) UpdateDossier(_ context.Context, d *model.Dossier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.dossiers[d.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *d
	clone.UpdatedAt = time.Now().UTC()
	m.dossiers[d.ID] = &clone
	return nil
}

func (m *mockStore) UpdateDossierStatus(_ context.Context, id string, status model.Status) (*model.Dossier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	d, ok := m.dossiers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	now := time.Now().UTC()
	switch {
	case status == model.StatusClosed && d.CloseDate == nil:
		d.CloseDate = &now
	case status != model.StatusClosed:
		d.CloseDate = nil
	}
	d.Status = status
	d.UpdatedAt = now
	out, _ := m.view(id, "")
	return out, nil
}

func (m *mockStore) DeleteDossier(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.dossiers[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.dossiers, id)
	delete(m.links, id)
	delete(m.members, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockStore) AddMember(_ context.Context, mem *model.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[mem.DossierID] == nil {
		m.members[mem.DossierID] = make(map[string]string)
	}
	m.members[mem.DossierID][mem.UserID] = mem.Role
	return nil
}

func (m *mockStore) CreateCompany(_ context.Context, c *model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.companies[c.ID] = c
	return nil
}

func (m *mockStore) ListCompanies(_ context.Context) ([]*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Company
	for _, c := range m.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) LinkCompany(_ context.Context, dossierID, companyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.links[dossierID] {
		if id == companyID {
			return nil
		}
	}
	m.links[dossierID] = append(m.links[dossierID], companyID)
	return nil
}

func (m *mockStore) GetDossierCompanies(_ context.Context, dossierID string) ([]*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Company
	for _, id := range m.links[dossierID] {
		if c, ok := m.companies[id]; ok {
			out = append(out, c)
		} else {
			out = append(out, &model.Company{ID: id})
		}
	}
	return out, nil
}

func (m *mockStore) CreateInteraction(_ context.Context, i *model.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.interactions = append(m.interactions, i)
	return nil
}

func (m *mockStore) ListInteractions(_ context.Context, dossierID string) ([]*model.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Interaction
	for _, i := range m.interactions {
		if dossierID == "" || i.DossierID == dossierID {
			out = append(out, i)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.After(out[b].Date) })
	return out, nil
}

func (m *mockStore) CreateReminder(_ context.Context, r *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.reminders[r.ID] = r
	return nil
}

func (m *mockStore) ListReminders(_ context.Context, overdueAt *time.Time) ([]*model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Reminder
	for _, r := range m.reminders {
		if overdueAt != nil && !r.Overdue(*overdueAt) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (m *mockStore) CompleteReminder(_ context.Context, id string) (*model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	r.Done = true
	return r, nil
}

func (m *mockStore) GetStats(_ context.Context, now time.Time) (*model.DashboardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &model.DashboardStats{ByStatus: make(map[model.Status]int)}
	for _, s := range model.Statuses {
		stats.ByStatus[s] = 0
	}
	for _, d := range m.dossiers {
		stats.Total++
		stats.ByStatus[d.Status]++
	}
	cutoff := now.AddDate(0, 0, -30)
	for _, i := range m.interactions {
		if !i.Date.Before(cutoff) {
			stats.RecentInteractions++
		}
	}
	for _, r := range m.reminders {
		if r.Overdue(now) {
			stats.OverdueReminders++
		}
	}
	return stats, nil
}

func (m *mockStore) RecordEvent(_ context.Context, event *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = int64(len(m.events) + 1)
	m.events = append(m.events, event)
	return nil
}

func (m *mockStore) recordedTopics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	topics := make([]string, len(m.events))
	for i, e := range m.events {
		topics[i] = e.Topic
	}
	return topics
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error {
	return nil
}
