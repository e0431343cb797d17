package store

import (
	"context"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/model"
)

// Store defines the persistence interface for dealdesk.
type Store interface {
	// Dossiers
	CreateDossier(ctx context.Context, d *model.Dossier) error
	GetDossier(ctx context.Context, id, viewer string) (*model.Dossier, error)
	ListDossiers(ctx context.Context, filter model.DossierFilter) ([]*model.Dossier, int, error) // returns dossiers, total count, error
	UpdateDossier(ctx context.Context, d *model.Dossier) error
	UpdateDossierStatus(ctx context.Context, id string, status model.Status) (*model.Dossier, error)
	DeleteDossier(ctx context.Context, id string) error

	// Members
	AddMember(ctx context.Context, m *model.Member) error

	// Companies
	CreateCompany(ctx context.Context, c *model.Company) error
	ListCompanies(ctx context.Context) ([]*model.Company, error)
	LinkCompany(ctx context.Context, dossierID, companyID string) error
	GetDossierCompanies(ctx context.Context, dossierID string) ([]*model.Company, error)

	// Interactions
	CreateInteraction(ctx context.Context, i *model.Interaction) error
	ListInteractions(ctx context.Context, dossierID string) ([]*model.Interaction, error) // empty dossierID = all

	// Reminders
	CreateReminder(ctx context.Context, r *model.Reminder) error
	ListReminders(ctx context.Context, overdueAt *time.Time) ([]*model.Reminder, error) // non-nil overdueAt = only open reminders due before it
	CompleteReminder(ctx context.Context, id string) (*model.Reminder, error)

	// Dashboard
	GetStats(ctx context.Context, now time.Time) (*model.DashboardStats, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
