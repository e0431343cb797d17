// Package client provides a transport-agnostic interface for the dealdesk
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"

	"github.com/alfredjeanlab/dealdesk/internal/model"
)

// DealClient is the interface the CLI and the views use to reach the server.
type DealClient interface {
	// Dossiers
	ListDossiers(ctx context.Context, req *ListDossiersRequest) (*ListDossiersResponse, error)
	CreateDossier(ctx context.Context, req *CreateDossierRequest) (*model.Dossier, error)
	GetDossier(ctx context.Context, id string) (*model.Dossier, error)
	UpdateDossier(ctx context.Context, id string, req *UpdateDossierRequest) (*model.Dossier, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Dossier, error)
	DeleteDossier(ctx context.Context, id string) error
	GetRoadshow(ctx context.Context, id string) (*model.Roadshow, error)
	LinkCompany(ctx context.Context, dossierID, companyID string) error

	// Companies
	ListCompanies(ctx context.Context) ([]*model.Company, error)
	CreateCompany(ctx context.Context, req *CreateCompanyRequest) (*model.Company, error)

	// Interactions
	ListInteractions(ctx context.Context, dossierID string) ([]*model.Interaction, error)
	CreateInteraction(ctx context.Context, req *CreateInteractionRequest) (*model.Interaction, error)

	// Reminders
	ListReminders(ctx context.Context, overdueOnly bool) ([]*model.Reminder, error)
	CreateReminder(ctx context.Context, req *CreateReminderRequest) (*model.Reminder, error)
	CompleteReminder(ctx context.Context, id string) (*model.Reminder, error)

	// Dashboard
	GetStats(ctx context.Context) (*model.DashboardStats, error)

	// Events
	StreamEvents(ctx context.Context, req *StreamRequest) (<-chan Event, error)

	// Identity provider redirects
	LoginURL(ctx context.Context, returnTo string) (string, error)
	LogoutURL(ctx context.Context) (string, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// ListDossiersRequest holds the list filters. Status values may be wire
// values or labels.
type ListDossiersRequest struct {
	Status []string
	Search string
	Sort   string
	Limit  int
	Offset int
}

// ListDossiersResponse is a page of dossiers with the unpaginated total.
type ListDossiersResponse struct {
	Dossiers []*model.Dossier
	Total    int
}

// CreateDossierRequest holds parameters for creating a dossier.
type CreateDossierRequest struct {
	Name        string `json:"nom"`
	Type        string `json:"type,omitempty"`
	Status      string `json:"statut,omitempty"`
	Stage       string `json:"etape_kanban,omitempty"`
	StartDate   string `json:"date_debut,omitempty"`
	Description string `json:"description,omitempty"`
}

// UpdateDossierRequest holds a partial update; nil fields are left unchanged.
type UpdateDossierRequest struct {
	Name        *string `json:"nom,omitempty"`
	Type        *string `json:"type,omitempty"`
	Stage       *string `json:"etape_kanban,omitempty"`
	StartDate   *string `json:"date_debut,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateCompanyRequest holds parameters for creating a company.
type CreateCompanyRequest struct {
	Name    string `json:"nom"`
	Sector  string `json:"secteur,omitempty"`
	Country string `json:"pays,omitempty"`
}

// CreateInteractionRequest is the interaction payload. Date is sent as typed
// by the user; the server parses it.
type CreateInteractionRequest struct {
	DossierID string `json:"dossier_id"`
	CompanyID string `json:"societe_id"`
	ContactID string `json:"contact_id,omitempty"`
	Type      string `json:"type"`
	Date      string `json:"date"`
	Notes     string `json:"notes"`
	Author    string `json:"auteur,omitempty"`
}

// CreateReminderRequest holds parameters for creating a reminder.
type CreateReminderRequest struct {
	DossierID string `json:"dossier_id,omitempty"`
	Title     string `json:"titre"`
	DueAt     string `json:"echeance"`
}

// StreamRequest selects the events delivered by StreamEvents.
type StreamRequest struct {
	// Topics are NATS-style patterns; empty means every topic.
	Topics []string
	// LastEventID resumes after the given event.
	LastEventID string
}

// Event is one server-sent event.
type Event struct {
	ID    string
	Topic string
	Data  []byte
}
