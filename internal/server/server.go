package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/auth"
	"github.com/alfredjeanlab/dealdesk/internal/events"
	"github.com/alfredjeanlab/dealdesk/internal/idgen"
	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/store"
)

// ownerRole is granted to the creator of a dossier.
const ownerRole = "responsable"

// DealServer implements the dealdesk API on top of a Store.
type DealServer struct {
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub
	logger    *slog.Logger
	now       func() time.Time
}

// NewDealServer returns a DealServer backed by the given store and publisher.
func NewDealServer(s store.Store, p events.Publisher, logger *slog.Logger) *DealServer {
	if p == nil {
		p = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DealServer{
		store:     s,
		publisher: p,
		sseHub:    newSSEHub(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// recordAndPublish persists an event, publishes it to NATS and fans it out
// to SSE clients. Failures are logged and never fail the caller.
func (s *DealServer) recordAndPublish(ctx context.Context, topic, dossierID string, event any) {
	actor := auth.Actor(ctx)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event", "topic", topic, "dossier_id", dossierID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:     topic,
		DossierID: dossierID,
		Actor:     actor,
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("failed to record event", "topic", topic, "dossier_id", dossierID, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "dossier_id", dossierID, "error", err)
	}
	s.sseHub.broadcast(topic, payload)
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// errNotFound wraps sql.ErrNoRows with the missing entity.
func errNotFound(what string) error {
	return fmt.Errorf("%s not found: %w", what, sql.ErrNoRows)
}

type createDossierInput struct {
	Name        string `json:"nom"`
	Type        string `json:"type"`
	Status      string `json:"statut"`
	Stage       string `json:"etape_kanban"`
	StartDate   string `json:"date_debut"`
	Description string `json:"description"`
}

func (s *DealServer) createDossier(ctx context.Context, in createDossierInput) (*model.Dossier, error) {
	now := s.now()
	id, err := idgen.New(idgen.Dossier)
	if err != nil {
		return nil, err
	}
	d := &model.Dossier{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Type:        model.DossierType(in.Type),
		Status:      model.StatusActive,
		Stage:       model.StageOrigination,
		StartDate:   now,
		Description: in.Description,
		CreatedBy:   auth.Subject(ctx),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Type == "" {
		d.Type = model.TypeOther
	}
	if in.Status != "" {
		st, ok := model.ParseStatus(in.Status)
		if !ok {
			return nil, inputError(fmt.Sprintf("invalid statut %q", in.Status))
		}
		d.Status = st
	}
	if d.Status == model.StatusClosed {
		d.CloseDate = &now
	}
	if in.Stage != "" {
		d.Stage = model.Stage(in.Stage)
	}
	if in.StartDate != "" {
		t, err := model.ParseDate(in.StartDate)
		if err != nil {
			return nil, inputError("date_debut: " + err.Error())
		}
		d.StartDate = t
	}
	if err := model.ValidateDossier(d); err != nil {
		return nil, err
	}

	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreateDossier(ctx, d); err != nil {
			return fmt.Errorf("create dossier: %w", err)
		}
		if d.CreatedBy == "" {
			return nil
		}
		return tx.AddMember(ctx, &model.Member{DossierID: d.ID, UserID: d.CreatedBy, Role: ownerRole})
	})
	if err != nil {
		return nil, err
	}
	if d.CreatedBy != "" {
		d.IsMember = true
		d.Role = ownerRole
	}

	s.recordAndPublish(ctx, events.TopicDossierCreated, d.ID, events.DossierCreated{Dossier: d})
	return d, nil
}

type updateDossierInput struct {
	Name        *string `json:"nom"`
	Type        *string `json:"type"`
	Stage       *string `json:"etape_kanban"`
	StartDate   *string `json:"date_debut"`
	Description *string `json:"description"`
}

func (s *DealServer) updateDossier(ctx context.Context, id string, in updateDossierInput) (*model.Dossier, error) {
	d, err := s.store.GetDossier(ctx, id, auth.Subject(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("dossier")
	}
	if err != nil {
		return nil, fmt.Errorf("get dossier: %w", err)
	}

	changes := make(map[string]any)
	if in.Name != nil {
		d.Name = strings.TrimSpace(*in.Name)
		changes["nom"] = d.Name
	}
	if in.Type != nil {
		d.Type = model.DossierType(*in.Type)
		changes["type"] = d.Type
	}
	if in.Stage != nil {
		d.Stage = model.Stage(*in.Stage)
		changes["etape_kanban"] = d.Stage
	}
	if in.StartDate != nil {
		t, err := model.ParseDate(*in.StartDate)
		if err != nil {
			return nil, inputError("date_debut: " + err.Error())
		}
		d.StartDate = t
		changes["date_debut"] = t
	}
	if in.Description != nil {
		d.Description = *in.Description
		changes["description"] = d.Description
	}
	if len(changes) == 0 {
		return d, nil
	}
	if err := model.ValidateDossier(d); err != nil {
		return nil, err
	}
	if err := s.store.UpdateDossier(ctx, d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("dossier")
		}
		return nil, fmt.Errorf("update dossier: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicDossierUpdated, d.ID, events.DossierUpdated{Dossier: d, Changes: changes})
	return d, nil
}

// changeStatus moves a dossier to status. Concurrent changes are not
// reordered: the store applies each one atomically and the last write wins.
func (s *DealServer) changeStatus(ctx context.Context, id, status string) (*model.Dossier, error) {
	st, ok := model.ParseStatus(status)
	if !ok {
		if status == "" {
			return nil, inputError("statut is required")
		}
		return nil, inputError(fmt.Sprintf("invalid statut %q", status))
	}

	d, err := s.store.UpdateDossierStatus(ctx, id, st)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("dossier")
	}
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicDossierStatusChanged, d.ID, events.DossierStatusChanged{Dossier: d})
	return d, nil
}

func (s *DealServer) deleteDossier(ctx context.Context, id string) error {
	err := s.store.DeleteDossier(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound("dossier")
	}
	if err != nil {
		return fmt.Errorf("delete dossier: %w", err)
	}
	s.recordAndPublish(ctx, events.TopicDossierDeleted, id, events.DossierDeleted{DossierID: id})
	return nil
}

func (s *DealServer) roadshow(ctx context.Context, id string) (*model.Roadshow, error) {
	d, err := s.store.GetDossier(ctx, id, auth.Subject(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("dossier")
	}
	if err != nil {
		return nil, fmt.Errorf("get dossier: %w", err)
	}
	companies, err := s.store.GetDossierCompanies(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get companies: %w", err)
	}
	interactions, err := s.store.ListInteractions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	if companies == nil {
		companies = []*model.Company{}
	}
	if interactions == nil {
		interactions = []*model.Interaction{}
	}
	return &model.Roadshow{Dossier: d, Companies: companies, Interactions: interactions}, nil
}

type createCompanyInput struct {
	Name    string `json:"nom"`
	Sector  string `json:"secteur"`
	Country string `json:"pays"`
}

func (s *DealServer) createCompany(ctx context.Context, in createCompanyInput) (*model.Company, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, inputError("nom is required")
	}
	id, err := idgen.New(idgen.Company)
	if err != nil {
		return nil, err
	}
	c := &model.Company{
		ID:        id,
		Name:      name,
		Sector:    in.Sector,
		Country:   in.Country,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateCompany(ctx, c); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	s.recordAndPublish(ctx, events.TopicCompanyCreated, "", events.CompanyCreated{Company: c})
	return c, nil
}

func (s *DealServer) linkCompany(ctx context.Context, dossierID, companyID string) error {
	if companyID == "" {
		return inputError("societe_id is required")
	}
	if _, err := s.store.GetDossier(ctx, dossierID, ""); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errNotFound("dossier")
		}
		return fmt.Errorf("get dossier: %w", err)
	}
	if err := s.store.LinkCompany(ctx, dossierID, companyID); err != nil {
		return fmt.Errorf("link company: %w", err)
	}
	s.recordAndPublish(ctx, events.TopicCompanyLinked, dossierID, events.CompanyLinked{DossierID: dossierID, CompanyID: companyID})
	return nil
}

type createInteractionInput struct {
	DossierID string `json:"dossier_id"`
	CompanyID string `json:"societe_id"`
	ContactID string `json:"contact_id"`
	Type      string `json:"type"`
	Date      string `json:"date"`
	Notes     string `json:"notes"`
	Author    string `json:"auteur"`
}

// createInteraction logs an interaction and adds its company to the
// dossier's roadshow. The authenticated principal, when present, is the
// author regardless of what the client sent.
func (s *DealServer) createInteraction(ctx context.Context, in createInteractionInput) (*model.Interaction, error) {
	id, err := idgen.New(idgen.Interaction)
	if err != nil {
		return nil, err
	}
	i := &model.Interaction{
		ID:        id,
		DossierID: strings.TrimSpace(in.DossierID),
		CompanyID: strings.TrimSpace(in.CompanyID),
		ContactID: strings.TrimSpace(in.ContactID),
		Type:      model.InteractionType(in.Type),
		Notes:     in.Notes,
		Author:    in.Author,
		CreatedAt: s.now(),
	}
	if actor := auth.Actor(ctx); actor != "" {
		i.Author = actor
	}

	var ve model.ValidationError
	if strings.TrimSpace(in.Date) != "" {
		t, err := model.ParseDate(in.Date)
		if err != nil {
			ve.Errors = append(ve.Errors, model.FieldError{Field: "date", Message: "must be an ISO 8601 date"})
		}
		i.Date = t
	}
	if err := model.ValidateInteraction(i); err != nil {
		var iv *model.ValidationError
		if errors.As(err, &iv) {
			for _, fe := range iv.Errors {
				if fe.Field == "date" && ve.Field("date") != "" {
					continue
				}
				ve.Errors = append(ve.Errors, fe)
			}
		}
	}
	if ve.HasErrors() {
		return nil, &ve
	}

	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetDossier(ctx, i.DossierID, ""); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return inputError(fmt.Sprintf("unknown dossier %q", i.DossierID))
			}
			return fmt.Errorf("get dossier: %w", err)
		}
		if err := tx.LinkCompany(ctx, i.DossierID, i.CompanyID); err != nil {
			return fmt.Errorf("link company: %w", err)
		}
		if err := tx.CreateInteraction(ctx, i); err != nil {
			return fmt.Errorf("create interaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAndPublish(ctx, events.TopicInteractionCreated, i.DossierID, events.InteractionCreated{Interaction: i})
	return i, nil
}

type createReminderInput struct {
	DossierID string `json:"dossier_id"`
	Title     string `json:"titre"`
	DueAt     string `json:"echeance"`
}

func (s *DealServer) createReminder(ctx context.Context, in createReminderInput) (*model.Reminder, error) {
	id, err := idgen.New(idgen.Reminder)
	if err != nil {
		return nil, err
	}
	r := &model.Reminder{
		ID:        id,
		DossierID: strings.TrimSpace(in.DossierID),
		Title:     strings.TrimSpace(in.Title),
		CreatedBy: auth.Subject(ctx),
		CreatedAt: s.now(),
	}
	if in.DueAt != "" {
		t, err := model.ParseDate(in.DueAt)
		if err != nil {
			return nil, inputError("echeance: " + err.Error())
		}
		r.DueAt = t
	}
	if err := model.ValidateReminder(r); err != nil {
		return nil, err
	}
	if err := s.store.CreateReminder(ctx, r); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	s.recordAndPublish(ctx, events.TopicReminderCreated, r.DossierID, events.ReminderCreated{Reminder: r})
	return r, nil
}

func (s *DealServer) completeReminder(ctx context.Context, id string) (*model.Reminder, error) {
	r, err := s.store.CompleteReminder(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("reminder")
	}
	if err != nil {
		return nil, fmt.Errorf("complete reminder: %w", err)
	}
	s.recordAndPublish(ctx, events.TopicReminderCompleted, r.DossierID, events.ReminderCompleted{Reminder: r})
	return r, nil
}
