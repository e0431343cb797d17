package views

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/client"
	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/querycache"
)

// InteractionCreator is the part of the client the interaction form needs.
type InteractionCreator interface {
	CreateInteraction(ctx context.Context, req *client.CreateInteractionRequest) (*model.Interaction, error)
}

// InteractionValues are the editable fields of the form.
type InteractionValues struct {
	Type      model.InteractionType
	Date      string
	Notes     string
	ContactID string
}

// formDateLayout is how the form pre-fills the date field.
const formDateLayout = "2006-01-02T15:04"

// DefaultInteractionValues is a call dated now.
func DefaultInteractionValues(now time.Time) InteractionValues {
	return InteractionValues{Type: model.InteractionCall, Date: now.Format(formDateLayout)}
}

// InteractionFormConfig places the form in its screen.
type InteractionFormConfig struct {
	DossierID string
	CompanyID string
	// FallbackDossierID is used when DossierID is empty.
	FallbackDossierID string
	// Actor is sent as the author. The server replaces it with the
	// authenticated principal when there is one.
	Actor string
	// OnCreated runs after a successful submission.
	OnCreated func(*model.Interaction)
}

// InteractionForm logs a contact with a company.
type InteractionForm struct {
	api      InteractionCreator
	cache    *querycache.Cache
	notifier Notifier
	cfg      InteractionFormConfig
	now      func() time.Time

	mu     sync.Mutex
	values InteractionValues
}

func NewInteractionForm(api InteractionCreator, cache *querycache.Cache, n Notifier, cfg InteractionFormConfig) *InteractionForm {
	f := &InteractionForm{api: api, cache: cache, notifier: n, cfg: cfg, now: time.Now}
	f.values = DefaultInteractionValues(f.now())
	return f
}

// Values returns the current field values.
func (f *InteractionForm) Values() InteractionValues {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// SetValues replaces the field values.
func (f *InteractionForm) SetValues(v InteractionValues) {
	f.mu.Lock()
	f.values = v
	f.mu.Unlock()
}

// DossierID is the dossier the interaction will be logged against.
func (f *InteractionForm) DossierID() string {
	if f.cfg.DossierID != "" {
		return f.cfg.DossierID
	}
	return f.cfg.FallbackDossierID
}

// Validate checks the fields without touching the network. It returns nil
// or a *model.ValidationError with one message per failing field.
func (f *InteractionForm) Validate() error {
	v := f.Values()
	var errs []model.FieldError
	if f.cfg.CompanyID == "" {
		errs = append(errs, model.FieldError{Field: "societe_id", Message: "is required"})
	}
	if !v.Type.IsValid() {
		errs = append(errs, model.FieldError{Field: "type", Message: "choose an interaction type"})
	}
	if strings.TrimSpace(v.Date) == "" {
		errs = append(errs, model.FieldError{Field: "date", Message: "is required"})
	} else if _, err := model.ParseDate(v.Date); err != nil {
		errs = append(errs, model.FieldError{Field: "date", Message: "is not a valid date"})
	}
	if strings.TrimSpace(v.Notes) == "" {
		errs = append(errs, model.FieldError{Field: "notes", Message: "is required"})
	}
	if len(errs) > 0 {
		return &model.ValidationError{Errors: errs}
	}
	return nil
}

// Submit validates and sends the interaction. A validation failure is
// returned without a request. On success the keys declared for
// create-interaction are invalidated, the fields are reset and OnCreated
// runs. On failure the fields keep what the user typed.
func (f *InteractionForm) Submit(ctx context.Context) (*model.Interaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	v := f.Values()
	dossierID := f.DossierID()

	created, err := f.api.CreateInteraction(ctx, &client.CreateInteractionRequest{
		DossierID: dossierID,
		CompanyID: f.cfg.CompanyID,
		ContactID: v.ContactID,
		Type:      string(v.Type),
		Date:      v.Date,
		Notes:     v.Notes,
		Author:    f.cfg.Actor,
	})
	if err != nil {
		notifyError(f.notifier, "Could not log the interaction", err)
		return nil, err
	}

	f.cache.InvalidateFor(querycache.MutationCreateInteraction, dossierID)
	f.SetValues(DefaultInteractionValues(f.now()))
	notifySuccess(f.notifier, "Interaction logged")
	if f.cfg.OnCreated != nil {
		f.cfg.OnCreated(created)
	}
	return created, nil
}
