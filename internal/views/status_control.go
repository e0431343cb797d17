package views

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/querycache"
)

// StatusUpdater is the part of the client the status control needs.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Dossier, error)
}

// StatusControl changes the status of a dossier. Calls are independent: no
// debouncing and no ordering between concurrent changes.
type StatusControl struct {
	api      StatusUpdater
	cache    *querycache.Cache
	notifier Notifier
}

func NewStatusControl(api StatusUpdater, cache *querycache.Cache, n Notifier) *StatusControl {
	return &StatusControl{api: api, cache: cache, notifier: n}
}

// Change sets the status of dossierID. value may be a wire value or a label;
// an unknown value fails before any request is made. On success the keys
// declared for update-status are invalidated. Every outcome is notified.
func (c *StatusControl) Change(ctx context.Context, dossierID, value string) (*model.Dossier, error) {
	status, ok := model.ParseStatus(value)
	if !ok {
		err := &model.ValidationError{Errors: []model.FieldError{
			{Field: "statut", Message: fmt.Sprintf("invalid value %q", value)},
		}}
		notifyError(c.notifier, "Invalid status", err)
		return nil, err
	}

	d, err := c.api.UpdateStatus(ctx, dossierID, status)
	if err != nil {
		notifyError(c.notifier, "Could not update the status", err)
		return nil, err
	}
	c.cache.InvalidateFor(querycache.MutationUpdateStatus, dossierID)
	notifySuccess(c.notifier, "Status changed to "+status.Label())
	return d, nil
}
