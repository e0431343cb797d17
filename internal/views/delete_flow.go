package views

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alfredjeanlab/dealdesk/internal/querycache"
)

// DossierDeleter is the part of the client the delete flow needs.
type DossierDeleter interface {
	DeleteDossier(ctx context.Context, id string) error
}

// DeleteState is a state of the delete confirmation dialog.
type DeleteState int

const (
	DeleteIdle DeleteState = iota
	DeleteConfirming
	DeleteDeleting
)

func (s DeleteState) String() string {
	switch s {
	case DeleteIdle:
		return "idle"
	case DeleteConfirming:
		return "confirming"
	case DeleteDeleting:
		return "deleting"
	}
	return fmt.Sprintf("DeleteState(%d)", int(s))
}

// ErrIllegalTransition is returned when a delete flow operation is called
// from a state that does not allow it.
var ErrIllegalTransition = errors.New("illegal delete flow transition")

// DeleteFlow is the confirm-before-delete dialog for one dossier.
//
//	Idle --RequestDelete--> Confirming --Confirm--> Deleting --> Idle
//	                        Confirming --Cancel---> Idle
type DeleteFlow struct {
	api       DossierDeleter
	cache     *querycache.Cache
	notifier  Notifier
	navigator Navigator
	dossierID string

	mu    sync.Mutex
	state DeleteState
}

func NewDeleteFlow(dossierID string, api DossierDeleter, cache *querycache.Cache, n Notifier, nav Navigator) *DeleteFlow {
	return &DeleteFlow{api: api, cache: cache, notifier: n, navigator: nav, dossierID: dossierID}
}

// State returns the current state.
func (f *DeleteFlow) State() DeleteState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// DialogOpen reports whether the confirmation dialog is shown.
func (f *DeleteFlow) DialogOpen() bool {
	return f.State() != DeleteIdle
}

func (f *DeleteFlow) transition(op string, from, to DeleteState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != from {
		return fmt.Errorf("%w: %s while %s", ErrIllegalTransition, op, f.state)
	}
	f.state = to
	return nil
}

// RequestDelete opens the dialog. Nothing is sent.
func (f *DeleteFlow) RequestDelete() error {
	return f.transition("request delete", DeleteIdle, DeleteConfirming)
}

// Cancel closes the dialog without deleting.
func (f *DeleteFlow) Cancel() error {
	return f.transition("cancel", DeleteConfirming, DeleteIdle)
}

// Confirm deletes the dossier. The dialog closes whatever the outcome. On
// success the list keys are invalidated and the user is sent to "/"; on
// failure an error is notified and the API error returned.
func (f *DeleteFlow) Confirm(ctx context.Context) error {
	if err := f.transition("confirm", DeleteConfirming, DeleteDeleting); err != nil {
		return err
	}

	err := f.api.DeleteDossier(ctx, f.dossierID)

	f.mu.Lock()
	f.state = DeleteIdle
	f.mu.Unlock()

	if err != nil {
		notifyError(f.notifier, "Could not delete the dossier", err)
		return err
	}
	f.cache.InvalidateFor(querycache.MutationDeleteDossier, f.dossierID)
	notifySuccess(f.notifier, "Dossier deleted")
	if f.navigator != nil {
		f.navigator.Navigate("/")
	}
	return nil
}
