package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/dealdesk/internal/model"
)

// handleListCompanies handles GET /api/societes.
func (s *DealServer) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		s.writeServiceError(w, r, fmt.Errorf("list companies: %w", err))
		return
	}
	if companies == nil {
		companies = []*model.Company{}
	}
	writeJSON(w, http.StatusOK, companies)
}

// handleCreateCompany handles POST /api/societes.
func (s *DealServer) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var in createCompanyInput
	if !decodeBody(w, r, &in) {
		return
	}
	c, err := s.createCompany(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleListInteractions handles GET /api/interactions.
func (s *DealServer) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListInteractions(r.Context(), r.URL.Query().Get("dossier_id"))
	if err != nil {
		s.writeServiceError(w, r, fmt.Errorf("list interactions: %w", err))
		return
	}
	if items == nil {
		items = []*model.Interaction{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleCreateInteraction handles POST /api/interactions.
func (s *DealServer) handleCreateInteraction(w http.ResponseWriter, r *http.Request) {
	var in createInteractionInput
	if !decodeBody(w, r, &in) {
		return
	}
	i, err := s.createInteraction(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, i)
}

// handleListReminders handles GET /api/rappels. With echus=true only open
// reminders past their due time are returned.
func (s *DealServer) handleListReminders(w http.ResponseWriter, r *http.Request) {
	overdue := false
	if v := r.URL.Query().Get("echus"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "echus must be a boolean")
			return
		}
		overdue = b
	}

	var items []*model.Reminder
	var err error
	if overdue {
		now := s.now()
		items, err = s.store.ListReminders(r.Context(), &now)
	} else {
		items, err = s.store.ListReminders(r.Context(), nil)
	}
	if err != nil {
		s.writeServiceError(w, r, fmt.Errorf("list reminders: %w", err))
		return
	}
	if items == nil {
		items = []*model.Reminder{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleCreateReminder handles POST /api/rappels.
func (s *DealServer) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var in createReminderInput
	if !decodeBody(w, r, &in) {
		return
	}
	rem, err := s.createReminder(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

// handleCompleteReminder handles POST /api/rappels/{id}/fait.
func (s *DealServer) handleCompleteReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := s.completeReminder(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

// handleGetStats handles GET /api/dashboard/stats.
func (s *DealServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context(), s.now())
	if err != nil {
		s.writeServiceError(w, r, fmt.Errorf("get stats: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
