package server

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/dealdesk/internal/auth"
	"github.com/alfredjeanlab/dealdesk/internal/model"
)

// handleListDossiers handles GET /api/dossiers. The body is a plain array;
// the unpaginated total is returned in X-Total-Count.
func (s *DealServer) handleListDossiers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.DossierFilter{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Viewer: auth.Subject(r.Context()),
	}

	if v := q.Get("statut"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			st, ok := model.ParseStatus(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid statut %q", raw))
				return
			}
			filter.Status = append(filter.Status, st)
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	dossiers, total, err := s.store.ListDossiers(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, fmt.Errorf("list dossiers: %w", err))
		return
	}
	if dossiers == nil {
		dossiers = []*model.Dossier{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, dossiers)
}

// handleCreateDossier handles POST /api/dossiers.
func (s *DealServer) handleCreateDossier(w http.ResponseWriter, r *http.Request) {
	var in createDossierInput
	if !decodeBody(w, r, &in) {
		return
	}
	d, err := s.createDossier(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleGetDossier handles GET /api/dossiers/{id}.
func (s *DealServer) handleGetDossier(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := s.store.GetDossier(r.Context(), id, auth.Subject(r.Context()))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "dossier not found")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, fmt.Errorf("get dossier: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleUpdateDossier handles PATCH /api/dossiers/{id}.
func (s *DealServer) handleUpdateDossier(w http.ResponseWriter, r *http.Request) {
	var in updateDossierInput
	if !decodeBody(w, r, &in) {
		return
	}
	d, err := s.updateDossier(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// statusBody accepts both the French and English spelling of the field.
type statusBody struct {
	Statut string `json:"statut"`
	Status string `json:"status"`
}

// handleUpdateStatus handles PATCH /api/dossiers/{id}/status.
func (s *DealServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if !decodeBody(w, r, &body) {
		return
	}
	v := body.Statut
	if v == "" {
		v = body.Status
	}
	d, err := s.changeStatus(r.Context(), r.PathValue("id"), v)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDossier handles DELETE /api/dossiers/{id}.
func (s *DealServer) handleDeleteDossier(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteDossier(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetRoadshow handles GET /api/dossiers/{id}/roadshow.
func (s *DealServer) handleGetRoadshow(w http.ResponseWriter, r *http.Request) {
	rs, err := s.roadshow(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// handleLinkCompany handles POST /api/dossiers/{id}/societes.
func (s *DealServer) handleLinkCompany(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CompanyID string `json:"societe_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	id := r.PathValue("id")
	if err := s.linkCompany(r.Context(), id, strings.TrimSpace(body.CompanyID)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"dossier_id": id, "societe_id": body.CompanyID})
}
