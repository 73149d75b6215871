package handlers

import (
	"net/http"

	"github.com/Freeeeeet/academy_portal/internal/model"
)

// ListLeads GET /api/admin/leads?view=pipeline|active|all&status=
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	leads, err := h.leads.ListLeads(r.Context(), q.Get("view"), q.Get("status"))
	if err != nil {
		h.fail(w, r, "handlers.ListLeads", err)
		return
	}
	if leads == nil {
		leads = []*model.Lead{}
	}
	ok(w, r, http.StatusOK, map[string]any{"leads": leads})
}

// CreateLead POST /api/admin/leads
func (h *Handlers) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req model.LeadRequest
	if !decode(w, r, &req) {
		return
	}

	lead, err := h.leads.CreateLead(r.Context(), req)
	if err != nil {
		h.fail(w, r, "handlers.CreateLead", err)
		return
	}
	ok(w, r, http.StatusCreated, map[string]any{"lead": lead})
}

// GetLead GET /api/admin/leads/{id}
func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}

	lead, err := h.leads.GetLead(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.GetLead", err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"lead": lead})
}

// UpdateLeadStatus PATCH /api/admin/leads/{id}/status
func (h *Handlers) UpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}

	var req model.LeadStatusRequest
	if !decode(w, r, &req) {
		return
	}

	lead, err := h.leads.UpdateLeadStatus(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, "handlers.UpdateLeadStatus", err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"lead": lead})
}

// DeleteLead DELETE /api/admin/leads/{id}
func (h *Handlers) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}

	if err := h.booking.DeleteLead(r.Context(), id); err != nil {
		h.fail(w, r, "handlers.DeleteLead", err)
		return
	}
	ok(w, r, http.StatusOK, nil)
}
