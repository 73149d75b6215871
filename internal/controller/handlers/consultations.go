package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/google/uuid"
)

// SubmitConsultation POST /api/consultations
func (h *Handlers) SubmitConsultation(w http.ResponseWriter, r *http.Request) {
	var req model.ConsultationRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.booking.SubmitConsultation(r.Context(), req)
	if err != nil {
		h.fail(w, r, "handlers.SubmitConsultation", err)
		return
	}

	ok(w, r, http.StatusCreated, map[string]any{
		"leadId":         res.LeadID,
		"consultationId": res.ConsultationID,
		"scheduledAt":    res.Slot.StartTime,
	})
}

// ListConsultations GET /api/admin/consultations?from=&limit=
func (h *Handlers) ListConsultations(w http.ResponseWriter, r *http.Request) {
	var (
		from  time.Time
		limit int
		err   error
	)

	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			badRequest(w, r, "invalid from, expected RFC3339")
			return
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 1 {
			badRequest(w, r, "invalid limit")
			return
		}
	}

	consultations, err := h.booking.ListUpcomingConsultations(r.Context(), from, limit)
	if err != nil {
		h.fail(w, r, "handlers.ListConsultations", err)
		return
	}
	if consultations == nil {
		consultations = []*model.Consultation{}
	}
	ok(w, r, http.StatusOK, map[string]any{"consultations": consultations})
}

// CancelConsultation POST /api/admin/consultations/{id}/cancel
func (h *Handlers) CancelConsultation(w http.ResponseWriter, r *http.Request) {
	h.consultationAction(w, r, "handlers.CancelConsultation", h.booking.CancelConsultation)
}

// CompleteConsultation POST /api/admin/consultations/{id}/complete
func (h *Handlers) CompleteConsultation(w http.ResponseWriter, r *http.Request) {
	h.consultationAction(w, r, "handlers.CompleteConsultation", h.booking.CompleteConsultation)
}

// MarkNoShow POST /api/admin/consultations/{id}/no-show
func (h *Handlers) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.consultationAction(w, r, "handlers.MarkNoShow", h.booking.MarkNoShow)
}

// RescheduleConsultation POST /api/admin/consultations/{id}/reschedule
func (h *Handlers) RescheduleConsultation(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}

	var req model.RescheduleRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := h.booking.RescheduleConsultation(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, "handlers.RescheduleConsultation", err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"consultation": c})
}

func (h *Handlers) consultationAction(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	action func(ctx context.Context, id uuid.UUID) (*model.Consultation, error),
) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}

	c, err := action(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"consultation": c})
}
