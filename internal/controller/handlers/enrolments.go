package handlers

import (
	"net/http"

	"github.com/Freeeeeet/academy_portal/internal/model"
)

// IssueContinuationLink POST /api/admin/leads/{id}/continuation-link
func (h *Handlers) IssueContinuationLink(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}

	link, err := h.enrolments.IssueContinuationLink(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.IssueContinuationLink", err)
		return
	}
	ok(w, r, http.StatusCreated, map[string]any{
		"enrolmentId": link.EnrolmentID,
		"url":         link.URL,
		"expiresAt":   link.ExpiresAt,
	})
}

// RedeemToken GET /api/enrolments/redeem?token=
func (h *Handlers) RedeemToken(w http.ResponseWriter, r *http.Request) {
	prefill, err := h.enrolments.RedeemToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.fail(w, r, "handlers.RedeemToken", err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"prefill": prefill})
}

// SubmitEnrolment POST /api/enrolments
func (h *Handlers) SubmitEnrolment(w http.ResponseWriter, r *http.Request) {
	var req model.EnrolmentRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.enrolments.SubmitEnrolment(r.Context(), req)
	if err != nil {
		h.fail(w, r, "handlers.SubmitEnrolment", err)
		return
	}

	data := map[string]any{"enrolmentId": res.Enrolment.ID}
	if res.CheckoutURL != "" {
		data["checkoutUrl"] = res.CheckoutURL
	}
	ok(w, r, http.StatusCreated, data)
}

// GetEnrolment GET /api/admin/enrolments/{id}
func (h *Handlers) GetEnrolment(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}

	enrolment, err := h.enrolments.GetEnrolment(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.GetEnrolment", err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"enrolment": enrolment})
}
