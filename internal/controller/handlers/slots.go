package handlers

import (
	"net/http"
	"strconv"

	"github.com/Freeeeeet/academy_portal/internal/model"
)

// ListAvailableSlots GET /api/slots/available
func (h *Handlers) ListAvailableSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots.ListAvailableSlots(r.Context())
	if err != nil {
		h.fail(w, r, "handlers.ListAvailableSlots", err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"slots": nonNilSlots(slots)})
}

// ListSlots GET /api/admin/slots?enabled=&booked=&limit=
func (h *Handlers) ListSlots(w http.ResponseWriter, r *http.Request) {
	var filter model.SlotFilter
	var err error

	if filter.Enabled, err = queryBool(r, "enabled"); err != nil {
		badRequest(w, r, "invalid enabled filter")
		return
	}
	if filter.Booked, err = queryBool(r, "booked"); err != nil {
		badRequest(w, r, "invalid booked filter")
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil || filter.Limit < 1 {
			badRequest(w, r, "invalid limit")
			return
		}
	}

	slots, err := h.slots.ListSlots(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "handlers.ListSlots", err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"slots": nonNilSlots(slots)})
}

// CreateSlot POST /api/admin/slots
func (h *Handlers) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSlotRequest
	if !decode(w, r, &req) {
		return
	}

	slot, err := h.slots.CreateSlot(r.Context(), req)
	if err != nil {
		h.fail(w, r, "handlers.CreateSlot", err)
		return
	}
	ok(w, r, http.StatusCreated, map[string]any{"slot": slot})
}

// GetSlot GET /api/admin/slots/{id}
func (h *Handlers) GetSlot(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}

	slot, err := h.slots.GetSlot(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.GetSlot", err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"slot": slot})
}

// SetSlotEnabled PATCH /api/admin/slots/{id}
func (h *Handlers) SetSlotEnabled(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}

	var req model.SetSlotEnabledRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		badRequest(w, r, "enabled is required")
		return
	}

	slot, err := h.slots.SetSlotEnabled(r.Context(), id, *req.Enabled)
	if err != nil {
		h.fail(w, r, "handlers.SetSlotEnabled", err)
		return
	}
	ok(w, r, http.StatusOK, map[string]any{"slot": slot})
}

// DeleteSlot DELETE /api/admin/slots/{id}
func (h *Handlers) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r)
	if !valid {
		return
	}

	if err := h.slots.DeleteSlot(r.Context(), id); err != nil {
		h.fail(w, r, "handlers.DeleteSlot", err)
		return
	}
	ok(w, r, http.StatusOK, nil)
}

func nonNilSlots(slots []*model.AvailabilitySlot) []*model.AvailabilitySlot {
	if slots == nil {
		return []*model.AvailabilitySlot{}
	}
	return slots
}
