package controller

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/controller/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// NewRouter собирает публичные и админские маршруты
func NewRouter(h *handlers.Handlers, adminKeyHash string, timeout time.Duration, logger *zap.Logger) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger(logger))
	router.Use(middleware.Recoverer)
	if timeout > 0 {
		router.Use(middleware.Timeout(timeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{"success": true})
	})

	router.Route("/api", func(r chi.Router) {
		// Публичная часть: форма консультации и запись
		r.Get("/slots/available", h.ListAvailableSlots)
		r.Post("/consultations", h.SubmitConsultation)
		r.Get("/enrolments/redeem", h.RedeemToken)
		r.Post("/enrolments", h.SubmitEnrolment)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuth(adminKeyHash, logger))

			r.Route("/slots", func(r chi.Router) {
				r.Get("/", h.ListSlots)
				r.Post("/", h.CreateSlot)
				r.Get("/{id}", h.GetSlot)
				r.Patch("/{id}", h.SetSlotEnabled)
				r.Delete("/{id}", h.DeleteSlot)
			})

			r.Route("/consultations", func(r chi.Router) {
				r.Get("/", h.ListConsultations)
				r.Route("/{id}", func(r chi.Router) {
					r.Post("/cancel", h.CancelConsultation)
					r.Post("/reschedule", h.RescheduleConsultation)
					r.Post("/complete", h.CompleteConsultation)
					r.Post("/no-show", h.MarkNoShow)
				})
			})

			r.Route("/leads", func(r chi.Router) {
				r.Get("/", h.ListLeads)
				r.Post("/", h.CreateLead)
				r.Get("/{id}", h.GetLead)
				r.Patch("/{id}/status", h.UpdateLeadStatus)
				r.Delete("/{id}", h.DeleteLead)
				r.Post("/{id}/continuation-link", h.IssueContinuationLink)
			})

			r.Get("/enrolments/{id}", h.GetEnrolment)
		})
	})

	return router
}
