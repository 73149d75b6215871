package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/Freeeeeet/academy_portal/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Сервисы, которые нужны обработчикам. Реализации в internal/service.

type SlotService interface {
	CreateSlot(ctx context.Context, req model.CreateSlotRequest) (*model.AvailabilitySlot, error)
	ListSlots(ctx context.Context, filter model.SlotFilter) ([]*model.AvailabilitySlot, error)
	ListAvailableSlots(ctx context.Context) ([]*model.AvailabilitySlot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error)
	SetSlotEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*model.AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
}

type BookingService interface {
	SubmitConsultation(ctx context.Context, req model.ConsultationRequest) (*service.BookingResult, error)
	CancelConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	RescheduleConsultation(ctx context.Context, id uuid.UUID, req model.RescheduleRequest) (*model.Consultation, error)
	CompleteConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	DeleteLead(ctx context.Context, id uuid.UUID) error
	ListUpcomingConsultations(ctx context.Context, from time.Time, limit int) ([]*model.Consultation, error)
}

type LeadService interface {
	CreateLead(ctx context.Context, req model.LeadRequest) (*model.Lead, error)
	GetLead(ctx context.Context, id uuid.UUID) (*model.Lead, error)
	ListLeads(ctx context.Context, view, status string) ([]*model.Lead, error)
	UpdateLeadStatus(ctx context.Context, id uuid.UUID, req model.LeadStatusRequest) (*model.Lead, error)
}

type EnrolmentService interface {
	IssueContinuationLink(ctx context.Context, leadID uuid.UUID) (*service.ContinuationLink, error)
	RedeemToken(ctx context.Context, token string) (*service.EnrolmentPrefill, error)
	SubmitEnrolment(ctx context.Context, req model.EnrolmentRequest) (*service.EnrolmentResult, error)
	GetEnrolment(ctx context.Context, id uuid.UUID) (*model.Enrolment, error)
}

// Handlers содержит все зависимости HTTP-обработчиков
type Handlers struct {
	slots      SlotService
	booking    BookingService
	leads      LeadService
	enrolments EnrolmentService
	logger     *zap.Logger
}

// NewHandlers создаёт набор обработчиков
func NewHandlers(
	slots SlotService,
	booking BookingService,
	leads LeadService,
	enrolments EnrolmentService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		slots:      slots,
		booking:    booking,
		leads:      leads,
		enrolments: enrolments,
		logger:     logger,
	}
}
