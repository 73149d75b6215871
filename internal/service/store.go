package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/google/uuid"
)

// Контракты хранилища. Реализации в internal/repository;
// все методы используют транзакцию из ctx, если она там есть.

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type SlotStore interface {
	Create(ctx context.Context, slot *model.AvailabilitySlot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error)
	List(ctx context.Context, filter model.SlotFilter) ([]*model.AvailabilitySlot, error)
	Claim(ctx context.Context, id uuid.UUID, now time.Time) (*model.AvailabilitySlot, error)
	Release(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*model.AvailabilitySlot, error)
	DeleteUnbooked(ctx context.Context, id uuid.UUID) (bool, error)
}

type ConsultationStore interface {
	Create(ctx context.Context, c *model.Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	GetByLeadID(ctx context.Context, leadID uuid.UUID) ([]*model.Consultation, error)
	GetScheduledByLeadIDForUpdate(ctx context.Context, leadID uuid.UUID) ([]*model.Consultation, error)
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.Consultation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ConsultationStatus) error
	Reassign(ctx context.Context, id, slotID uuid.UUID, scheduledAt time.Time) error
}

type LeadStore interface {
	Create(ctx context.Context, lead *model.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Lead, error)
	List(ctx context.Context, statuses []model.LeadStatus, limit int) ([]*model.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.LeadStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type EnrolmentStore interface {
	Create(ctx context.Context, e *model.Enrolment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Enrolment, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*model.Enrolment, error)
	GetDraftByLeadID(ctx context.Context, leadID uuid.UUID) (*model.Enrolment, error)
	SetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (*model.Enrolment, error)
	Submit(ctx context.Context, e *model.Enrolment, submittedAt time.Time) error
	AddStudent(ctx context.Context, s *model.EnrolmentStudent) error
	GetStudents(ctx context.Context, enrolmentID uuid.UUID) ([]*model.EnrolmentStudent, error)
	SetCheckout(ctx context.Context, id uuid.UUID, sessionID, url string) error
	ClearExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error)
}
