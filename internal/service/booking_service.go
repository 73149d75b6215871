package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/events"
	"github.com/Freeeeeet/academy_portal/internal/lock"
	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/Freeeeeet/academy_portal/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	consultationListLimit    = 50
	maxConsultationListLimit = 200
)

// BookingResult is returned by a successful consultation submission
type BookingResult struct {
	LeadID         uuid.UUID               `json:"leadId"`
	ConsultationID uuid.UUID               `json:"consultationId"`
	Slot           *model.AvailabilitySlot `json:"slot"`
}

type BookingService struct {
	tx            Transactor
	slots         SlotStore
	consultations ConsultationStore
	leads         LeadStore
	validator     *Validator
	dispatcher    *Dispatcher
	locker        lock.Locker
	lockTTL       time.Duration
	loc           *time.Location
	now           func() time.Time
	logger        *zap.Logger
}

func NewBookingService(
	tx Transactor,
	slots SlotStore,
	consultations ConsultationStore,
	leads LeadStore,
	validator *Validator,
	dispatcher *Dispatcher,
	loc *time.Location,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:            tx,
		slots:         slots,
		consultations: consultations,
		leads:         leads,
		validator:     validator,
		dispatcher:    dispatcher,
		locker:        lock.Nop{},
		loc:           loc,
		now:           time.Now,
		logger:        logger,
	}
}

// WithSlotLock enables the per-slot fast-fail lock
func (s *BookingService) WithSlotLock(locker lock.Locker, ttl time.Duration) *BookingService {
	s.locker = locker
	s.lockTTL = ttl
	return s
}

// SubmitConsultation бронирует слот и создаёт лида с консультацией в одной транзакции
func (s *BookingService) SubmitConsultation(ctx context.Context, req model.ConsultationRequest) (*BookingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	slotID, err := uuid.Parse(req.SelectedSlotID)
	if err != nil {
		return nil, invalid("selectedSlotId: %v", err)
	}

	release, err := s.lockSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	lead := &model.Lead{
		ID:          uuid.New(),
		ParentName:  req.ParentName,
		Email:       req.Email,
		Phone:       req.Phone,
		StudentName: req.StudentName,
		YearLevel:   req.YearLevel,
		School:      req.School,
		Subjects:    req.Subjects,
		Notes:       req.Notes,
		Source:      req.Source,
		Status:      model.LeadStatusConsultationBooked,
	}

	var result *BookingResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Отсутствующий слот при бронировании тоже считается недоступным
		slot, err := s.claimSlot(ctx, slotID, now, ErrSlotUnavailable)
		if err != nil {
			return err
		}

		if err := s.leads.Create(ctx, lead); err != nil {
			return storageErr("create lead", err)
		}

		consultation := &model.Consultation{
			ID:          uuid.New(),
			LeadID:      lead.ID,
			SlotID:      &slot.ID,
			ScheduledAt: slot.StartTime,
			Status:      model.ConsultationStatusScheduled,
			Notes:       req.Notes,
		}
		if err := s.consultations.Create(ctx, consultation); err != nil {
			return storageErr("create consultation", err)
		}

		result = &BookingResult{
			LeadID:         lead.ID,
			ConsultationID: consultation.ID,
			Slot:           slot,
		}
		return nil
	})
	if err != nil {
		s.logger.Info("Consultation booking rejected",
			zap.String("slot_id", slotID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Consultation booked",
		zap.String("lead_id", result.LeadID.String()),
		zap.String("consultation_id", result.ConsultationID.String()),
		zap.String("slot_id", slotID.String()),
	)

	s.dispatcher.Emit(ctx,
		events.New(events.TypeConsultationBooked, lead.ID.String(), map[string]any{
			"consultation_id": result.ConsultationID,
			"slot_id":         slotID,
			"scheduled_at":    result.Slot.StartTime,
			"parent_name":     lead.ParentName,
			"email":           lead.Email,
			"student_name":    lead.StudentName,
		}),
		notify.ConsultationBooked(lead.ParentName, lead.StudentName, lead.Subjects, result.Slot.StartTime, s.loc),
	)

	return result, nil
}

// CancelConsultation отменяет консультацию и освобождает слот.
// Повторная отмена ничего не меняет и не считается ошибкой.
func (s *BookingService) CancelConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	var (
		consultation *model.Consultation
		changed      bool
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.lockConsultation(ctx, id)
		if err != nil {
			return err
		}
		consultation = c

		switch c.Status {
		case model.ConsultationStatusCancelled:
			return nil
		case model.ConsultationStatusCompleted, model.ConsultationStatusNoShow:
			return invalid("consultation is %s and cannot be cancelled", c.Status)
		}

		if c.SlotID != nil {
			if _, err := s.slots.Release(ctx, *c.SlotID); err != nil {
				return storageErr("release slot", err)
			}
		}

		if err := s.consultations.UpdateStatus(ctx, c.ID, model.ConsultationStatusCancelled); err != nil {
			return storageErr("cancel consultation", err)
		}

		if _, err := s.leads.UpdateStatus(ctx, c.LeadID, model.LeadStatusCancelled); err != nil {
			return storageErr("cancel lead", err)
		}

		c.Status = model.ConsultationStatusCancelled
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		s.logger.Debug("Consultation already cancelled", zap.String("consultation_id", id.String()))
		return consultation, nil
	}

	s.logger.Info("Consultation cancelled",
		zap.String("consultation_id", id.String()),
		zap.String("lead_id", consultation.LeadID.String()),
	)

	s.dispatcher.Emit(ctx,
		events.New(events.TypeConsultationCancelled, consultation.LeadID.String(), map[string]any{
			"consultation_id": consultation.ID,
			"scheduled_at":    consultation.ScheduledAt,
		}),
		notify.ConsultationCancelled(consultation.ScheduledAt, s.loc),
	)

	return consultation, nil
}

// RescheduleConsultation переносит консультацию на другой слот.
// Если новый слот заняли параллельно, ничего не меняется.
func (s *BookingService) RescheduleConsultation(ctx context.Context, id uuid.UUID, req model.RescheduleRequest) (*model.Consultation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	newSlotID, err := uuid.Parse(req.NewSlotID)
	if err != nil {
		return nil, invalid("newSlotId: %v", err)
	}

	release, err := s.lockSlot(ctx, newSlotID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()

	var (
		consultation *model.Consultation
		previous     time.Time
		moved        bool
	)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.lockConsultation(ctx, id)
		if err != nil {
			return err
		}
		consultation = c

		if c.Status != model.ConsultationStatusScheduled {
			return invalid("consultation is %s and cannot be rescheduled", c.Status)
		}

		if c.SlotID != nil && *c.SlotID == newSlotID {
			return nil
		}

		slot, err := s.claimSlot(ctx, newSlotID, now, ErrNotFound)
		if err != nil {
			return err
		}

		if c.SlotID != nil {
			if _, err := s.slots.Release(ctx, *c.SlotID); err != nil {
				return storageErr("release slot", err)
			}
		}

		if err := s.consultations.Reassign(ctx, c.ID, slot.ID, slot.StartTime); err != nil {
			return storageErr("reassign consultation", err)
		}

		previous = c.ScheduledAt
		c.SlotID = &slot.ID
		c.ScheduledAt = slot.StartTime
		c.Slot = slot
		moved = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !moved {
		return consultation, nil
	}

	s.logger.Info("Consultation rescheduled",
		zap.String("consultation_id", id.String()),
		zap.String("slot_id", newSlotID.String()),
		zap.Time("scheduled_at", consultation.ScheduledAt),
	)

	s.dispatcher.Emit(ctx,
		events.New(events.TypeConsultationRescheduled, consultation.LeadID.String(), map[string]any{
			"consultation_id":       consultation.ID,
			"slot_id":               newSlotID,
			"scheduled_at":          consultation.ScheduledAt,
			"previous_scheduled_at": previous,
		}),
		notify.ConsultationRescheduled(previous, consultation.ScheduledAt, s.loc),
	)

	return consultation, nil
}

// CompleteConsultation фиксирует, что консультация состоялась; лид на ранних этапах переходит в CONSULTED
func (s *BookingService) CompleteConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	return s.finish(ctx, id, model.ConsultationStatusCompleted)
}

// MarkNoShow фиксирует неявку; слот остаётся занятым
func (s *BookingService) MarkNoShow(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	return s.finish(ctx, id, model.ConsultationStatusNoShow)
}

func (s *BookingService) finish(ctx context.Context, id uuid.UUID, status model.ConsultationStatus) (*model.Consultation, error) {
	var (
		consultation *model.Consultation
		changed      bool
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.lockConsultation(ctx, id)
		if err != nil {
			return err
		}
		consultation = c

		if c.Status == status {
			return nil
		}
		if c.Status != model.ConsultationStatusScheduled {
			return invalid("consultation is %s and cannot become %s", c.Status, status)
		}

		if err := s.consultations.UpdateStatus(ctx, c.ID, status); err != nil {
			return storageErr("update consultation status", err)
		}

		if status == model.ConsultationStatusCompleted {
			lead, err := s.leads.GetByID(ctx, c.LeadID)
			if err != nil {
				return storageErr("get lead", err)
			}
			// Лид дальше по воронке (ENROLLED, ACTIVE ...) назад не двигаем
			if lead != nil && lead.Status.BeforeConsulted() {
				if _, err := s.leads.UpdateStatus(ctx, c.LeadID, model.LeadStatusConsulted); err != nil {
					return storageErr("update lead status", err)
				}
			}
		}

		c.Status = status
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("Consultation finished",
			zap.String("consultation_id", id.String()),
			zap.String("status", string(status)),
		)

		eventType := events.TypeConsultationCompleted
		if status == model.ConsultationStatusNoShow {
			eventType = events.TypeConsultationNoShow
		}

		s.dispatcher.Emit(ctx,
			events.New(eventType, consultation.LeadID.String(), map[string]any{
				"consultation_id": consultation.ID,
				"status":          status,
			}),
			"",
		)
	}

	return consultation, nil
}

// DeleteLead удаляет лида, предварительно освободив слоты его активных консультаций
func (s *BookingService) DeleteLead(ctx context.Context, id uuid.UUID) error {
	released := 0

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lead, err := s.leads.GetByID(ctx, id)
		if err != nil {
			return storageErr("get lead", err)
		}
		if lead == nil {
			return notFound("lead")
		}

		scheduled, err := s.consultations.GetScheduledByLeadIDForUpdate(ctx, id)
		if err != nil {
			return storageErr("get lead consultations", err)
		}

		for _, c := range scheduled {
			if c.SlotID == nil {
				continue
			}
			if _, err := s.slots.Release(ctx, *c.SlotID); err != nil {
				return storageErr("release slot", err)
			}
			released++
		}

		deleted, err := s.leads.Delete(ctx, id)
		if err != nil {
			return storageErr("delete lead", err)
		}
		if !deleted {
			return notFound("lead")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Lead deleted",
		zap.String("lead_id", id.String()),
		zap.Int("released_slots", released),
	)

	s.dispatcher.Emit(ctx,
		events.New(events.TypeLeadDeleted, id.String(), map[string]any{
			"released_slots": released,
		}),
		"",
	)

	return nil
}

// ListUpcomingConsultations returns scheduled consultations for the admin calendar.
// Zero from means now.
func (s *BookingService) ListUpcomingConsultations(ctx context.Context, from time.Time, limit int) ([]*model.Consultation, error) {
	if from.IsZero() {
		from = s.now()
	}
	if limit <= 0 {
		limit = consultationListLimit
	}
	if limit > maxConsultationListLimit {
		limit = maxConsultationListLimit
	}

	consultations, err := s.consultations.ListUpcoming(ctx, from.UTC(), limit)
	if err != nil {
		return nil, storageErr("list upcoming consultations", err)
	}

	return consultations, nil
}

func (s *BookingService) lockConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	c, err := s.consultations.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, storageErr("get consultation", err)
	}
	if c == nil {
		return nil, notFound("consultation")
	}
	return c, nil
}

// claimSlot занимает слот условным UPDATE. missing задаёт ошибку для несуществующего слота.
func (s *BookingService) claimSlot(ctx context.Context, id uuid.UUID, now time.Time, missing error) (*model.AvailabilitySlot, error) {
	slot, err := s.slots.Claim(ctx, id, now)
	if err != nil {
		return nil, storageErr("claim slot", err)
	}
	if slot != nil {
		return slot, nil
	}

	existing, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get slot", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("slot %s does not exist: %w", id, missing)
	}

	reason := "already booked"
	switch {
	case existing.IsBookable(now):
		// освободился между UPDATE и чтением; клиенту достаточно повторить попытку
		reason = "busy"
	case !existing.IsEnabled:
		reason = "disabled"
	case !existing.StartTime.After(now):
		reason = "in the past"
	}
	return nil, fmt.Errorf("slot %s is %s: %w", id, reason, ErrSlotUnavailable)
}

// lockSlot берёт быстрый замок на слот. Недоступность Redis не блокирует бронирование:
// корректность обеспечивает условный UPDATE.
func (s *BookingService) lockSlot(ctx context.Context, id uuid.UUID) (func(), error) {
	release, err := s.locker.Acquire(ctx, "slot:"+id.String(), s.lockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, fmt.Errorf("slot %s is being booked: %w", id, ErrSlotUnavailable)
	}
	if err != nil {
		s.logger.Warn("Slot lock unavailable, continuing without it",
			zap.String("slot_id", id.String()),
			zap.Error(fmt.Errorf("%w: %w", ErrDependencyFailure, err)),
		)
		return func() {}, nil
	}

	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release slot lock",
				zap.String("slot_id", id.String()),
				zap.Error(err),
			)
		}
	}, nil
}
