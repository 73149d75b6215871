package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxSlotListLimit = 200
	slotInputLayout  = "2006-01-02 15:04"
)

type SlotService struct {
	slots     SlotStore
	validator *Validator
	loc       *time.Location
	listLimit int
	now       func() time.Time
	logger    *zap.Logger
}

func NewSlotService(
	slots SlotStore,
	validator *Validator,
	loc *time.Location,
	listLimit int,
	logger *zap.Logger,
) *SlotService {
	return &SlotService{
		slots:     slots,
		validator: validator,
		loc:       loc,
		listLimit: listLimit,
		now:       time.Now,
		logger:    logger,
	}
}

// CreateSlot создаёт слот; дата и время задаются по часам академии
func (s *SlotService) CreateSlot(ctx context.Context, req model.CreateSlotRequest) (*model.AvailabilitySlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	start, err := time.ParseInLocation(slotInputLayout, req.Date+" "+req.Time, s.loc)
	if err != nil {
		return nil, invalid("date and time: %v", err)
	}

	if !start.After(s.now()) {
		return nil, invalid("slot must start in the future")
	}

	start = start.UTC()
	slot := &model.AvailabilitySlot{
		ID:        uuid.New(),
		StartTime: start,
		EndTime:   start.Add(time.Duration(req.DurationMinutes) * time.Minute),
		IsEnabled: true,
	}

	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, storageErr("create slot", err)
	}

	s.logger.Info("Slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.Time("start_time", slot.StartTime),
		zap.Int("duration_minutes", req.DurationMinutes),
	)

	return slot, nil
}

// ListSlots возвращает будущие слоты по фильтру, ближайшие первыми
func (s *SlotService) ListSlots(ctx context.Context, filter model.SlotFilter) ([]*model.AvailabilitySlot, error) {
	filter.From = s.now()
	if filter.Limit <= 0 {
		filter.Limit = s.listLimit
	}
	if filter.Limit > maxSlotListLimit {
		filter.Limit = maxSlotListLimit
	}

	slots, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, storageErr("list slots", err)
	}

	return slots, nil
}

// ListAvailableSlots is the public view: enabled, unbooked, future
func (s *SlotService) ListAvailableSlots(ctx context.Context) ([]*model.AvailabilitySlot, error) {
	enabled, booked := true, false
	return s.ListSlots(ctx, model.SlotFilter{Enabled: &enabled, Booked: &booked})
}

func (s *SlotService) GetSlot(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error) {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get slot", err)
	}
	if slot == nil {
		return nil, notFound("slot")
	}
	return slot, nil
}

// SetSlotEnabled скрывает слот из публичного списка или возвращает его
func (s *SlotService) SetSlotEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*model.AvailabilitySlot, error) {
	slot, err := s.slots.SetEnabled(ctx, id, enabled)
	if err != nil {
		return nil, storageErr("set slot enabled", err)
	}
	if slot == nil {
		return nil, notFound("slot")
	}

	s.logger.Info("Slot visibility changed",
		zap.String("slot_id", id.String()),
		zap.Bool("enabled", enabled),
	)

	return slot, nil
}

// DeleteSlot удаляет слот одним условным DELETE, забронированный слот не трогает
func (s *SlotService) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.slots.DeleteUnbooked(ctx, id)
	if err != nil {
		return storageErr("delete slot", err)
	}

	if !deleted {
		slot, err := s.slots.GetByID(ctx, id)
		if err != nil {
			return storageErr("get slot", err)
		}
		if slot == nil {
			return notFound("slot")
		}
		return fmt.Errorf("slot is booked and cannot be deleted: %w", ErrSlotUnavailable)
	}

	s.logger.Info("Slot deleted", zap.String("slot_id", id.String()))
	return nil
}
