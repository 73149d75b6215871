package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/Freeeeeet/academy_portal/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, start_time, end_time, is_enabled, is_booked, current_bookings, created_at, updated_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool base.DB) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

func scanSlot(row pgx.Row) (*model.AvailabilitySlot, error) {
	var slot model.AvailabilitySlot
	err := row.Scan(
		&slot.ID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.IsEnabled,
		&slot.IsBooked,
		&slot.CurrentBookings,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.AvailabilitySlot) error {
	query := `
		INSERT INTO availability_slots (id, start_time, end_time, is_enabled, is_booked, current_bookings)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.ID,
		slot.StartTime,
		slot.EndTime,
		slot.IsEnabled,
		slot.IsBooked,
		slot.CurrentBookings,
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// List returns slots starting after filter.From, earliest first
func (r *SlotRepository) List(ctx context.Context, filter model.SlotFilter) ([]*model.AvailabilitySlot, error) {
	conditions := []string{"start_time > $1"}
	args := []any{filter.From}

	if filter.Enabled != nil {
		args = append(args, *filter.Enabled)
		conditions = append(conditions, fmt.Sprintf("is_enabled = $%d", len(args)))
	}
	if filter.Booked != nil {
		args = append(args, *filter.Booked)
		conditions = append(conditions, fmt.Sprintf("is_booked = $%d", len(args)))
	}
	args = append(args, filter.Limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM availability_slots
		WHERE %s
		ORDER BY start_time
		LIMIT $%d
	`, slotColumns, strings.Join(conditions, " AND "), len(args))

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// Claim бронирует слот, только если он включён, свободен и в будущем.
// Возвращает nil, если слот занять не удалось.
func (r *SlotRepository) Claim(ctx context.Context, id uuid.UUID, now time.Time) (*model.AvailabilitySlot, error) {
	query := `
		UPDATE availability_slots
		SET is_booked = true, current_bookings = current_bookings + 1, updated_at = now()
		WHERE id = $1
		  AND is_enabled
		  AND NOT is_booked
		  AND current_bookings < $2
		  AND start_time > $3
		RETURNING ` + slotColumns

	slot, err := scanSlot(r.QueryRow(ctx, query, id, model.SlotCapacity, now))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim slot: %w", err)
	}

	return slot, nil
}

// Release освобождает слот; счётчик не уходит ниже нуля
func (r *SlotRepository) Release(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error) {
	query := `
		UPDATE availability_slots
		SET current_bookings = GREATEST(current_bookings - 1, 0),
		    is_booked = GREATEST(current_bookings - 1, 0) >= 1,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + slotColumns

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("release slot: %w", err)
	}

	return slot, nil
}

// SetEnabled скрывает или показывает слот
func (r *SlotRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*model.AvailabilitySlot, error) {
	query := `
		UPDATE availability_slots
		SET is_enabled = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + slotColumns

	slot, err := scanSlot(r.QueryRow(ctx, query, id, enabled))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("set slot enabled: %w", err)
	}

	return slot, nil
}

// DeleteUnbooked удаляет слот, если он не забронирован
func (r *SlotRepository) DeleteUnbooked(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `DELETE FROM availability_slots WHERE id = $1 AND NOT is_booked`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete slot: %w", err)
	}

	return affected > 0, nil
}
