package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/Freeeeeet/academy_portal/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const consultationColumns = `id, lead_id, slot_id, scheduled_at, status, notes, created_at, updated_at`

type ConsultationRepository struct {
	*base.Repository
}

func NewConsultationRepository(pool base.DB) *ConsultationRepository {
	return &ConsultationRepository{Repository: base.NewRepository(pool)}
}

func scanConsultation(row pgx.Row) (*model.Consultation, error) {
	var c model.Consultation
	err := row.Scan(
		&c.ID,
		&c.LeadID,
		&c.SlotID,
		&c.ScheduledAt,
		&c.Status,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConsultationRepository) collect(rows pgx.Rows) ([]*model.Consultation, error) {
	defer rows.Close()

	var consultations []*model.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		consultations = append(consultations, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consultations: %w", err)
	}

	return consultations, nil
}

// Create создаёт консультацию
func (r *ConsultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (id, lead_id, slot_id, scheduled_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		c.ID,
		c.LeadID,
		c.SlotID,
		c.ScheduledAt,
		c.Status,
		c.Notes,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create consultation: %w", err)
	}

	return nil
}

// GetByID получает консультацию по ID
func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1`

	c, err := scanConsultation(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get consultation by id: %w", err)
	}

	return c, nil
}

// GetByIDForUpdate locks the consultation row until the transaction ends
func (r *ConsultationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1 FOR UPDATE`

	c, err := scanConsultation(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock consultation: %w", err)
	}

	return c, nil
}

// GetByLeadID получает все консультации лида
func (r *ConsultationRepository) GetByLeadID(ctx context.Context, leadID uuid.UUID) ([]*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE lead_id = $1
		ORDER BY scheduled_at DESC
	`

	rows, err := r.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("get consultations by lead: %w", err)
	}

	return r.collect(rows)
}

// GetScheduledByLeadIDForUpdate locks the lead's consultations that still hold a slot
func (r *ConsultationRepository) GetScheduledByLeadIDForUpdate(ctx context.Context, leadID uuid.UUID) ([]*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE lead_id = $1 AND status = $2
		FOR UPDATE
	`

	rows, err := r.Query(ctx, query, leadID, model.ConsultationStatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("get scheduled consultations by lead: %w", err)
	}

	return r.collect(rows)
}

// ListUpcoming returns scheduled consultations from the given moment, earliest first
func (r *ConsultationRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE status = $1 AND scheduled_at >= $2
		ORDER BY scheduled_at
		LIMIT $3
	`

	rows, err := r.Query(ctx, query, model.ConsultationStatusScheduled, from, limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming consultations: %w", err)
	}

	return r.collect(rows)
}

// UpdateStatus обновляет статус консультации
func (r *ConsultationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ConsultationStatus) error {
	query := `
		UPDATE consultations
		SET status = $1, updated_at = now()
		WHERE id = $2
	`

	affected, err := r.ExecAffected(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update consultation status: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("consultation not found")
	}

	return nil
}

// Reassign moves the consultation to another slot and marks it scheduled
func (r *ConsultationRepository) Reassign(ctx context.Context, id, slotID uuid.UUID, scheduledAt time.Time) error {
	query := `
		UPDATE consultations
		SET slot_id = $1, scheduled_at = $2, status = $3, updated_at = now()
		WHERE id = $4
	`

	affected, err := r.ExecAffected(ctx, query, slotID, scheduledAt, model.ConsultationStatusScheduled, id)
	if err != nil {
		return fmt.Errorf("reassign consultation: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("consultation not found")
	}

	return nil
}
