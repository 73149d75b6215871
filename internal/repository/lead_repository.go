package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/Freeeeeet/academy_portal/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, parent_name, email, phone, student_name, year_level, school, subjects, notes, source, status, created_at, updated_at`

type LeadRepository struct {
	*base.Repository
}

func NewLeadRepository(pool base.DB) *LeadRepository {
	return &LeadRepository{Repository: base.NewRepository(pool)}
}

func scanLead(row pgx.Row) (*model.Lead, error) {
	var lead model.Lead
	err := row.Scan(
		&lead.ID,
		&lead.ParentName,
		&lead.Email,
		&lead.Phone,
		&lead.StudentName,
		&lead.YearLevel,
		&lead.School,
		&lead.Subjects,
		&lead.Notes,
		&lead.Source,
		&lead.Status,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// Create создаёт лида
func (r *LeadRepository) Create(ctx context.Context, lead *model.Lead) error {
	query := `
		INSERT INTO leads (id, parent_name, email, phone, student_name, year_level, school, subjects, notes, source, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	subjects := lead.Subjects
	if subjects == nil {
		subjects = []string{}
	}

	err := r.QueryRow(
		ctx, query,
		lead.ID,
		lead.ParentName,
		lead.Email,
		lead.Phone,
		lead.StudentName,
		lead.YearLevel,
		lead.School,
		subjects,
		lead.Notes,
		lead.Source,
		lead.Status,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}

	return nil
}

// GetByID получает лида по ID
func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lead by id: %w", err)
	}

	return lead, nil
}

// List returns the newest leads with one of the statuses; empty statuses means all
func (r *LeadRepository) List(ctx context.Context, statuses []model.LeadStatus, limit int) ([]*model.Lead, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if len(statuses) == 0 {
		query := `
			SELECT ` + leadColumns + `
			FROM leads
			ORDER BY created_at DESC
			LIMIT $1
		`
		rows, err = r.Query(ctx, query, limit)
	} else {
		values := make([]string, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		query := `
			SELECT ` + leadColumns + `
			FROM leads
			WHERE status = ANY($1)
			ORDER BY created_at DESC
			LIMIT $2
		`
		rows, err = r.Query(ctx, query, values, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []*model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}

	return leads, nil
}

// UpdateStatus обновляет статус лида. false, если лида нет.
func (r *LeadRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.LeadStatus) (bool, error) {
	query := `
		UPDATE leads
		SET status = $1, updated_at = now()
		WHERE id = $2
	`

	affected, err := r.ExecAffected(ctx, query, status, id)
	if err != nil {
		return false, fmt.Errorf("update lead status: %w", err)
	}

	return affected > 0, nil
}

// Delete удаляет лида вместе с консультациями и записями (каскад)
func (r *LeadRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `DELETE FROM leads WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete lead: %w", err)
	}

	return affected > 0, nil
}
