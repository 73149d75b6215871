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

const enrolmentColumns = `id, lead_id, parent_name, parent_email, parent_phone, address, status,
	token_hash, token_expires_at, token_used, checkout_session_id, checkout_url, submitted_at, created_at, updated_at`

const studentColumns = `id, enrolment_id, student_name, year_level, school, subjects, subject_hours,
	weekly_hours, preferred_days, preferred_times, created_at`

type EnrolmentRepository struct {
	*base.Repository
}

func NewEnrolmentRepository(pool base.DB) *EnrolmentRepository {
	return &EnrolmentRepository{Repository: base.NewRepository(pool)}
}

func scanEnrolment(row pgx.Row) (*model.Enrolment, error) {
	var e model.Enrolment
	err := row.Scan(
		&e.ID,
		&e.LeadID,
		&e.ParentName,
		&e.ParentEmail,
		&e.ParentPhone,
		&e.Address,
		&e.Status,
		&e.TokenHash,
		&e.TokenExpiresAt,
		&e.TokenUsed,
		&e.CheckoutSessionID,
		&e.CheckoutURL,
		&e.SubmittedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrolmentRepository) getOne(ctx context.Context, op, query string, args ...any) (*model.Enrolment, error) {
	e, err := scanEnrolment(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// Create создаёт запись о зачислении (без учеников)
func (r *EnrolmentRepository) Create(ctx context.Context, e *model.Enrolment) error {
	query := `
		INSERT INTO enrolments (id, lead_id, parent_name, parent_email, parent_phone, address, status,
			token_hash, token_expires_at, token_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		e.ID,
		e.LeadID,
		e.ParentName,
		e.ParentEmail,
		e.ParentPhone,
		e.Address,
		e.Status,
		e.TokenHash,
		e.TokenExpiresAt,
		e.TokenUsed,
	).Scan(&e.CreatedAt, &e.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create enrolment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *EnrolmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Enrolment, error) {
	query := `SELECT ` + enrolmentColumns + ` FROM enrolments WHERE id = $1`
	return r.getOne(ctx, "get enrolment by id", query, id)
}

// GetByTokenHash finds the enrolment carrying the continuation token
func (r *EnrolmentRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*model.Enrolment, error) {
	query := `SELECT ` + enrolmentColumns + ` FROM enrolments WHERE token_hash = $1`
	return r.getOne(ctx, "get enrolment by token", query, tokenHash)
}

// GetDraftByLeadID получает черновик зачисления для лида
func (r *EnrolmentRepository) GetDraftByLeadID(ctx context.Context, leadID uuid.UUID) (*model.Enrolment, error) {
	query := `
		SELECT ` + enrolmentColumns + `
		FROM enrolments
		WHERE lead_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, "get draft enrolment by lead", query, leadID, model.EnrolmentStatusDraft)
}

// SetToken replaces the continuation token of a draft enrolment
func (r *EnrolmentRepository) SetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE enrolments
		SET token_hash = $1, token_expires_at = $2, token_used = false, updated_at = now()
		WHERE id = $3
	`

	affected, err := r.ExecAffected(ctx, query, tokenHash, expiresAt, id)
	if err != nil {
		return fmt.Errorf("set enrolment token: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("enrolment not found")
	}

	return nil
}

// ConsumeToken marks the token used if it is still unused and unexpired.
// Returns nil when nothing was consumed.
func (r *EnrolmentRepository) ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (*model.Enrolment, error) {
	query := `
		UPDATE enrolments
		SET token_used = true, updated_at = now()
		WHERE token_hash = $1 AND NOT token_used AND token_expires_at > $2
		RETURNING ` + enrolmentColumns

	return r.getOne(ctx, "consume enrolment token", query, tokenHash, now)
}

// Submit сохраняет данные родителя и переводит запись в SUBMITTED
func (r *EnrolmentRepository) Submit(ctx context.Context, e *model.Enrolment, submittedAt time.Time) error {
	query := `
		UPDATE enrolments
		SET parent_name = $1, parent_email = $2, parent_phone = $3, address = $4,
		    status = $5, submitted_at = $6, updated_at = now()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		e.ParentName,
		e.ParentEmail,
		e.ParentPhone,
		e.Address,
		model.EnrolmentStatusSubmitted,
		submittedAt,
		e.ID,
	).Scan(&e.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("enrolment not found")
		}
		return fmt.Errorf("submit enrolment: %w", err)
	}

	e.Status = model.EnrolmentStatusSubmitted
	e.SubmittedAt = &submittedAt

	return nil
}

// AddStudent добавляет ученика к записи
func (r *EnrolmentRepository) AddStudent(ctx context.Context, s *model.EnrolmentStudent) error {
	query := `
		INSERT INTO enrolment_students (id, enrolment_id, student_name, year_level, school, subjects,
			subject_hours, weekly_hours, preferred_days, preferred_times)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.QueryRow(
		ctx, query,
		s.ID,
		s.EnrolmentID,
		s.StudentName,
		s.YearLevel,
		s.School,
		nonNil(s.Subjects),
		s.SubjectHours,
		s.WeeklyHours,
		nonNil(s.PreferredDays),
		nonNil(s.PreferredTimes),
	).Scan(&s.CreatedAt)

	if err != nil {
		return fmt.Errorf("add enrolment student: %w", err)
	}

	return nil
}

// GetStudents получает учеников записи
func (r *EnrolmentRepository) GetStudents(ctx context.Context, enrolmentID uuid.UUID) ([]*model.EnrolmentStudent, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM enrolment_students
		WHERE enrolment_id = $1
		ORDER BY created_at
	`

	rows, err := r.Query(ctx, query, enrolmentID)
	if err != nil {
		return nil, fmt.Errorf("get enrolment students: %w", err)
	}
	defer rows.Close()

	var students []*model.EnrolmentStudent
	for rows.Next() {
		var s model.EnrolmentStudent
		err := rows.Scan(
			&s.ID,
			&s.EnrolmentID,
			&s.StudentName,
			&s.YearLevel,
			&s.School,
			&s.Subjects,
			&s.SubjectHours,
			&s.WeeklyHours,
			&s.PreferredDays,
			&s.PreferredTimes,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan enrolment student: %w", err)
		}
		students = append(students, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrolment students: %w", err)
	}

	return students, nil
}

// SetCheckout сохраняет сессию оплаты
func (r *EnrolmentRepository) SetCheckout(ctx context.Context, id uuid.UUID, sessionID, url string) error {
	query := `
		UPDATE enrolments
		SET checkout_session_id = $1, checkout_url = $2, updated_at = now()
		WHERE id = $3
	`

	affected, err := r.ExecAffected(ctx, query, sessionID, url, id)
	if err != nil {
		return fmt.Errorf("set enrolment checkout: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("enrolment not found")
	}

	return nil
}

// ClearExpiredTokens drops unused tokens of draft enrolments that expired before cutoff
func (r *EnrolmentRepository) ClearExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE enrolments
		SET token_hash = NULL, token_expires_at = NULL, updated_at = now()
		WHERE status = $1 AND NOT token_used AND token_expires_at <= $2
	`

	affected, err := r.ExecAffected(ctx, query, model.EnrolmentStatusDraft, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clear expired tokens: %w", err)
	}

	return affected, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
