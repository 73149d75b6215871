package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func consultationRows(cs ...model.Consultation) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "lead_id", "slot_id", "scheduled_at", "status", "notes", "created_at", "updated_at",
	})
	for _, c := range cs {
		rows.AddRow(c.ID, c.LeadID, c.SlotID, c.ScheduledAt, c.Status, c.Notes, c.CreatedAt, c.UpdatedAt)
	}
	return rows
}

func TestConsultationRepository_GetByIDForUpdate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewConsultationRepository(mock)
	ctx := context.Background()

	id := uuid.New()
	slotID := uuid.New()
	at := time.Date(2026, 11, 10, 5, 30, 0, 0, time.UTC)

	lockQuery := sqlPattern("FROM consultations WHERE id = $1 FOR UPDATE")
	mock.ExpectQuery(lockQuery).WithArgs(id).WillReturnRows(consultationRows(model.Consultation{
		ID:          id,
		LeadID:      uuid.New(),
		SlotID:      &slotID,
		ScheduledAt: at,
		Status:      model.ConsultationStatusScheduled,
	}))
	mock.ExpectQuery(lockQuery).WithArgs(id).WillReturnRows(consultationRows())

	c, err := repo.GetByIDForUpdate(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NotNil(t, c.SlotID)
	assert.Equal(t, slotID, *c.SlotID)
	assert.Equal(t, model.ConsultationStatusScheduled, c.Status)

	c, err = repo.GetByIDForUpdate(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestConsultationRepository_ListUpcoming(t *testing.T) {
	mock := newMockPool(t)
	repo := NewConsultationRepository(mock)
	from := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(sqlPattern("WHERE status = $1 AND scheduled_at >= $2 ORDER BY scheduled_at LIMIT $3")).
		WithArgs(model.ConsultationStatusScheduled, from, 50).
		WillReturnRows(consultationRows(
			model.Consultation{ID: uuid.New(), LeadID: uuid.New(), ScheduledAt: from.Add(time.Hour), Status: model.ConsultationStatusScheduled},
			model.Consultation{ID: uuid.New(), LeadID: uuid.New(), ScheduledAt: from.Add(2 * time.Hour), Status: model.ConsultationStatusScheduled},
		))

	got, err := repo.ListUpcoming(context.Background(), from, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].ScheduledAt.Before(got[1].ScheduledAt))
}

func TestConsultationRepository_UpdateStatusMissing(t *testing.T) {
	mock := newMockPool(t)
	repo := NewConsultationRepository(mock)
	id := uuid.New()

	mock.ExpectExec(sqlPattern("UPDATE consultations SET status = $1")).
		WithArgs(model.ConsultationStatusCancelled, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateStatus(context.Background(), id, model.ConsultationStatusCancelled)
	require.Error(t, err)
}
