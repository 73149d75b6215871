package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationStatusScheduled ConsultationStatus = "SCHEDULED"
	ConsultationStatusCompleted ConsultationStatus = "COMPLETED"
	ConsultationStatusCancelled ConsultationStatus = "CANCELLED"
	ConsultationStatusNoShow    ConsultationStatus = "NO_SHOW"
)

type Consultation struct {
	ID          uuid.UUID          `json:"id"`
	LeadID      uuid.UUID          `json:"lead_id"`
	SlotID      *uuid.UUID         `json:"slot_id"` // nil once the slot row is gone
	ScheduledAt time.Time          `json:"scheduled_at"`
	Status      ConsultationStatus `json:"status"`
	Notes       string             `json:"notes"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`

	// Не из БД
	Slot *AvailabilitySlot `json:"slot,omitempty"`
}

// IsActive reports whether the consultation still holds its slot
func (c *Consultation) IsActive() bool {
	return c.Status == ConsultationStatusScheduled
}

// IsTerminal reports whether no further transitions are allowed
func (c *Consultation) IsTerminal() bool {
	switch c.Status {
	case ConsultationStatusCancelled, ConsultationStatusCompleted, ConsultationStatusNoShow:
		return true
	}
	return false
}
