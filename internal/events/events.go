package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published after a booking transaction commits.
// Email delivery and reporting consume them downstream.
const (
	TypeConsultationBooked      = "consultation.booked"
	TypeConsultationCancelled   = "consultation.cancelled"
	TypeConsultationRescheduled = "consultation.rescheduled"
	TypeConsultationCompleted   = "consultation.completed"
	TypeConsultationNoShow      = "consultation.no_show"
	TypeLeadDeleted             = "lead.deleted"
	TypeEnrolmentLinkIssued     = "enrolment.link_issued"
	TypeEnrolmentSubmitted      = "enrolment.submitted"
)

type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	Key        string         `json:"key"` // partition key, usually the lead id
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// New creates an event with a fresh id
func New(eventType, key string, data map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop drops every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
