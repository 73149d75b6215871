package model

import (
	"time"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	LeadStatusNew                LeadStatus = "NEW"
	LeadStatusConsultationBooked LeadStatus = "CONSULTATION_BOOKED"
	LeadStatusConsulted          LeadStatus = "CONSULTED"
	LeadStatusEnrolmentSent      LeadStatus = "ENROLMENT_SENT"
	LeadStatusEnrolled           LeadStatus = "ENROLLED"
	LeadStatusActive             LeadStatus = "ACTIVE"
	LeadStatusCancelled          LeadStatus = "CANCELLED"
	LeadStatusLost               LeadStatus = "LOST"
)

// LeadView selects which admin list a lead appears in
type LeadView string

const (
	LeadViewPipeline LeadView = "pipeline"
	LeadViewActive   LeadView = "active"
	LeadViewAll      LeadView = "all"
)

var (
	pipelineStatuses = []LeadStatus{
		LeadStatusNew,
		LeadStatusConsultationBooked,
		LeadStatusConsulted,
		LeadStatusEnrolmentSent,
	}
	activeStatuses = []LeadStatus{
		LeadStatusEnrolled,
		LeadStatusActive,
	}
)

// Statuses returns the lead statuses shown in the view. Nil means no restriction.
func (v LeadView) Statuses() []LeadStatus {
	switch v {
	case LeadViewPipeline:
		return pipelineStatuses
	case LeadViewActive:
		return activeStatuses
	default:
		return nil
	}
}

// Valid checks the status against the known pipeline stages
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusConsultationBooked, LeadStatusConsulted, LeadStatusEnrolmentSent,
		LeadStatusEnrolled, LeadStatusActive, LeadStatusCancelled, LeadStatusLost:
		return true
	}
	return false
}

// BeforeConsulted reports whether the lead has not passed the consultation stage yet
func (s LeadStatus) BeforeConsulted() bool {
	return s == LeadStatusNew || s == LeadStatusConsultationBooked
}

// Closed reports whether the lead left the funnel
func (s LeadStatus) Closed() bool {
	return s == LeadStatusCancelled || s == LeadStatusLost
}

type Lead struct {
	ID          uuid.UUID  `json:"id"`
	ParentName  string     `json:"parent_name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	StudentName string     `json:"student_name"`
	YearLevel   string     `json:"year_level"`
	School      string     `json:"school"`
	Subjects    []string   `json:"subjects"`
	Notes       string     `json:"notes"`
	Source      string     `json:"source"`
	Status      LeadStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Не из БД
	Consultations []*Consultation `json:"consultations,omitempty"`
}
