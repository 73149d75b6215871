package model

import (
	"time"

	"github.com/google/uuid"
)

type EnrolmentStatus string

const (
	EnrolmentStatusDraft     EnrolmentStatus = "DRAFT"
	EnrolmentStatusSubmitted EnrolmentStatus = "SUBMITTED"
	EnrolmentStatusPaid      EnrolmentStatus = "PAID"
)

// Enrolment is the parent-level record of the enrolment funnel.
// A DRAFT enrolment may carry a continuation token; only its SHA-256 is stored.
type Enrolment struct {
	ID                uuid.UUID       `json:"id"`
	LeadID            *uuid.UUID      `json:"lead_id"`
	ParentName        string          `json:"parent_name"`
	ParentEmail       string          `json:"parent_email"`
	ParentPhone       string          `json:"parent_phone"`
	Address           string          `json:"address"`
	Status            EnrolmentStatus `json:"status"`
	TokenHash         *string         `json:"-"`
	TokenExpiresAt    *time.Time      `json:"token_expires_at,omitempty"`
	TokenUsed         bool            `json:"token_used"`
	CheckoutSessionID *string         `json:"checkout_session_id,omitempty"`
	CheckoutURL       *string         `json:"checkout_url,omitempty"`
	SubmittedAt       *time.Time      `json:"submitted_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Students []*EnrolmentStudent `json:"students"`
}

// TokenState describes whether a continuation token may still be redeemed
type TokenState int

const (
	TokenStateValid TokenState = iota
	TokenStateMissing
	TokenStateUsed
	TokenStateExpired
)

// TokenState checks the token attached to the enrolment.
// A used token reports TokenStateUsed even after it expires.
func (e *Enrolment) TokenState(now time.Time) TokenState {
	if e.TokenHash == nil || e.TokenExpiresAt == nil {
		return TokenStateMissing
	}
	if e.TokenUsed {
		return TokenStateUsed
	}
	if !now.Before(*e.TokenExpiresAt) {
		return TokenStateExpired
	}
	return TokenStateValid
}

// EnrolmentStudent is the per-student package configuration
type EnrolmentStudent struct {
	ID             uuid.UUID      `json:"id"`
	EnrolmentID    uuid.UUID      `json:"enrolment_id"`
	StudentName    string         `json:"student_name"`
	YearLevel      string         `json:"year_level"`
	School         string         `json:"school"`
	Subjects       []string       `json:"subjects"`
	SubjectHours   map[string]int `json:"subject_hours"` // часы в неделю по предмету
	WeeklyHours    int            `json:"weekly_hours"`
	PreferredDays  []string       `json:"preferred_days"`
	PreferredTimes []string       `json:"preferred_times"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TotalHours sums the per-subject allocation
func (s *EnrolmentStudent) TotalHours() int {
	total := 0
	for _, h := range s.SubjectHours {
		total += h
	}
	return total
}
