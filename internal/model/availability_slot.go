package model

import (
	"time"

	"github.com/google/uuid"
)

// SlotCapacity is the number of consultations a single slot can hold
const SlotCapacity = 1

type AvailabilitySlot struct {
	ID              uuid.UUID `json:"id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	IsEnabled       bool      `json:"is_enabled"`
	IsBooked        bool      `json:"is_booked"`
	CurrentBookings int       `json:"current_bookings"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsBookable reports whether the slot can be claimed at the given moment
func (s *AvailabilitySlot) IsBookable(now time.Time) bool {
	return s.IsEnabled && !s.IsBooked && s.CurrentBookings < SlotCapacity && s.StartTime.After(now)
}

// Consistent checks the booked flag against the booking counter
func (s *AvailabilitySlot) Consistent() bool {
	if s.CurrentBookings < 0 || s.CurrentBookings > SlotCapacity {
		return false
	}
	return s.IsBooked == (s.CurrentBookings >= 1)
}

// Duration returns the slot length
func (s *AvailabilitySlot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// SlotFilter narrows ListSlots. Nil pointers mean "any".
type SlotFilter struct {
	Enabled *bool
	Booked  *bool
	From    time.Time
	Limit   int
}
