package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/events"
	"github.com/Freeeeeet/academy_portal/internal/lock"
	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/Freeeeeet/academy_portal/internal/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeGateway struct {
	session *payment.CheckoutSession
	err     error
	calls   int
}

func (g *fakeGateway) CreateCheckoutSession(context.Context, payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.calls++
	return g.session, g.err
}

type fakeLocker struct {
	err error
}

func (l fakeLocker) Acquire(context.Context, string, time.Duration) (lock.ReleaseFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) error { return nil }, nil
}

var errBoom = errors.New("boom")

type fixture struct {
	store     *memStore
	now       time.Time
	loc       *time.Location
	publisher *recordingPublisher
	gateway   *fakeGateway

	slots      *SlotService
	booking    *BookingService
	leads      *LeadService
	enrolments *EnrolmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	loc, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	store := newMemStore()
	logger := zap.NewNop()
	validator := NewValidator()
	publisher := &recordingPublisher{}
	dispatcher := NewDispatcher(publisher, nil, logger)

	f := &fixture{
		store:     store,
		now:       time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		loc:       loc,
		publisher: publisher,
		gateway:   &fakeGateway{},
	}
	clock := func() time.Time { return f.now }

	f.slots = NewSlotService(memSlots{store}, validator, loc, 50, logger)
	f.slots.now = clock

	f.booking = NewBookingService(store, memSlots{store}, memConsultations{store}, memLeads{store}, validator, dispatcher, loc, logger)
	f.booking.now = clock

	f.leads = NewLeadService(memLeads{store}, memConsultations{store}, validator, logger)

	f.enrolments = NewEnrolmentService(store, memEnrolments{store}, memLeads{store}, validator, dispatcher,
		"https://academy.example.com/", 7*24*time.Hour, 30*24*time.Hour, logger).WithCheckout(f.gateway)
	f.enrolments.now = clock

	return f
}

// addSlot stores a slot starting `in` after the fixture clock
func (f *fixture) addSlot(t *testing.T, in time.Duration, enabled bool) uuid.UUID {
	t.Helper()
	start := f.now.Add(in)
	slot := &model.AvailabilitySlot{
		ID:        uuid.New(),
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		IsEnabled: enabled,
	}
	require.NoError(t, memSlots{f.store}.Create(context.Background(), slot))
	return slot.ID
}

func consultationRequest(slotID uuid.UUID) model.ConsultationRequest {
	return model.ConsultationRequest{
		SelectedSlotID: slotID.String(),
		ParentName:     "Anna Lee",
		Email:          "anna@example.com",
		Phone:          "0412345678",
		StudentName:    "Sam Lee",
		YearLevel:      "Year 9",
		School:         "North High",
		Subjects:       []string{"Maths", "English"},
		Source:         "website",
	}
}

func (f *fixture) book(t *testing.T, slotID uuid.UUID) *BookingResult {
	t.Helper()
	res, err := f.booking.SubmitConsultation(context.Background(), consultationRequest(slotID))
	require.NoError(t, err)
	return res
}

func enrolmentRequest(token string) model.EnrolmentRequest {
	return model.EnrolmentRequest{
		Token:       token,
		ParentName:  "Anna Lee",
		ParentEmail: "anna@example.com",
		ParentPhone: "0412345678",
		Address:     "1 George St, Sydney",
		Students: []model.EnrolmentStudentRequest{
			{
				StudentName:    "Sam Lee",
				YearLevel:      "Year 9",
				Subjects:       []string{"Maths", "English"},
				SubjectHours:   map[string]int{"Maths": 2, "English": 1},
				PreferredDays:  []string{"Monday", "Wednesday"},
				PreferredTimes: []string{"afternoon"},
			},
		},
	}
}
