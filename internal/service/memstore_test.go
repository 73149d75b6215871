package service

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/google/uuid"
)

// memStore: хранилище в памяти для тестов сервисов.
// Транзакции сериализуются одним мьютексом, при ошибке состояние откатывается.
type memStore struct {
	mu sync.Mutex

	slots         map[uuid.UUID]model.AvailabilitySlot
	leads         map[uuid.UUID]model.Lead
	consultations map[uuid.UUID]model.Consultation
	enrolments    map[uuid.UUID]model.Enrolment
	students      map[uuid.UUID][]model.EnrolmentStudent

	// failOn makes the named operation return the error
	failOn map[string]error
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		slots:         map[uuid.UUID]model.AvailabilitySlot{},
		leads:         map[uuid.UUID]model.Lead{},
		consultations: map[uuid.UUID]model.Consultation{},
		enrolments:    map[uuid.UUID]model.Enrolment{},
		students:      map[uuid.UUID][]model.EnrolmentStudent{},
		failOn:        map[string]error{},
	}
}

type memSnapshot struct {
	slots         map[uuid.UUID]model.AvailabilitySlot
	leads         map[uuid.UUID]model.Lead
	consultations map[uuid.UUID]model.Consultation
	enrolments    map[uuid.UUID]model.Enrolment
	students      map[uuid.UUID][]model.EnrolmentStudent
}

func (m *memStore) snapshot() memSnapshot {
	return memSnapshot{
		slots:         maps.Clone(m.slots),
		leads:         maps.Clone(m.leads),
		consultations: maps.Clone(m.consultations),
		enrolments:    maps.Clone(m.enrolments),
		students:      maps.Clone(m.students),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.slots = s.slots
	m.leads = s.leads
	m.consultations = s.consultations
	m.enrolments = s.enrolments
	m.students = s.students
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) do(ctx context.Context, op string, fn func() error) error {
	if ctx.Value(memTxKey{}) == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	if err := m.failOn[op]; err != nil {
		return err
	}
	return fn()
}

var errMemNotFound = errors.New("row not found")

// ---- slots

type memSlots struct{ *memStore }

func (s memSlots) Create(ctx context.Context, slot *model.AvailabilitySlot) error {
	return s.do(ctx, "slots.Create", func() error {
		slot.CreatedAt = time.Now()
		slot.UpdatedAt = slot.CreatedAt
		s.slots[slot.ID] = *slot
		return nil
	})
}

func (s memSlots) GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error) {
	var out *model.AvailabilitySlot
	err := s.do(ctx, "slots.GetByID", func() error {
		if slot, ok := s.slots[id]; ok {
			out = &slot
		}
		return nil
	})
	return out, err
}

func (s memSlots) List(ctx context.Context, f model.SlotFilter) ([]*model.AvailabilitySlot, error) {
	var out []*model.AvailabilitySlot
	err := s.do(ctx, "slots.List", func() error {
		for _, slot := range s.slots {
			slot := slot
			if !slot.StartTime.After(f.From) {
				continue
			}
			if f.Enabled != nil && slot.IsEnabled != *f.Enabled {
				continue
			}
			if f.Booked != nil && slot.IsBooked != *f.Booked {
				continue
			}
			out = append(out, &slot)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
		if f.Limit > 0 && len(out) > f.Limit {
			out = out[:f.Limit]
		}
		return nil
	})
	return out, err
}

func (s memSlots) Claim(ctx context.Context, id uuid.UUID, now time.Time) (*model.AvailabilitySlot, error) {
	var out *model.AvailabilitySlot
	err := s.do(ctx, "slots.Claim", func() error {
		slot, ok := s.slots[id]
		if !ok || !slot.IsEnabled || slot.IsBooked || slot.CurrentBookings >= model.SlotCapacity || !slot.StartTime.After(now) {
			return nil
		}
		slot.CurrentBookings++
		slot.IsBooked = true
		s.slots[id] = slot
		out = &slot
		return nil
	})
	return out, err
}

func (s memSlots) Release(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error) {
	var out *model.AvailabilitySlot
	err := s.do(ctx, "slots.Release", func() error {
		slot, ok := s.slots[id]
		if !ok {
			return nil
		}
		slot.CurrentBookings = max(slot.CurrentBookings-1, 0)
		slot.IsBooked = slot.CurrentBookings >= 1
		s.slots[id] = slot
		out = &slot
		return nil
	})
	return out, err
}

func (s memSlots) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*model.AvailabilitySlot, error) {
	var out *model.AvailabilitySlot
	err := s.do(ctx, "slots.SetEnabled", func() error {
		slot, ok := s.slots[id]
		if !ok {
			return nil
		}
		slot.IsEnabled = enabled
		s.slots[id] = slot
		out = &slot
		return nil
	})
	return out, err
}

func (s memSlots) DeleteUnbooked(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := s.do(ctx, "slots.DeleteUnbooked", func() error {
		slot, ok := s.slots[id]
		if !ok || slot.IsBooked {
			return nil
		}
		delete(s.slots, id)
		for cid, c := range s.consultations {
			if c.SlotID != nil && *c.SlotID == id {
				c.SlotID = nil
				s.consultations[cid] = c
			}
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// ---- consultations

type memConsultations struct{ *memStore }

func (s memConsultations) Create(ctx context.Context, c *model.Consultation) error {
	return s.do(ctx, "consultations.Create", func() error {
		if _, ok := s.leads[c.LeadID]; !ok {
			return errors.New("foreign key violation: lead")
		}
		c.CreatedAt = time.Now()
		c.UpdatedAt = c.CreatedAt
		s.consultations[c.ID] = *c
		return nil
	})
}

func (s memConsultations) GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	var out *model.Consultation
	err := s.do(ctx, "consultations.GetByID", func() error {
		if c, ok := s.consultations[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

func (s memConsultations) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	return s.GetByID(ctx, id)
}

func (s memConsultations) byLead(ctx context.Context, leadID uuid.UUID, onlyScheduled bool) ([]*model.Consultation, error) {
	var out []*model.Consultation
	err := s.do(ctx, "consultations.GetByLeadID", func() error {
		for _, c := range s.consultations {
			c := c
			if c.LeadID != leadID {
				continue
			}
			if onlyScheduled && c.Status != model.ConsultationStatusScheduled {
				continue
			}
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

func (s memConsultations) GetByLeadID(ctx context.Context, leadID uuid.UUID) ([]*model.Consultation, error) {
	return s.byLead(ctx, leadID, false)
}

func (s memConsultations) GetScheduledByLeadIDForUpdate(ctx context.Context, leadID uuid.UUID) ([]*model.Consultation, error) {
	return s.byLead(ctx, leadID, true)
}

func (s memConsultations) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.Consultation, error) {
	var out []*model.Consultation
	err := s.do(ctx, "consultations.ListUpcoming", func() error {
		for _, c := range s.consultations {
			c := c
			if c.Status == model.ConsultationStatusScheduled && !c.ScheduledAt.Before(from) {
				out = append(out, &c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (s memConsultations) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ConsultationStatus) error {
	return s.do(ctx, "consultations.UpdateStatus", func() error {
		c, ok := s.consultations[id]
		if !ok {
			return errMemNotFound
		}
		c.Status = status
		s.consultations[id] = c
		return nil
	})
}

func (s memConsultations) Reassign(ctx context.Context, id, slotID uuid.UUID, scheduledAt time.Time) error {
	return s.do(ctx, "consultations.Reassign", func() error {
		c, ok := s.consultations[id]
		if !ok {
			return errMemNotFound
		}
		c.SlotID = &slotID
		c.ScheduledAt = scheduledAt
		c.Status = model.ConsultationStatusScheduled
		s.consultations[id] = c
		return nil
	})
}

// ---- leads

type memLeads struct{ *memStore }

func (s memLeads) Create(ctx context.Context, lead *model.Lead) error {
	return s.do(ctx, "leads.Create", func() error {
		lead.CreatedAt = time.Now()
		lead.UpdatedAt = lead.CreatedAt
		s.leads[lead.ID] = *lead
		return nil
	})
}

func (s memLeads) GetByID(ctx context.Context, id uuid.UUID) (*model.Lead, error) {
	var out *model.Lead
	err := s.do(ctx, "leads.GetByID", func() error {
		if lead, ok := s.leads[id]; ok {
			out = &lead
		}
		return nil
	})
	return out, err
}

func (s memLeads) List(ctx context.Context, statuses []model.LeadStatus, limit int) ([]*model.Lead, error) {
	var out []*model.Lead
	err := s.do(ctx, "leads.List", func() error {
		for _, lead := range s.leads {
			lead := lead
			if statuses != nil && !slices.Contains(statuses, lead.Status) {
				continue
			}
			out = append(out, &lead)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (s memLeads) UpdateStatus(ctx context.Context, id uuid.UUID, status model.LeadStatus) (bool, error) {
	var ok bool
	err := s.do(ctx, "leads.UpdateStatus", func() error {
		var lead model.Lead
		if lead, ok = s.leads[id]; ok {
			lead.Status = status
			s.leads[id] = lead
		}
		return nil
	})
	return ok, err
}

func (s memLeads) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := s.do(ctx, "leads.Delete", func() error {
		if _, ok = s.leads[id]; !ok {
			return nil
		}
		delete(s.leads, id)
		for cid, c := range s.consultations {
			if c.LeadID == id {
				delete(s.consultations, cid)
			}
		}
		for eid, e := range s.enrolments {
			if e.LeadID != nil && *e.LeadID == id {
				delete(s.enrolments, eid)
				delete(s.students, eid)
			}
		}
		return nil
	})
	return ok, err
}

// ---- enrolments

type memEnrolments struct{ *memStore }

func (s memEnrolments) Create(ctx context.Context, e *model.Enrolment) error {
	return s.do(ctx, "enrolments.Create", func() error {
		e.CreatedAt = time.Now()
		e.UpdatedAt = e.CreatedAt
		s.enrolments[e.ID] = *e
		return nil
	})
}

func (s memEnrolments) find(ctx context.Context, op string, match func(model.Enrolment) bool) (*model.Enrolment, error) {
	var out *model.Enrolment
	err := s.do(ctx, op, func() error {
		for _, e := range s.enrolments {
			if match(e) {
				out = &e
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (s memEnrolments) GetByID(ctx context.Context, id uuid.UUID) (*model.Enrolment, error) {
	return s.find(ctx, "enrolments.GetByID", func(e model.Enrolment) bool { return e.ID == id })
}

func (s memEnrolments) GetByTokenHash(ctx context.Context, hash string) (*model.Enrolment, error) {
	return s.find(ctx, "enrolments.GetByTokenHash", func(e model.Enrolment) bool {
		return e.TokenHash != nil && *e.TokenHash == hash
	})
}

func (s memEnrolments) GetDraftByLeadID(ctx context.Context, leadID uuid.UUID) (*model.Enrolment, error) {
	return s.find(ctx, "enrolments.GetDraftByLeadID", func(e model.Enrolment) bool {
		return e.LeadID != nil && *e.LeadID == leadID && e.Status == model.EnrolmentStatusDraft
	})
}

func (s memEnrolments) SetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	return s.do(ctx, "enrolments.SetToken", func() error {
		e, ok := s.enrolments[id]
		if !ok {
			return errMemNotFound
		}
		e.TokenHash = &hash
		e.TokenExpiresAt = &expiresAt
		e.TokenUsed = false
		s.enrolments[id] = e
		return nil
	})
}

func (s memEnrolments) ConsumeToken(ctx context.Context, hash string, now time.Time) (*model.Enrolment, error) {
	var out *model.Enrolment
	err := s.do(ctx, "enrolments.ConsumeToken", func() error {
		for id, e := range s.enrolments {
			if e.TokenHash == nil || *e.TokenHash != hash || e.TokenUsed || !e.TokenExpiresAt.After(now) {
				continue
			}
			e.TokenUsed = true
			s.enrolments[id] = e
			out = &e
			return nil
		}
		return nil
	})
	return out, err
}

func (s memEnrolments) Submit(ctx context.Context, e *model.Enrolment, submittedAt time.Time) error {
	return s.do(ctx, "enrolments.Submit", func() error {
		stored, ok := s.enrolments[e.ID]
		if !ok {
			return errMemNotFound
		}
		stored.ParentName = e.ParentName
		stored.ParentEmail = e.ParentEmail
		stored.ParentPhone = e.ParentPhone
		stored.Address = e.Address
		stored.Status = model.EnrolmentStatusSubmitted
		stored.SubmittedAt = &submittedAt
		s.enrolments[e.ID] = stored

		e.Status = model.EnrolmentStatusSubmitted
		e.SubmittedAt = &submittedAt
		return nil
	})
}

func (s memEnrolments) AddStudent(ctx context.Context, st *model.EnrolmentStudent) error {
	return s.do(ctx, "enrolments.AddStudent", func() error {
		s.students[st.EnrolmentID] = append(slices.Clone(s.students[st.EnrolmentID]), *st)
		return nil
	})
}

func (s memEnrolments) GetStudents(ctx context.Context, enrolmentID uuid.UUID) ([]*model.EnrolmentStudent, error) {
	var out []*model.EnrolmentStudent
	err := s.do(ctx, "enrolments.GetStudents", func() error {
		for _, st := range s.students[enrolmentID] {
			st := st
			out = append(out, &st)
		}
		return nil
	})
	return out, err
}

func (s memEnrolments) SetCheckout(ctx context.Context, id uuid.UUID, sessionID, url string) error {
	return s.do(ctx, "enrolments.SetCheckout", func() error {
		e, ok := s.enrolments[id]
		if !ok {
			return errMemNotFound
		}
		e.CheckoutSessionID = &sessionID
		e.CheckoutURL = &url
		s.enrolments[id] = e
		return nil
	})
}

func (s memEnrolments) ClearExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.do(ctx, "enrolments.ClearExpiredTokens", func() error {
		for id, e := range s.enrolments {
			if e.Status != model.EnrolmentStatusDraft || e.TokenUsed || e.TokenExpiresAt == nil || e.TokenExpiresAt.After(cutoff) {
				continue
			}
			e.TokenHash = nil
			e.TokenExpiresAt = nil
			s.enrolments[id] = e
			n++
		}
		return nil
	})
	return n, err
}

// slot reads the stored slot directly, bypassing failure injection
func (m *memStore) slot(id uuid.UUID) model.AvailabilitySlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[id]
}

func (m *memStore) consultation(id uuid.UUID) model.Consultation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consultations[id]
}

func (m *memStore) lead(id uuid.UUID) (model.Lead, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	return l, ok
}
