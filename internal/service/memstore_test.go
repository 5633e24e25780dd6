package service

// In-memory store fakes for the service tests. memSlotStore mirrors the
// atomicity contract of the real repository: Reserve checks its predicate
// and writes under one lock, so racing callers serialize exactly like
// racing conditional updates against the database.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calmapp/counselbook/internal/model"
	"github.com/calmapp/counselbook/internal/notify"
)

type memSlotStore struct {
	mu            sync.Mutex
	slots         map[uuid.UUID]*model.AvailabilitySlot
	bookedAt      map[uuid.UUID]time.Time
	consultations *memConsultationStore
}

func newMemSlotStore() *memSlotStore {
	return &memSlotStore{
		slots:    make(map[uuid.UUID]*model.AvailabilitySlot),
		bookedAt: make(map[uuid.UUID]time.Time),
	}
}

func (s *memSlotStore) add(slot *model.AvailabilitySlot) *model.AvailabilitySlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	cp := *slot
	s.slots[slot.ID] = &cp
	return slot
}

func (s *memSlotStore) CreateBatch(_ context.Context, slots []*model.AvailabilitySlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range slots {
		for _, existing := range s.slots {
			if existing.CounselorID == slot.CounselorID &&
				existing.Date.Equal(slot.Date) &&
				existing.StartTime == slot.StartTime {
				return fmt.Errorf("slot %s %s: %w", slot.Date.Format("2006-01-02"), slot.StartTime, model.ErrSlotExists)
			}
		}
	}
	for _, slot := range slots {
		slot.ID = uuid.New()
		slot.CreatedAt = time.Now()
		cp := *slot
		s.slots[slot.ID] = &cp
	}
	return nil
}

func (s *memSlotStore) GetByID(_ context.Context, id uuid.UUID) (*model.AvailabilitySlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *slot
	return &cp, nil
}

func (s *memSlotStore) List(_ context.Context, filter model.SlotFilter) ([]*model.AvailabilitySlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.AvailabilitySlot
	for _, slot := range s.slots {
		if filter.CounselorID != nil && slot.CounselorID != *filter.CounselorID {
			continue
		}
		if filter.Date != nil && !slot.Date.Equal(*filter.Date) {
			continue
		}
		if filter.IsBooked != nil && slot.IsBooked != *filter.IsBooked {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memSlotStore) Reserve(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok || slot.IsBooked {
		return model.ErrSlotAlreadyBooked
	}
	slot.IsBooked = true
	s.bookedAt[id] = time.Now()
	return nil
}

func (s *memSlotStore) Release(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return model.ErrSlotNotFound
	}
	slot.IsBooked = false
	delete(s.bookedAt, id)
	return nil
}

func (s *memSlotStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return model.ErrSlotNotFound
	}
	if slot.IsBooked {
		return model.ErrSlotAlreadyBooked
	}
	delete(s.slots, id)
	return nil
}

func (s *memSlotStore) DeleteUnbooked(_ context.Context, counselorID uuid.UUID, date time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, slot := range s.slots {
		if slot.CounselorID == counselorID && slot.Date.Equal(date) && !slot.IsBooked {
			delete(s.slots, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memSlotStore) ListOrphanedReservations(_ context.Context, cutoff time.Time) ([]*model.AvailabilitySlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.AvailabilitySlot
	for id, slot := range s.slots {
		if !slot.IsBooked || !s.bookedAt[id].Before(cutoff) {
			continue
		}
		if s.consultations != nil && s.consultations.referencesSlot(id) {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memSlotStore) setBookedAt(id uuid.UUID, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookedAt[id] = t
}

type memConsultationStore struct {
	mu            sync.Mutex
	consultations map[uuid.UUID]*model.Consultation
	createErr     error
	rejectErr     map[uuid.UUID]error
}

func newMemConsultationStore() *memConsultationStore {
	return &memConsultationStore{
		consultations: make(map[uuid.UUID]*model.Consultation),
		rejectErr:     make(map[uuid.UUID]error),
	}
}

func (s *memConsultationStore) add(c *model.Consultation) *model.Consultation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	s.consultations[c.ID] = &cp
	return c
}

func (s *memConsultationStore) get(id uuid.UUID) *model.Consultation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consultations[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func (s *memConsultationStore) referencesSlot(slotID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.consultations {
		if c.SlotID == slotID {
			return true
		}
	}
	return false
}

func (s *memConsultationStore) Create(_ context.Context, c *model.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	s.consultations[c.ID] = &cp
	return nil
}

func (s *memConsultationStore) GetByID(_ context.Context, id uuid.UUID) (*model.Consultation, error) {
	return s.get(id), nil
}

func (s *memConsultationStore) ListByStudent(_ context.Context, studentID uuid.UUID) ([]*model.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Consultation
	for _, c := range s.consultations {
		if c.StudentID == studentID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memConsultationStore) ListByCounselor(_ context.Context, counselorID uuid.UUID, status ...model.Status) ([]*model.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Consultation
	for _, c := range s.consultations {
		if c.CounselorID != counselorID {
			continue
		}
		if len(status) > 0 && !statusIn(c.Status, status) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memConsultationStore) ListPendingAt(_ context.Context, counselorID uuid.UUID, date time.Time, startTime string) ([]*model.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Consultation
	for _, c := range s.consultations {
		if c.CounselorID == counselorID && c.Date.Equal(date) && c.StartTime == startTime && c.Status == model.StatusPending {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memConsultationStore) ListPending(_ context.Context) ([]*model.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Consultation
	for _, c := range s.consultations {
		if c.Status == model.StatusPending {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memConsultationStore) Accept(_ context.Context, id uuid.UUID, meetingLink string) error {
	return s.guarded(id, model.StatusPending, func(c *model.Consultation) {
		c.Status = model.StatusAccepted
		c.MeetingLink = meetingLink
	})
}

func (s *memConsultationStore) Reject(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	if err, ok := s.rejectErr[id]; ok {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.guarded(id, model.StatusPending, func(c *model.Consultation) {
		c.Status = model.StatusRejected
		c.RejectionReason = reason
	})
}

func (s *memConsultationStore) Complete(_ context.Context, id uuid.UUID) error {
	return s.guarded(id, model.StatusAccepted, func(c *model.Consultation) {
		c.Status = model.StatusCompleted
		c.MeetingLink = ""
		c.MeetingEnded = true
	})
}

func (s *memConsultationStore) SetNotes(_ context.Context, id uuid.UUID, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consultations[id]
	if !ok {
		return model.ErrConsultationNotFound
	}
	c.Notes = notes
	return nil
}

func (s *memConsultationStore) guarded(id uuid.UUID, want model.Status, apply func(*model.Consultation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consultations[id]
	if !ok {
		return model.ErrConsultationNotFound
	}
	if c.Status != want {
		return fmt.Errorf("%w: consultation is %s", model.ErrInvalidTransition, c.Status)
	}
	apply(c)
	c.UpdatedAt = time.Now()
	return nil
}

func statusIn(s model.Status, in []model.Status) bool {
	for _, candidate := range in {
		if s == candidate {
			return true
		}
	}
	return false
}

// recordingDispatcher captures dispatched events in order.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event notify.Event, _ *model.Consultation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) count(event notify.Event) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, e := range d.events {
		if e == event {
			n++
		}
	}
	return n
}

// fakeProvisioner returns a canned join URL or a canned failure.
type fakeProvisioner struct {
	joinURL string
	err     error
	calls   int
}

func (p *fakeProvisioner) CreateRoom(_ context.Context, id uuid.UUID) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if p.joinURL != "" {
		return p.joinURL, nil
	}
	return "https://rooms.example/" + id.String(), nil
}
