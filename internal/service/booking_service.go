package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/calmapp/counselbook/internal/model"
	"github.com/calmapp/counselbook/internal/notify"
	"github.com/calmapp/counselbook/internal/schedule"
	"github.com/calmapp/counselbook/internal/timeutil"
)

// orphanAge is how long a reservation may sit without a referencing
// consultation before the sweep treats it as the leftover of a crashed
// booking and releases it.
const orphanAge = 2 * time.Minute

// BookingService runs the reservation transaction: verify the slot, take it
// with the conditional write, create the pending consultation, and
// compensate if the last step fails.
type BookingService struct {
	slots         SlotStore
	consultations ConsultationStore
	dispatcher    notify.Dispatcher
	logger        *zap.Logger
	now           func() time.Time
}

func NewBookingService(slots SlotStore, consultations ConsultationStore, dispatcher notify.Dispatcher, logger *zap.Logger) *BookingService {
	return &BookingService{
		slots:         slots,
		consultations: consultations,
		dispatcher:    dispatcher,
		logger:        logger,
		now:           time.Now,
	}
}

// Book reserves the slot for the student and creates the pending
// consultation referencing it.
//
// The conditional reservation write is the sole concurrency control: of two
// racing students exactly one passes step 4, so at most one consultation is
// ever created against a slot. If the consultation insert fails after the
// reservation succeeded, the reservation is rolled back best-effort and the
// insert error is surfaced either way.
func (s *BookingService) Book(ctx context.Context, slotID, studentID uuid.UUID) (*model.Consultation, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, model.ErrSlotNotFound
	}

	startMin, err := timeutil.ToMinutes(slot.StartTime)
	if err != nil {
		return nil, fmt.Errorf("parse slot start time: %w", err)
	}
	if schedule.SlotElapsed(timeutil.At(slot.Date, startMin), s.now()) {
		return nil, model.ErrSlotExpired
	}

	if slot.IsBooked {
		return nil, model.ErrSlotAlreadyBooked
	}

	if err := s.slots.Reserve(ctx, slotID); err != nil {
		return nil, err
	}

	consultation := &model.Consultation{
		StudentID:   studentID,
		CounselorID: slot.CounselorID,
		Date:        slot.Date,
		StartTime:   slot.StartTime,
		Status:      model.StatusPending,
		SlotID:      slotID,
	}

	if err := s.consultations.Create(ctx, consultation); err != nil {
		if releaseErr := s.slots.Release(ctx, slotID); releaseErr != nil {
			s.logger.Error("Failed to release slot after consultation create failed",
				zap.String("slot_id", slotID.String()),
				zap.Error(releaseErr))
		}
		return nil, fmt.Errorf("create consultation: %w", err)
	}

	s.logger.Info("Slot booked",
		zap.String("consultation_id", consultation.ID.String()),
		zap.String("slot_id", slotID.String()),
		zap.String("student_id", studentID.String()),
		zap.String("counselor_id", slot.CounselorID.String()),
	)

	if err := s.dispatcher.Dispatch(ctx, notify.EventBooked, consultation); err != nil {
		// Notifications are best-effort; the booking stands.
		s.logger.Warn("Booked notification failed", zap.Error(err))
	}

	return consultation, nil
}

// ReleaseOrphans frees reservations older than orphanAge that never got a
// consultation record. Repairs the gap left by a client that crashed between
// the reservation write and the consultation insert.
func (s *BookingService) ReleaseOrphans(ctx context.Context) (int, error) {
	orphans, err := s.slots.ListOrphanedReservations(ctx, s.now().Add(-orphanAge))
	if err != nil {
		return 0, fmt.Errorf("list orphaned reservations: %w", err)
	}

	var (
		released int
		errs     error
	)
	for _, slot := range orphans {
		if err := s.slots.Release(ctx, slot.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("release slot %s: %w", slot.ID, err))
			continue
		}
		released++
		s.logger.Warn("Released orphaned reservation",
			zap.String("slot_id", slot.ID.String()),
			zap.String("counselor_id", slot.CounselorID.String()),
		)
	}

	return released, errs
}
