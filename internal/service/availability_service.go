package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calmapp/counselbook/internal/model"
	"github.com/calmapp/counselbook/internal/schedule"
	"github.com/calmapp/counselbook/internal/timeutil"
)

// AvailabilityService turns a counselor's declared working window into
// persisted slots and serves the bookable-slot reads.
type AvailabilityService struct {
	slots  SlotStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAvailabilityService(slots SlotStore, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		slots:  slots,
		logger: logger,
		now:    time.Now,
	}
}

// PublishWindow generates and persists the slots for a working window on the
// given date. Accepts clock strings in either storage or display form.
// Returns the created slots and how many candidates were dropped for having
// already elapsed.
func (s *AvailabilityService) PublishWindow(ctx context.Context, counselorID uuid.UUID, date time.Time, start, end string) ([]*model.AvailabilitySlot, int, error) {
	startMin, err := timeutil.ToMinutes(start)
	if err != nil {
		return nil, 0, fmt.Errorf("parse window start: %w", err)
	}
	endMin, err := timeutil.ToMinutes(end)
	if err != nil {
		return nil, 0, fmt.Errorf("parse window end: %w", err)
	}

	date = dateOnly(date)
	intervals, dropped, err := schedule.Generate(date, startMin, endMin, s.now())
	if err != nil {
		return nil, 0, err
	}

	slots := make([]*model.AvailabilitySlot, 0, len(intervals))
	for _, iv := range intervals {
		slots = append(slots, &model.AvailabilitySlot{
			CounselorID: counselorID,
			Date:        date,
			StartTime:   timeutil.Storage(iv.Start),
			EndTime:     timeutil.Storage(iv.End),
		})
	}

	if err := s.slots.CreateBatch(ctx, slots); err != nil {
		return nil, 0, err
	}

	s.logger.Info("Availability window published",
		zap.String("counselor_id", counselorID.String()),
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("slots", len(slots)),
		zap.Int("dropped", dropped),
	)

	return slots, dropped, nil
}

// ListOpen returns the counselor's unbooked slots for a date that are still
// in the future. Elapsed slots are filtered here, on every read; the store
// itself knows nothing about "now".
func (s *AvailabilityService) ListOpen(ctx context.Context, counselorID uuid.UUID, date time.Time) ([]*model.AvailabilitySlot, error) {
	date = dateOnly(date)
	booked := false
	all, err := s.slots.List(ctx, model.SlotFilter{
		CounselorID: &counselorID,
		Date:        &date,
		IsBooked:    &booked,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	open := make([]*model.AvailabilitySlot, 0, len(all))
	for _, slot := range all {
		startMin, err := timeutil.ToMinutes(slot.StartTime)
		if err != nil {
			s.logger.Warn("Slot has unparseable start time",
				zap.String("slot_id", slot.ID.String()),
				zap.String("start_time", slot.StartTime))
			continue
		}
		if schedule.SlotElapsed(timeutil.At(slot.Date, startMin), now) {
			continue
		}
		open = append(open, slot)
	}

	return open, nil
}

// RemoveSlot deletes one of the counselor's own unbooked slots.
func (s *AvailabilityService) RemoveSlot(ctx context.Context, counselorID, slotID uuid.UUID) error {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return model.ErrSlotNotFound
	}
	if slot.CounselorID != counselorID {
		return model.ErrNotOwner
	}

	return s.slots.Delete(ctx, slotID)
}

// ClearDay bulk-deletes the counselor's unbooked slots for a date and
// reports how many were removed.
func (s *AvailabilityService) ClearDay(ctx context.Context, counselorID uuid.UUID, date time.Time) (int64, error) {
	removed, err := s.slots.DeleteUnbooked(ctx, counselorID, dateOnly(date))
	if err != nil {
		return 0, err
	}

	s.logger.Info("Availability cleared",
		zap.String("counselor_id", counselorID.String()),
		zap.String("date", dateOnly(date).Format("2006-01-02")),
		zap.Int64("removed", removed),
	)

	return removed, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
