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
	"github.com/calmapp/counselbook/internal/video"
)

// ConsultationService owns the counselor-side lifecycle: accept with its
// rejection cascade, explicit and bulk rejection, the grace-period sweep,
// meeting end, and notes.
type ConsultationService struct {
	consultations ConsultationStore
	slots         SlotStore
	provisioner   video.Provisioner
	dispatcher    notify.Dispatcher
	logger        *zap.Logger
	now           func() time.Time
}

func NewConsultationService(
	consultations ConsultationStore,
	slots SlotStore,
	provisioner video.Provisioner,
	dispatcher notify.Dispatcher,
	logger *zap.Logger,
) *ConsultationService {
	return &ConsultationService{
		consultations: consultations,
		slots:         slots,
		provisioner:   provisioner,
		dispatcher:    dispatcher,
		logger:        logger,
		now:           time.Now,
	}
}

// Accept transitions one pending request to accepted and cascades rejection
// over its competitors.
//
// The video room is provisioned before the transition commits: if the
// provider fails, the request stays pending. Once the acceptance commits,
// every other pending request for the same (counselor, date, time) is
// rejected with the slot-taken reason; cascade failures are reported in the
// returned error but never roll back the acceptance.
func (s *ConsultationService) Accept(ctx context.Context, counselorID, consultationID uuid.UUID) (*model.Consultation, error) {
	c, err := s.getOwned(ctx, counselorID, consultationID)
	if err != nil {
		return nil, err
	}
	if !c.IsPending() {
		return nil, fmt.Errorf("%w: consultation is %s", model.ErrInvalidTransition, c.Status)
	}

	joinURL, err := s.provisioner.CreateRoom(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("provision video room: %w", err)
	}

	if err := s.consultations.Accept(ctx, c.ID, joinURL); err != nil {
		return nil, err
	}
	c.Status = model.StatusAccepted
	c.MeetingLink = joinURL

	s.logger.Info("Consultation accepted",
		zap.String("consultation_id", c.ID.String()),
		zap.String("counselor_id", counselorID.String()),
		zap.String("date", c.Date.Format("2006-01-02")),
		zap.String("start_time", c.StartTime),
	)

	// The slot was normally reserved when the request was booked; re-assert
	// the flag in case the counselor recreated the slot row since then.
	if slot, slotErr := s.slots.GetByID(ctx, c.SlotID); slotErr != nil {
		s.logger.Warn("Failed to check slot after acceptance", zap.Error(slotErr))
	} else if slot != nil && !slot.IsBooked {
		if reserveErr := s.slots.Reserve(ctx, c.SlotID); reserveErr != nil {
			s.logger.Warn("Failed to re-reserve slot after acceptance",
				zap.String("slot_id", c.SlotID.String()),
				zap.Error(reserveErr))
		}
	}

	cascadeErr := s.cascadeReject(ctx, c)

	if err := s.dispatcher.Dispatch(ctx, notify.EventAccepted, c); err != nil {
		s.logger.Warn("Accepted notification failed", zap.Error(err))
	}

	return c, cascadeErr
}

// cascadeReject rejects every other pending request competing for the
// accepted consultation's (counselor, date, time) tuple.
func (s *ConsultationService) cascadeReject(ctx context.Context, accepted *model.Consultation) error {
	competitors, err := s.consultations.ListPendingAt(ctx, accepted.CounselorID, accepted.Date, accepted.StartTime)
	if err != nil {
		return fmt.Errorf("list competing requests: %w", err)
	}

	var errs error
	rejected := 0
	for _, rival := range competitors {
		if rival.ID == accepted.ID {
			continue
		}
		if err := s.consultations.Reject(ctx, rival.ID, model.ReasonSlotTaken); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cascade reject %s: %w", rival.ID, err))
			continue
		}
		rejected++
		rival.Status = model.StatusRejected
		if err := s.dispatcher.Dispatch(ctx, notify.EventRejected, rival); err != nil {
			s.logger.Warn("Cascade rejection notification failed", zap.Error(err))
		}
	}

	if rejected > 0 || errs != nil {
		s.logger.Info("Cascade rejection finished",
			zap.String("consultation_id", accepted.ID.String()),
			zap.Int("rejected", rejected),
			zap.Int("failed", len(multierr.Errors(errs))),
		)
	}

	return errs
}

// Reject transitions a pending request to rejected with an optional
// free-text reason.
func (s *ConsultationService) Reject(ctx context.Context, counselorID, consultationID uuid.UUID, reason string) error {
	c, err := s.getOwned(ctx, counselorID, consultationID)
	if err != nil {
		return err
	}
	if !c.IsPending() {
		return fmt.Errorf("%w: consultation is %s", model.ErrInvalidTransition, c.Status)
	}

	if err := s.consultations.Reject(ctx, c.ID, reason); err != nil {
		return err
	}
	c.Status = model.StatusRejected

	s.logger.Info("Consultation rejected",
		zap.String("consultation_id", c.ID.String()),
		zap.String("counselor_id", counselorID.String()),
	)

	if err := s.dispatcher.Dispatch(ctx, notify.EventRejected, c); err != nil {
		s.logger.Warn("Rejected notification failed", zap.Error(err))
	}

	return nil
}

// RejectAllPending rejects every pending request the counselor currently
// has. Each rejection is attempted independently; the counts report the
// aggregate outcome instead of failing atomically.
func (s *ConsultationService) RejectAllPending(ctx context.Context, counselorID uuid.UUID) (rejected, failed int, err error) {
	pending, err := s.consultations.ListByCounselor(ctx, counselorID, model.StatusPending)
	if err != nil {
		return 0, 0, fmt.Errorf("list pending requests: %w", err)
	}

	var errs error
	for _, c := range pending {
		if rejErr := s.consultations.Reject(ctx, c.ID, model.ReasonBulkRejected); rejErr != nil {
			failed++
			errs = multierr.Append(errs, fmt.Errorf("reject %s: %w", c.ID, rejErr))
			continue
		}
		rejected++
		c.Status = model.StatusRejected
		if dispErr := s.dispatcher.Dispatch(ctx, notify.EventRejected, c); dispErr != nil {
			s.logger.Warn("Bulk rejection notification failed", zap.Error(dispErr))
		}
	}

	s.logger.Info("Bulk rejection finished",
		zap.String("counselor_id", counselorID.String()),
		zap.Int("rejected", rejected),
		zap.Int("failed", failed),
	)

	return rejected, failed, errs
}

// SweepExpired auto-rejects every pending request whose grace period has
// elapsed. Idempotent: the listing selects only pending rows, so a second
// run with no time change touches nothing.
func (s *ConsultationService) SweepExpired(ctx context.Context) (int, error) {
	pending, err := s.consultations.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending requests: %w", err)
	}

	now := s.now()
	var (
		swept int
		errs  error
	)
	for _, c := range pending {
		startMin, err := timeutil.ToMinutes(c.StartTime)
		if err != nil {
			s.logger.Warn("Pending request has unparseable start time",
				zap.String("consultation_id", c.ID.String()),
				zap.String("start_time", c.StartTime))
			continue
		}
		if !schedule.GraceExpired(timeutil.At(c.Date, startMin), now) {
			continue
		}

		if err := s.consultations.Reject(ctx, c.ID, model.ReasonGraceExpired); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", c.ID, err))
			continue
		}
		swept++
		c.Status = model.StatusRejected
		if err := s.dispatcher.Dispatch(ctx, notify.EventRejected, c); err != nil {
			s.logger.Warn("Expiry notification failed", zap.Error(err))
		}
	}

	if swept > 0 {
		s.logger.Info("Expiration sweep finished", zap.Int("swept", swept))
	}

	return swept, errs
}

// EndMeeting transitions an accepted consultation to completed, clearing its
// join URL and marking the meeting ended.
func (s *ConsultationService) EndMeeting(ctx context.Context, counselorID, consultationID uuid.UUID) error {
	c, err := s.getOwned(ctx, counselorID, consultationID)
	if err != nil {
		return err
	}
	if c.Status != model.StatusAccepted {
		return fmt.Errorf("%w: consultation is %s", model.ErrInvalidTransition, c.Status)
	}

	if err := s.consultations.Complete(ctx, c.ID); err != nil {
		return err
	}

	s.logger.Info("Meeting ended",
		zap.String("consultation_id", c.ID.String()),
		zap.String("counselor_id", counselorID.String()),
	)

	return nil
}

// SaveNotes annotates the consultation. Notes are the one field terminal
// states keep mutable.
func (s *ConsultationService) SaveNotes(ctx context.Context, counselorID, consultationID uuid.UUID, notes string) error {
	if _, err := s.getOwned(ctx, counselorID, consultationID); err != nil {
		return err
	}
	return s.consultations.SetNotes(ctx, consultationID, notes)
}

// SessionPhase classifies an accepted consultation's video session against
// the current clock. Evaluated per call, never cached: an accepted session
// past its window must read as expired even though the stored status is
// still accepted.
func (s *ConsultationService) SessionPhase(c *model.Consultation) (schedule.SessionPhase, error) {
	startMin, err := timeutil.ToMinutes(c.StartTime)
	if err != nil {
		return "", fmt.Errorf("parse start time: %w", err)
	}
	return schedule.ClassifySession(timeutil.At(c.Date, startMin), s.now()), nil
}

// ListByStudent returns all of the student's requests.
func (s *ConsultationService) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Consultation, error) {
	return s.consultations.ListByStudent(ctx, studentID)
}

// ListByCounselor returns the counselor's requests, optionally narrowed by
// status.
func (s *ConsultationService) ListByCounselor(ctx context.Context, counselorID uuid.UUID, status ...model.Status) ([]*model.Consultation, error) {
	return s.consultations.ListByCounselor(ctx, counselorID, status...)
}

func (s *ConsultationService) getOwned(ctx context.Context, counselorID, consultationID uuid.UUID) (*model.Consultation, error) {
	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, fmt.Errorf("get consultation: %w", err)
	}
	if c == nil {
		return nil, model.ErrConsultationNotFound
	}
	if c.CounselorID != counselorID {
		return nil, model.ErrNotOwner
	}
	return c, nil
}
