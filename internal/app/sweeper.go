package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/calmapp/counselbook/internal/service"
)

// Sweeper owns the periodic reconciliation: the grace-period expiration
// sweep and orphaned-reservation repair. It runs server-side for all
// counselors, so reconciliation does not depend on any client being
// connected.
type Sweeper struct {
	consultations *service.ConsultationService
	bookings      *service.BookingService
	interval      time.Duration
	logger        *zap.Logger
	stopChan      chan struct{}
}

func NewSweeper(consultations *service.ConsultationService, bookings *service.BookingService, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		consultations: consultations,
		bookings:      bookings,
		interval:      interval,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting expiration sweeper", zap.Duration("interval", s.interval))

	go s.run(ctx)
}

// Stop terminates the sweep loop.
func (s *Sweeper) Stop() {
	s.logger.Info("Stopping expiration sweeper")
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	// First pass immediately on start.
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Expiration sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Expiration sweeper cancelled")
			return
		}
	}
}

// sweep is best-effort: a failed iteration is logged and the next one
// reconciles whatever is currently expired, so staleness stays bounded.
func (s *Sweeper) sweep(ctx context.Context) {
	swept, err := s.consultations.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("Expiration sweep failed", zap.Int("swept", swept), zap.Error(err))
	}

	released, err := s.bookings.ReleaseOrphans(ctx)
	if err != nil {
		s.logger.Error("Orphan repair failed", zap.Int("released", released), zap.Error(err))
	}
}
