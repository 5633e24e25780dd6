package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/calmapp/counselbook/internal/model"
)

// SlotStore is the availability-store contract the services consume. The
// pgx-backed repository implements it in production; tests substitute an
// in-memory store with the same conditional-write semantics.
type SlotStore interface {
	CreateBatch(ctx context.Context, slots []*model.AvailabilitySlot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error)
	List(ctx context.Context, filter model.SlotFilter) ([]*model.AvailabilitySlot, error)

	// Reserve must execute its predicate and write atomically: of two racing
	// callers exactly one succeeds, the other gets ErrSlotAlreadyBooked.
	Reserve(ctx context.Context, id uuid.UUID) error
	Release(ctx context.Context, id uuid.UUID) error

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteUnbooked(ctx context.Context, counselorID uuid.UUID, date time.Time) (int64, error)
	ListOrphanedReservations(ctx context.Context, cutoff time.Time) ([]*model.AvailabilitySlot, error)
}

// ConsultationStore is the consultation-record contract. Status transitions
// are guarded by predicates on the current status, so a row that already
// left the expected state is never touched.
type ConsultationStore interface {
	Create(ctx context.Context, c *model.Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Consultation, error)
	ListByCounselor(ctx context.Context, counselorID uuid.UUID, status ...model.Status) ([]*model.Consultation, error)
	ListPendingAt(ctx context.Context, counselorID uuid.UUID, date time.Time, startTime string) ([]*model.Consultation, error)
	ListPending(ctx context.Context) ([]*model.Consultation, error)

	Accept(ctx context.Context, id uuid.UUID, meetingLink string) error
	Reject(ctx context.Context, id uuid.UUID, reason string) error
	Complete(ctx context.Context, id uuid.UUID) error
	SetNotes(ctx context.Context, id uuid.UUID, notes string) error
}
