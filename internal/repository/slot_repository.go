package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calmapp/counselbook/internal/model"
	"github.com/calmapp/counselbook/internal/repository/base"
)

const slotColumns = "id, counselor_id, date, start_time, end_time, is_booked, created_at"

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

// CreateBatch inserts a counselor's generated slots for one date in a single
// transaction. A duplicate (counselor, date, start_time) aborts the whole
// batch with ErrSlotExists.
func (r *SlotRepository) CreateBatch(ctx context.Context, slots []*model.AvailabilitySlot) error {
	if len(slots) == 0 {
		return nil
	}

	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO availability_slots (counselor_id, date, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_booked, created_at
	`

	for _, slot := range slots {
		err := tx.QueryRow(
			ctx, query,
			slot.CounselorID,
			slot.Date,
			slot.StartTime,
			slot.EndTime,
		).Scan(&slot.ID, &slot.IsBooked, &slot.CreatedAt)

		if err != nil {
			if base.IsUniqueViolation(err) {
				return fmt.Errorf("slot %s %s: %w", slot.Date.Format("2006-01-02"), slot.StartTime, model.ErrSlotExists)
			}
			return fmt.Errorf("create slot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID fetches a slot by id. Returns (nil, nil) when the row is absent.
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// List fetches slots matching the filter, ordered by date and start time.
// The store knows nothing about "now"; callers post-filter elapsed slots
// through the schedule classifier.
func (r *SlotRepository) List(ctx context.Context, filter model.SlotFilter) ([]*model.AvailabilitySlot, error) {
	var (
		conds []string
		args  []any
	)

	if filter.CounselorID != nil {
		args = append(args, *filter.CounselorID)
		conds = append(conds, fmt.Sprintf("counselor_id = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		conds = append(conds, fmt.Sprintf("date = $%d", len(args)))
	}
	if filter.IsBooked != nil {
		args = append(args, *filter.IsBooked)
		conds = append(conds, fmt.Sprintf("is_booked = $%d", len(args)))
	}

	query := `SELECT ` + slotColumns + ` FROM availability_slots`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date, start_time"

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("list slots: %w", rows.Err())
	}

	return slots, nil
}

// Reserve flips is_booked false->true for the given slot. The predicate and
// the write execute as one atomic statement; of two racing bookers exactly
// one observes a non-zero row count. This is the system's sole concurrency
// primitive.
func (r *SlotRepository) Reserve(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE availability_slots
		SET is_booked = TRUE, booked_at = now()
		WHERE id = $1 AND is_booked = FALSE
	`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}

	if affected == 0 {
		return model.ErrSlotAlreadyBooked
	}

	return nil
}

// Release is the compensation write: it undoes a reservation after a failed
// downstream step. It is the only path that flips is_booked true->false.
// Releasing a slot that is already unbooked is a no-op, so retrying the
// compensation is safe.
func (r *SlotRepository) Release(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE availability_slots
		SET is_booked = FALSE, booked_at = NULL
		WHERE id = $1 AND is_booked = TRUE
	`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	if affected == 0 {
		slot, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if slot == nil {
			return model.ErrSlotNotFound
		}
	}

	return nil
}

// Delete removes a slot, but only while it is unbooked.
func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM availability_slots WHERE id = $1 AND is_booked = FALSE`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if affected == 0 {
		slot, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if slot == nil {
			return model.ErrSlotNotFound
		}
		return model.ErrSlotAlreadyBooked
	}

	return nil
}

// DeleteUnbooked clears every unbooked slot for a counselor/date and reports
// how many rows went away.
func (r *SlotRepository) DeleteUnbooked(ctx context.Context, counselorID uuid.UUID, date time.Time) (int64, error) {
	query := `
		DELETE FROM availability_slots
		WHERE counselor_id = $1 AND date = $2 AND is_booked = FALSE
	`

	affected, err := r.ExecAffected(ctx, query, counselorID, date)
	if err != nil {
		return 0, fmt.Errorf("delete unbooked slots: %w", err)
	}

	return affected, nil
}

// ListOrphanedReservations finds slots that were reserved before the cutoff
// but never got a referencing consultation: the leftover of a booking that
// crashed between the reservation write and the consultation insert.
func (r *SlotRepository) ListOrphanedReservations(ctx context.Context, cutoff time.Time) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots s
		WHERE s.is_booked = TRUE
		  AND s.booked_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM consultations c WHERE c.slot_id = s.id
		  )
	`

	rows, err := r.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list orphaned reservations: %w", err)
	}
	defer rows.Close()

	var slots []*model.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("list orphaned reservations: %w", rows.Err())
	}

	return slots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*model.AvailabilitySlot, error) {
	var slot model.AvailabilitySlot
	err := row.Scan(
		&slot.ID,
		&slot.CounselorID,
		&slot.Date,
		&slot.StartTime,
		&slot.EndTime,
		&slot.IsBooked,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
