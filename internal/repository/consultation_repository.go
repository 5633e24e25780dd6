package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calmapp/counselbook/internal/model"
	"github.com/calmapp/counselbook/internal/repository/base"
)

const consultationColumns = `id, student_id, counselor_id, date, start_time, status, slot_id,
	rejection_reason, notes, meeting_link, meeting_ended, created_at, updated_at`

type ConsultationRepository struct {
	*base.Repository
}

func NewConsultationRepository(pool *pgxpool.Pool) *ConsultationRepository {
	return &ConsultationRepository{Repository: base.NewRepository(pool)}
}

// Create inserts a new consultation request in status pending.
func (r *ConsultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (student_id, counselor_id, date, start_time, status, slot_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		c.StudentID,
		c.CounselorID,
		c.Date,
		c.StartTime,
		c.Status,
		c.SlotID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create consultation: %w", err)
	}

	return nil
}

// GetByID fetches a consultation by id. Returns (nil, nil) when absent.
func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1`

	c, err := scanConsultation(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get consultation by id: %w", err)
	}

	return c, nil
}

// ListByStudent fetches all of a student's consultations, newest first.
func (r *ConsultationRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	return r.queryMany(ctx, query, studentID)
}

// ListByCounselor fetches a counselor's consultations, optionally narrowed
// to one status.
func (r *ConsultationRepository) ListByCounselor(ctx context.Context, counselorID uuid.UUID, status ...model.Status) ([]*model.Consultation, error) {
	if len(status) > 0 {
		query := `
			SELECT ` + consultationColumns + `
			FROM consultations
			WHERE counselor_id = $1 AND status = ANY($2)
			ORDER BY created_at DESC
		`
		return r.queryMany(ctx, query, counselorID, statusStrings(status))
	}

	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE counselor_id = $1
		ORDER BY created_at DESC
	`
	return r.queryMany(ctx, query, counselorID)
}

// ListPendingAt fetches every pending request competing for the same
// (counselor, date, time) tuple. Feeds the accept-time cascade.
func (r *ConsultationRepository) ListPendingAt(ctx context.Context, counselorID uuid.UUID, date time.Time, startTime string) ([]*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE counselor_id = $1 AND date = $2 AND start_time = $3 AND status = 'pending'
		ORDER BY created_at
	`

	return r.queryMany(ctx, query, counselorID, date, startTime)
}

// ListPending fetches all pending requests system-wide, oldest first. Feeds
// the expiration sweep.
func (r *ConsultationRepository) ListPending(ctx context.Context) ([]*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE status = 'pending'
		ORDER BY created_at
	`

	return r.queryMany(ctx, query)
}

// Accept commits pending -> accepted and records the video-session join URL.
// The status predicate makes the transition conditional: a request that
// already left pending is not touched.
func (r *ConsultationRepository) Accept(ctx context.Context, id uuid.UUID, meetingLink string) error {
	query := `
		UPDATE consultations
		SET status = 'accepted', meeting_link = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`

	return r.transition(ctx, id, query, meetingLink)
}

// Reject commits pending -> rejected with the given reason.
func (r *ConsultationRepository) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE consultations
		SET status = 'rejected', rejection_reason = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`

	return r.transition(ctx, id, query, reason)
}

// Complete commits accepted -> completed, clearing the join URL and marking
// the meeting ended.
func (r *ConsultationRepository) Complete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE consultations
		SET status = 'completed', meeting_link = '', meeting_ended = TRUE, updated_at = now()
		WHERE id = $1 AND status = 'accepted'
	`

	return r.transition(ctx, id, query)
}

// SetNotes annotates a consultation. Allowed in any status, including the
// terminal ones.
func (r *ConsultationRepository) SetNotes(ctx context.Context, id uuid.UUID, notes string) error {
	query := `
		UPDATE consultations
		SET notes = $2, updated_at = now()
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query, id, notes)
	if err != nil {
		return fmt.Errorf("set notes: %w", err)
	}
	if affected == 0 {
		return model.ErrConsultationNotFound
	}

	return nil
}

// transition runs a guarded status update and distinguishes "row absent"
// from "guard not met" when nothing was affected.
func (r *ConsultationRepository) transition(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	affected, err := r.ExecAffected(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("update consultation status: %w", err)
	}

	if affected == 0 {
		c, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return model.ErrConsultationNotFound
		}
		return fmt.Errorf("%w: consultation is %s", model.ErrInvalidTransition, c.Status)
	}

	return nil
}

func (r *ConsultationRepository) queryMany(ctx context.Context, query string, args ...any) ([]*model.Consultation, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query consultations: %w", err)
	}
	defer rows.Close()

	var consultations []*model.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		consultations = append(consultations, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("query consultations: %w", rows.Err())
	}

	return consultations, nil
}

func statusStrings(statuses []model.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanConsultation(row rowScanner) (*model.Consultation, error) {
	var c model.Consultation
	err := row.Scan(
		&c.ID,
		&c.StudentID,
		&c.CounselorID,
		&c.Date,
		&c.StartTime,
		&c.Status,
		&c.SlotID,
		&c.RejectionReason,
		&c.Notes,
		&c.MeetingLink,
		&c.MeetingEnded,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
