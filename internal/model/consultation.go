package model

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"   // waiting for the counselor's decision
	StatusAccepted  Status = "accepted"  // confirmed, video room provisioned
	StatusRejected  Status = "rejected"  // terminal
	StatusCompleted Status = "completed" // terminal
)

// System-generated rejection reasons.
const (
	ReasonSlotTaken    = "Slot was booked by another student"
	ReasonGraceExpired = "Request expired without a response"
	ReasonBulkRejected = "Counselor is not taking consultations at this time"
)

// CanTransition reports whether from -> to is a legal status move.
// Terminal states have no outgoing transitions.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusAccepted || to == StatusRejected
	case StatusAccepted:
		return to == StatusCompleted
	default:
		return false
	}
}

// Consultation is a student's claim on a slot. It carries its own lifecycle
// independent of the slot row, which may be deleted after booking.
type Consultation struct {
	ID              uuid.UUID `json:"id"`
	StudentID       uuid.UUID `json:"student_id"`
	CounselorID     uuid.UUID `json:"counselor_id"`
	Date            time.Time `json:"date"`
	StartTime       string    `json:"start_time"`
	Status          Status    `json:"status"`
	SlotID          uuid.UUID `json:"slot_id"`
	RejectionReason string    `json:"rejection_reason"`
	Notes           string    `json:"notes"`
	MeetingLink     string    `json:"meeting_link"`
	MeetingEnded    bool      `json:"meeting_ended"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsPending checks if the consultation still awaits a decision.
func (c *Consultation) IsPending() bool {
	return c.Status == StatusPending
}

// IsTerminal checks if the consultation reached a final state.
func (c *Consultation) IsTerminal() bool {
	return c.Status == StatusRejected || c.Status == StatusCompleted
}
