package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot is one bookable interval owned by a counselor on a single
// date. Start and end are stored in 24-hour "HH:MM" form; the slot duration
// is always exactly the consultation length.
type AvailabilitySlot struct {
	ID          uuid.UUID `json:"id"`
	CounselorID uuid.UUID `json:"counselor_id"`
	Date        time.Time `json:"date"` // calendar date, midnight UTC
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	IsBooked    bool      `json:"is_booked"`
	CreatedAt   time.Time `json:"created_at"`
}

// SlotFilter narrows List queries. Nil fields mean "any".
type SlotFilter struct {
	CounselorID *uuid.UUID
	Date        *time.Time
	IsBooked    *bool
}
