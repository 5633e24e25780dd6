package model

import "errors"

var (
	// ErrSlotNotFound — the referenced slot row no longer exists; the caller's
	// slot list is stale.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrSlotExpired — the slot's start time already elapsed.
	ErrSlotExpired = errors.New("slot has expired")

	// ErrSlotAlreadyBooked — another student won the reservation race.
	ErrSlotAlreadyBooked = errors.New("slot already booked")

	// ErrSlotExists — a slot with the same (counselor, date, start) already exists.
	ErrSlotExists = errors.New("slot already exists")

	ErrConsultationNotFound = errors.New("consultation not found")

	// ErrInvalidTransition — the requested status change violates the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotOwner — the acting user does not own the target record.
	ErrNotOwner = errors.New("not the owner of this record")
)
