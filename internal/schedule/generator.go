// Package schedule holds the pure scheduling logic: turning a counselor's
// working window into discrete bookable intervals, and classifying slots and
// consultations against the advancing clock. Nothing here touches storage.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/calmapp/counselbook/internal/timeutil"
)

// Policy constants. Every slot is exactly ConsultationMinutes long and
// consecutive slots are separated by BreakMinutes; window endpoints must lie
// on BoundaryMinutes ticks.
const (
	ConsultationMinutes = 60
	BreakMinutes        = 30
	BoundaryMinutes     = 30
)

var (
	ErrWindowInverted = errors.New("window end must be after its effective start")
	ErrOffBoundary    = errors.New("window boundaries must lie on 30-minute ticks")
	ErrWindowTooSmall = errors.New("window cannot fit a single consultation")
)

// Interval is a candidate slot, in minute offsets since midnight.
type Interval struct {
	Start int
	End   int
}

// Generate produces the bookable intervals for the window
// [startMin, endMin] on the given calendar date. Generation begins at
// startMin, or at the next 30-minute boundary at or after "now" when the
// requested start already elapsed, and advances by consultation length plus
// break. Candidates whose start elapsed are dropped silently; dropped
// reports how many.
//
// Elapsed-ness is judged against full instants: a window on a future date
// is never adjusted, and a window on a past date has nothing left to emit.
//
// The window is validated, not coerced: an inverted or misaligned window and
// a window too small for one consultation are errors.
func Generate(date time.Time, startMin, endMin int, now time.Time) (intervals []Interval, dropped int, err error) {
	if !timeutil.OnBoundary(startMin, BoundaryMinutes) || !timeutil.OnBoundary(endMin, BoundaryMinutes) {
		return nil, 0, ErrOffBoundary
	}

	effective := startMin
	if now.After(timeutil.At(date, startMin)) {
		adjusted := timeutil.NextBoundary(timeutil.MinutesOf(now), BoundaryMinutes)
		if !sameDate(date, now) {
			// The whole date lies in the past.
			adjusted = endMin
		}
		dropped = countFitting(startMin, min(adjusted, endMin))
		effective = adjusted
	}

	if endMin <= effective {
		return nil, 0, fmt.Errorf("%w: start %s, end %s", ErrWindowInverted,
			timeutil.Storage(effective), timeutil.Storage(endMin))
	}
	if endMin-effective < ConsultationMinutes {
		return nil, 0, ErrWindowTooSmall
	}

	for cur := effective; cur+ConsultationMinutes <= endMin; cur += ConsultationMinutes + BreakMinutes {
		intervals = append(intervals, Interval{Start: cur, End: cur + ConsultationMinutes})
	}
	return intervals, dropped, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// countFitting reports how many candidates the unadjusted cursor would have
// emitted before reaching limit.
func countFitting(startMin, limit int) int {
	n := 0
	for cur := startMin; cur < limit; cur += ConsultationMinutes + BreakMinutes {
		n++
	}
	return n
}
