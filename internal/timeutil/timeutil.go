// Package timeutil converts between clock-string representations and minute
// offsets since midnight. Two string forms exist: the 24-hour storage form
// ("14:30") persisted in the database, and the 12-hour display form
// ("2:30 PM") shown to users. All conversions round-trip exactly.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the number of valid minute offsets: [0, 1439].
const MinutesPerDay = 24 * 60

// ToMinutes parses a clock string in either storage ("14:30") or display
// ("2:30 PM") form into a minute offset since midnight.
func ToMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)

	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, "AM") || strings.HasSuffix(upper, "PM") {
		return parseDisplay(upper)
	}
	return parseStorage(s)
}

// Storage formats a minute offset in 24-hour "HH:MM" form.
func Storage(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Display formats a minute offset in 12-hour "H:MM AM/PM" form.
func Display(m int) string {
	h := m / 60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m%60, suffix)
}

// NextBoundary returns the smallest multiple of step at or after m.
func NextBoundary(m, step int) int {
	if m%step == 0 {
		return m
	}
	return (m/step + 1) * step
}

// OnBoundary checks if m lies exactly on a multiple of step.
func OnBoundary(m, step int) bool {
	return m%step == 0
}

// At combines a calendar date and a minute offset into an instant in the
// date's location. Used to compare stored date+time pairs against "now".
func At(date time.Time, minutes int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, date.Location())
}

// MinutesOf truncates an instant to its minute offset within its own day.
func MinutesOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func parseStorage(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return h*60 + m, nil
}

func parseDisplay(s string) (int, error) {
	suffix := s[len(s)-2:]
	clock := strings.TrimSpace(s[:len(s)-2])

	hh, mm, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected H:MM AM/PM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 1 || h > 12 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	if h == 12 {
		h = 0
	}
	if suffix == "PM" {
		h += 12
	}
	return h*60 + m, nil
}
