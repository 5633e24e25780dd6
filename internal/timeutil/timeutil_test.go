package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripStorage(t *testing.T) {
	for m := 0; m < MinutesPerDay; m++ {
		got, err := ToMinutes(Storage(m))
		require.NoError(t, err)
		require.Equal(t, m, got, "storage round-trip for %d", m)
	}
}

func TestRoundTripDisplay(t *testing.T) {
	for m := 0; m < MinutesPerDay; m++ {
		got, err := ToMinutes(Display(m))
		require.NoError(t, err)
		require.Equal(t, m, got, "display round-trip for %d", m)
	}
}

func TestToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:30", 570},
		{"14:30", 870},
		{"23:59", 1439},
		{"12:00 AM", 0},
		{"12:00 PM", 720},
		{"8:00 AM", 480},
		{"2:30 PM", 870},
		{"11:59 PM", 1439},
		{" 8:00 am ", 480},
	}
	for _, tc := range cases {
		got, err := ToMinutes(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestToMinutesInvalid(t *testing.T) {
	for _, in := range []string{"", "830", "24:00", "12:60", "0:00 AM", "13:00 PM", "ab:cd", "8:xx AM"} {
		_, err := ToMinutes(in)
		assert.Error(t, err, in)
	}
}

func TestDisplayFormat(t *testing.T) {
	assert.Equal(t, "12:00 AM", Display(0))
	assert.Equal(t, "12:30 PM", Display(750))
	assert.Equal(t, "8:00 AM", Display(480))
	assert.Equal(t, "11:59 PM", Display(1439))
}

func TestNextBoundary(t *testing.T) {
	assert.Equal(t, 480, NextBoundary(480, 30))
	assert.Equal(t, 570, NextBoundary(555, 30)) // 9:15 -> 9:30
	assert.Equal(t, 30, NextBoundary(1, 30))
	assert.True(t, OnBoundary(600, 30))
	assert.False(t, OnBoundary(610, 30))
}

func TestAt(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	got := At(date, 870)
	assert.Equal(t, time.Date(2026, 3, 14, 14, 30, 0, 0, time.UTC), got)
	assert.Equal(t, 870, MinutesOf(got))
}
