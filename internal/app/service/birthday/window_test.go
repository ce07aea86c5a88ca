package birthday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(hh, mm int) time.Time {
	return time.Date(2026, 6, 1, hh, mm, 0, 0, time.UTC)
}

func TestInWindow(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		now        time.Time
		want       bool
	}{
		{"same day inside", "09:00", "21:00", at(12, 0), true},
		{"same day after end", "09:00", "21:00", at(22, 0), false},
		{"same day before start", "09:00", "21:00", at(8, 59), false},
		{"inclusive bounds", "09:00", "21:00", at(21, 0), true},
		{"overnight late", "22:00", "02:00", at(23, 30), true},
		{"overnight early", "22:00", "02:00", at(1, 15), true},
		{"overnight gap", "22:00", "02:00", at(12, 0), false},
		{"full day", "10:00", "10:00", at(3, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := InWindow(tc.now, tc.start, tc.end)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestInWindow_MalformedIsOpen(t *testing.T) {
	for _, bad := range [][2]string{{"9am", "21:00"}, {"09:00", "25:00"}, {"", ""}, {"09:61", "10:00"}} {
		got, err := InWindow(at(3, 0), bad[0], bad[1])
		require.Error(t, err)
		require.True(t, got)
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock(" 07:05 ")
	require.NoError(t, err)
	require.Equal(t, 425, m)
}

func TestMatchKeys_LeapDay(t *testing.T) {
	require.Equal(t, []string{"02-28", "02-29"}, matchKeys(time.Date(2027, 2, 28, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, []string{"02-28"}, matchKeys(time.Date(2028, 2, 28, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, []string{"02-29"}, matchKeys(time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, []string{"12-31"}, matchKeys(time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC)))
}
