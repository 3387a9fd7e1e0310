package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeMonth(t *testing.T) {
	cases := []struct {
		label string
		want  string
		ok    bool
	}{
		{"2025-01", "2025-01", true},
		{"Enero 2025", "2025-01", true},
		{"  DICIEMBRE   2024 ", "2024-12", true},
		{"septiembre 2023", "2023-09", true},
		{"2025-13", "", false},
		{"not a month", "", false},
		{"Enero", "", false},
		{"Enero 25", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := NormalizeMonth(tc.label)
		require.Equal(t, tc.ok, ok, tc.label)
		require.Equal(t, tc.want, got, tc.label)
	}
}

func TestMonthsEqual(t *testing.T) {
	require.True(t, MonthsEqual("Enero 2025", "2025-01"))
	require.True(t, MonthsEqual("marzo 2025", "Marzo 2025"))
	require.False(t, MonthsEqual("Febrero 2025", "2025-01"))
	require.False(t, MonthsEqual("not a month", "2025-01"))
	require.False(t, MonthsEqual("", ""))
}

func TestMonthOf(t *testing.T) {
	require.Equal(t, "2025-03", MonthOf(time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)))
}

func TestWindowHelpers(t *testing.T) {
	today := time.Date(2025, time.February, 10, 15, 30, 0, 0, time.UTC)

	month := MonthWindow(today)
	require.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), month.From)
	require.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), month.To)

	forward := ForwardWindow(today, 30)
	require.True(t, forward.Contains(today))
	require.True(t, forward.Contains(today.AddDate(0, 0, 30)))
	require.False(t, forward.Contains(today.AddDate(0, 0, 31)))
	require.False(t, forward.Contains(today.AddDate(0, 0, -1)))

	reversed := NewWindow(today, today.AddDate(0, 0, -3))
	require.True(t, reversed.From.Before(reversed.To))
	require.Equal(t, 3, DaysBetween(reversed.From, reversed.To))
}
