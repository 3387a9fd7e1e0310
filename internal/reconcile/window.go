// Package reconcile derives class capacity, debt and recovery information from
// raw academy rows. Every function is pure: callers fetch the rows, the package
// computes, nothing is cached or mutated here.
package reconcile

import "time"

const (
	// ForwardWindowDays bounds the dated occurrence view of the dashboard.
	ForwardWindowDays = 30
	// PerSessionCoverageDays is how long a per-session payment covers a student.
	PerSessionCoverageDays = 30
	// NeverPaidDays is reported as days since payment for students without payments.
	NeverPaidDays = 999
)

// Day truncates t to its calendar day, expressed as midnight UTC. The year,
// month and day are read in t's own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Window is an inclusive range of calendar days.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewWindow builds a window from two instants, swapping them when reversed.
func NewWindow(from, to time.Time) Window {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		from, to = to, from
	}
	return Window{From: from, To: to}
}

// ForwardWindow covers today and the following days.
func ForwardWindow(today time.Time, days int) Window {
	start := Day(today)
	return Window{From: start, To: start.AddDate(0, 0, days)}
}

// MonthWindow covers the calendar month containing today.
func MonthWindow(today time.Time) Window {
	day := Day(today)
	start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{From: start, To: start.AddDate(0, 1, -1)}
}

// Contains reports whether t falls on a day inside the window.
func (w Window) Contains(t time.Time) bool {
	day := Day(t)
	return !day.Before(w.From) && !day.After(w.To)
}

// DaysBetween counts whole calendar days from earlier to later.
func DaysBetween(earlier, later time.Time) int {
	return int(Day(later).Sub(Day(earlier)).Hours() / 24)
}
