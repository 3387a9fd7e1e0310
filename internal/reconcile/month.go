package reconcile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var canonicalMonth = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// monthNames is the fixed table used by legacy free-text labels such as "Enero 2025".
var monthNames = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// NormalizeMonth canonicalizes a covered-month label to YYYY-MM. Labels already
// in canonical form are returned unchanged. The second result is false when the
// label matches neither form.
func NormalizeMonth(label string) (string, bool) {
	trimmed := strings.TrimSpace(label)
	if canonicalMonth.MatchString(trimmed) {
		return trimmed, true
	}

	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) != 2 {
		return "", false
	}

	month, ok := monthNames[fields[0]]
	if !ok {
		return "", false
	}

	if len(fields[1]) != 4 {
		return "", false
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil || year <= 0 {
		return "", false
	}

	return fmt.Sprintf("%04d-%02d", year, int(month)), true
}

// MonthsEqual compares two labels after normalization. Labels that cannot be
// normalized never match anything.
func MonthsEqual(a, b string) bool {
	left, ok := NormalizeMonth(a)
	if !ok {
		return false
	}
	right, ok := NormalizeMonth(b)
	if !ok {
		return false
	}
	return left == right
}

// MonthOf formats the calendar month of t as YYYY-MM.
func MonthOf(t time.Time) string {
	return Day(t).Format("2006-01")
}
