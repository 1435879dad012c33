package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	TimestampLayout     = "2006-01-02 15:04:05"
	DayLayout           = "2006-01-02"
	MonthLayout         = "2006-01"
	OperationDateLayout = "02.01.2006 15:04:05"
	PaymentDateLayout   = "02.01.2006"
)

// ParseTimestamp parses the main-page reference timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: want %s", ErrInvalidTimestamp, s, TimestampLayout)
	}
	return t, nil
}

// ParseDay parses a YYYY-MM-DD calendar date at midnight local time.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: want %s", ErrInvalidDate, s, DayLayout)
	}
	return t, nil
}

// ParseMonth parses YYYY-MM into the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.ParseInLocation(MonthLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: want %s", ErrInvalidMonth, s, MonthLayout)
	}
	return t, nil
}

// ValidateLimit checks the round-up step.
func ValidateLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: %d, must be positive", ErrInvalidLimit, limit)
	}
	return nil
}

// ParseOperationDate parses the export's day-first operation date. Seconds may be omitted.
func ParseOperationDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{OperationDateLayout, "02.01.2006 15:04", PaymentDateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w %q: want %s", ErrInvalidDate, s, OperationDateLayout)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfMonth returns midnight of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// AddMonthsClamped shifts t by months keeping the day of month, clamped to the
// target month's length (31 May - 3 months = 28 or 29 Feb).
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// SameMonth reports whether a and b fall in the same calendar year and month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
