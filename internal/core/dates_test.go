package core

import (
	"errors"
	"testing"
	"time"
)

func TestParsers(t *testing.T) {
	if _, err := ParseTimestamp("2021-12-31 16:44:00"); err != nil {
		t.Fatalf("timestamp: %v", err)
	}
	if _, err := ParseTimestamp("2021-12-31"); !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
	if _, err := ParseDay("31.12.2021"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	m, err := ParseMonth("2021-12")
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if m.Year() != 2021 || m.Month() != time.December || m.Day() != 1 {
		t.Fatalf("unexpected month %v", m)
	}
	if _, err := ParseMonth("2021-13"); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestValidateLimit(t *testing.T) {
	for _, l := range []int{0, -1, -100} {
		if err := ValidateLimit(l); !errors.Is(err, ErrInvalidLimit) {
			t.Fatalf("limit %d: expected ErrInvalidLimit, got %v", l, err)
		}
	}
	if err := ValidateLimit(50); err != nil {
		t.Fatalf("limit 50: %v", err)
	}
}

func TestParseOperationDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"31.12.2021 16:44:00", time.Date(2021, 12, 31, 16, 44, 0, 0, time.Local)},
		{"31.12.2021 16:44", time.Date(2021, 12, 31, 16, 44, 0, 0, time.Local)},
		{"31.12.2021", time.Date(2021, 12, 31, 0, 0, 0, 0, time.Local)},
	}
	for _, tc := range cases {
		got, err := ParseOperationDate(tc.in)
		if err != nil || !got.Equal(tc.want) {
			t.Fatalf("%q: got %v (err=%v), want %v", tc.in, got, err, tc.want)
		}
	}
	if _, err := ParseOperationDate("2021-12-31"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestAddMonthsClamped(t *testing.T) {
	cases := []struct {
		from   time.Time
		months int
		want   time.Time
	}{
		{time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), -3, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 5, 31, 0, 0, 0, 0, time.UTC), -3, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2021, 12, 15, 0, 0, 0, 0, time.UTC), -3, time.Date(2021, 9, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2022, 1, 31, 0, 0, 0, 0, time.UTC), -3, time.Date(2021, 10, 31, 0, 0, 0, 0, time.UTC)},
		{time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), -3, time.Date(2021, 9, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := AddMonthsClamped(tc.from, tc.months); !got.Equal(tc.want) {
			t.Errorf("AddMonthsClamped(%v, %d) = %v, want %v", tc.from, tc.months, got, tc.want)
		}
	}
}

func TestDayBoundaries(t *testing.T) {
	ts := time.Date(2021, 12, 31, 16, 44, 0, 0, time.UTC)
	if got := StartOfMonth(ts); !got.Equal(time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("StartOfMonth = %v", got)
	}
	end := EndOfDay(ts)
	if end.Day() != 31 || end.Hour() != 23 || !end.Add(time.Nanosecond).Equal(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("EndOfDay = %v", end)
	}
	if !SameMonth(ts, time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)) || SameMonth(ts, time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("SameMonth mismatch")
	}
}
