package reports

import (
	"encoding/json"
	"testing"
	"time"

	"kopilka/internal/core"
)

const allZero = `{"Sunday":0,"Monday":0,"Tuesday":0,"Wednesday":0,"Thursday":0,"Friday":0,"Saturday":0}`

func TestSpendingByWeekdayEmpty(t *testing.T) {
	ref := at(2021, time.December, 31, 0)
	got := SpendingByWeekday(nil, &ref, nil)
	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != allZero {
		t.Fatalf("got %s, want %s", raw, allZero)
	}
}

func TestSpendingByWeekdayAverages(t *testing.T) {
	// 2021-12-27 is a Monday, 2021-12-31 a Friday.
	txs := []core.Transaction{
		ok(at(2021, time.December, 27, 10), "-100"),
		ok(at(2021, time.December, 20, 10), "-50.5"),
		ok(at(2021, time.December, 31, 23), "-10"),
		ok(at(2021, time.December, 31, 9), "30"),
		{OperationDate: at(2021, time.December, 31, 9), Status: "FAILED", Amount: dec("-1000")},
		// 31 Dec minus three months clamps to 30 Sep, a Thursday.
		ok(at(2021, time.September, 30, 12), "-999"),
		ok(at(2021, time.September, 29, 12), "-777"),
		ok(at(2022, time.January, 1, 0), "-555"),
	}
	ref := at(2021, time.December, 31, 0)
	got := SpendingByWeekday(txs, &ref, nil)

	assertDec(t, "Monday", got.Get(time.Monday), "75.25")
	assertDec(t, "Friday", got.Get(time.Friday), "20")
	assertDec(t, "Thursday", got.Get(time.Thursday), "999")
	assertDec(t, "Wednesday", got.Get(time.Wednesday), "0")
	assertDec(t, "Saturday", got.Get(time.Saturday), "0")
	for _, d := range weekdayOrder {
		if got.Get(d).IsNegative() {
			t.Fatalf("%s negative: %s", d, got.Get(d))
		}
	}
}

func TestSpendingByWeekdayDefaultsToClock(t *testing.T) {
	txs := []core.Transaction{ok(at(2021, time.December, 27, 10), "-42")}
	now := func() time.Time { return at(2021, time.December, 28, 15) }
	got := SpendingByWeekday(txs, nil, now)
	assertDec(t, "Monday", got.Get(time.Monday), "42")

	later := func() time.Time { return at(2022, time.June, 1, 0) }
	got = SpendingByWeekday(txs, nil, later)
	assertDec(t, "Monday", got.Get(time.Monday), "0")
}

func TestWeekdayWindowClamps(t *testing.T) {
	from, to := WeekdayWindow(at(2024, time.May, 31, 14))
	if !from.Equal(at(2024, time.February, 29, 0)) {
		t.Fatalf("from = %v", from)
	}
	if to.Day() != 31 || to.Hour() != 23 {
		t.Fatalf("to = %v", to)
	}
}

func TestWeekdayAveragesJSONOrder(t *testing.T) {
	var w WeekdayAverages
	w[time.Sunday] = dec("1.5")
	w[time.Saturday] = dec("7")
	raw, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Sunday":1.5,"Monday":0,"Tuesday":0,"Wednesday":0,"Thursday":0,"Friday":0,"Saturday":7}`
	if string(raw) != want {
		t.Fatalf("got %s, want %s", raw, want)
	}

	var back WeekdayAverages
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	assertDec(t, "Saturday", back.Get(time.Saturday), "7")
}
