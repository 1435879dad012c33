// Package reports holds the pure aggregators behind every report.
//
// Functions here never touch I/O, never mutate their input and return a
// well-defined zero value for empty input.
package reports

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"kopilka/internal/core"
)

// WeekdayWindowMonths is the trailing window of the weekday report.
const WeekdayWindowMonths = 3

// weekdayOrder is the JSON key order, Sunday first like time.Weekday.
var weekdayOrder = [7]time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday, time.Saturday,
}

// WeekdayAverages maps each weekday to the average spend on that day.
// The zero value reports 0 for every day.
type WeekdayAverages [7]decimal.Decimal

// Get returns the average for day.
func (w WeekdayAverages) Get(day time.Weekday) decimal.Decimal {
	return w[day]
}

// MarshalJSON always writes all seven days, Sunday to Saturday.
func (w WeekdayAverages) MarshalJSON() ([]byte, error) {
	core.NumericMoney()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, day := range weekdayOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(day.String())
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(w[day])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts any key order; missing days stay zero.
func (w *WeekdayAverages) UnmarshalJSON(data []byte) error {
	var m map[string]decimal.Decimal
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out WeekdayAverages
	for _, day := range weekdayOrder {
		out[day] = m[day.String()]
	}
	*w = out
	return nil
}

// WeekdayWindow returns the inclusive window ending on ref's calendar day and
// starting three calendar months earlier at midnight.
func WeekdayWindow(ref time.Time) (from, to time.Time) {
	day := core.StartOfDay(ref)
	return core.AddMonthsClamped(day, -WeekdayWindowMonths), core.EndOfDay(day)
}

// SpendingByWeekday averages abs(amount) per weekday over OK transactions in
// the trailing window. A nil ref means today according to now.
func SpendingByWeekday(txs []core.Transaction, ref *time.Time, now func() time.Time) WeekdayAverages {
	var out WeekdayAverages
	if len(txs) == 0 {
		return out
	}
	day := time.Now()
	if now != nil {
		day = now()
	}
	if ref != nil {
		day = *ref
	}
	from, to := WeekdayWindow(day)

	var (
		sums   [7]decimal.Decimal
		counts [7]int64
	)
	for _, tx := range txs {
		if !tx.IsOK() || tx.OperationDate.Before(from) || tx.OperationDate.After(to) {
			continue
		}
		wd := tx.OperationDate.Weekday()
		sums[wd] = sums[wd].Add(tx.Amount.Abs())
		counts[wd]++
	}
	for wd := range out {
		if counts[wd] == 0 {
			continue
		}
		out[wd] = core.Round2(sums[wd].Div(decimal.NewFromInt(counts[wd])))
	}
	return out
}
