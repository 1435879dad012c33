// Package services composes sources, aggregators and fetchers into the
// public report operations.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kopilka/internal/core"
	"kopilka/internal/log"
	"kopilka/internal/reports"
	"kopilka/internal/source"
)

// Kind names a report.
type Kind string

const (
	KindMainPage  Kind = "main"
	KindTransfers Kind = "transfers"
	KindInvest    Kind = "invest"
	KindWeekday   Kind = "weekday"
)

// Kinds lists every report kind.
var Kinds = []Kind{KindMainPage, KindTransfers, KindInvest, KindWeekday}

// IsValid checks if the kind is known.
func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Request carries the parameters of any report. Fields a kind does not use are ignored.
type Request struct {
	Kind  Kind
	Date  string
	Month string
	Limit int
}

// Reports exposes the four reports as indented JSON documents.
type Reports struct {
	source    source.Reader
	dashboard *Dashboard
	now       func() time.Time
	logger    *log.Logger
}

func NewReports(src source.Reader, dashboard *Dashboard, now func() time.Time, logger *log.Logger) *Reports {
	if now == nil {
		now = time.Now
	}
	return &Reports{
		source:    src,
		dashboard: dashboard,
		now:       now,
		logger:    log.OrDiscard(logger).WithComponent(log.ComponentReports),
	}
}

// Run dispatches req to the matching report.
func (r *Reports) Run(ctx context.Context, req Request) (string, error) {
	switch req.Kind {
	case KindMainPage:
		return r.MainPage(ctx, req.Date)
	case KindTransfers:
		return r.TransfersToPersons(ctx)
	case KindInvest:
		return r.InvestBank(ctx, req.Month, req.Limit)
	case KindWeekday:
		return r.SpendingByWeekday(ctx, req.Date)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
}

// MainPage answers the dashboard for a "YYYY-MM-DD HH:MM:SS" timestamp.
func (r *Reports) MainPage(ctx context.Context, ts string) (string, error) {
	at, err := core.ParseTimestamp(ts)
	if err != nil {
		return "", err
	}
	page, err := r.dashboard.MainPage(ctx, at)
	if err != nil {
		return "", err
	}
	return EncodeJSON(page)
}

// TransfersToPersons lists transfers to private persons across the whole history.
func (r *Reports) TransfersToPersons(ctx context.Context) (string, error) {
	txs, err := r.load(ctx, log.OpTransfers)
	if err != nil {
		return "", err
	}
	found := reports.TransfersToPersons(txs)
	r.logger.InfoContext(ctx, "Transfers found",
		log.FieldOperation, log.OpTransfers,
		log.FieldCount, len(found))
	return EncodeJSON(found)
}

// InvestBank simulates rounding every spend of month ("YYYY-MM") up to limit.
func (r *Reports) InvestBank(ctx context.Context, month string, limit int) (string, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return "", err
	}
	if err := core.ValidateLimit(limit); err != nil {
		return "", err
	}
	txs, err := r.load(ctx, log.OpInvest)
	if err != nil {
		return "", err
	}
	saved, err := reports.RoundUpSavings(m, core.Spends(txs), limit)
	if err != nil {
		return "", err
	}
	r.logger.InfoContext(ctx, "Round-up computed",
		log.FieldOperation, log.OpInvest,
		log.FieldMonth, month,
		"limit", limit,
		"amount_saved", saved.AmountSaved.String())
	return EncodeJSON(saved)
}

// SpendingByWeekday averages spend per weekday over three months ending on
// date ("YYYY-MM-DD"), or today when date is empty.
func (r *Reports) SpendingByWeekday(ctx context.Context, date string) (string, error) {
	var ref *time.Time
	if strings.TrimSpace(date) != "" {
		d, err := core.ParseDay(date)
		if err != nil {
			return "", err
		}
		ref = &d
	}
	txs, err := r.load(ctx, log.OpWeekday)
	if err != nil {
		return "", err
	}
	day := r.now()
	if ref != nil {
		day = *ref
	}
	from, to := reports.WeekdayWindow(day)
	r.logger.DebugContext(ctx, "Averaging spend per weekday",
		log.FieldOperation, log.OpWeekday,
		log.FieldWindowFrom, from.Format(time.DateOnly),
		log.FieldWindowTo, to.Format(time.DateOnly))
	avg := reports.SpendingByWeekday(txs, ref, r.now)
	return EncodeJSON(avg)
}

func (r *Reports) load(ctx context.Context, op string) ([]core.Transaction, error) {
	txs, err := r.source.Transactions(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load transactions",
			log.FieldOperation, op,
			log.FieldError, err)
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return txs, nil
}
