// Package worker computes reports requested over the message broker and keeps
// the SQLite store in step with the bank export.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"kopilka/internal/amqp"
	"kopilka/internal/log"
	"kopilka/internal/services"
)

// ReportRunner computes a report as an encoded JSON document.
type ReportRunner interface {
	Run(ctx context.Context, req services.Request) (string, error)
}

// ResultPublisher delivers a finished report.
type ResultPublisher interface {
	PublishResult(ctx context.Context, res *amqp.ReportResult) error
}

// RequestConsumer feeds report requests to a handler until ctx ends.
type RequestConsumer interface {
	ConsumeRequests(ctx context.Context, handler func(context.Context, *amqp.ReportRequest) error) error
}

// Stats counts handled requests.
type Stats struct {
	Completed int64
	Rejected  int64
	Failed    int64
}

// ReportWorker answers report requests.
type ReportWorker struct {
	reports ReportRunner
	results ResultPublisher
	timeout time.Duration
	logger  *log.Logger

	completed int64
	rejected  int64
	failed    int64
}

// NewReportWorker creates a worker. timeout bounds each report; 0 means 30s.
func NewReportWorker(reports ReportRunner, results ResultPublisher, timeout time.Duration, logger *log.Logger) *ReportWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReportWorker{
		reports: reports,
		results: results,
		timeout: timeout,
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentWorker),
	}
}

// HandleRequest computes msg and publishes the result. Invalid input is
// answered with ok=false and not retried; a failing source returns an error
// so the delivery is requeued.
func (w *ReportWorker) HandleRequest(ctx context.Context, msg *amqp.ReportRequest) error {
	logger := w.logger.With(log.FieldRequestID, msg.ID, log.FieldReport, msg.Kind)
	start := time.Now()

	rctx, cancel := context.WithTimeout(ctx, w.timeout)
	body, err := w.reports.Run(rctx, services.Request{
		Kind:  services.Kind(msg.Kind),
		Date:  msg.Date,
		Month: msg.Month,
		Limit: msg.Limit,
	})
	cancel()

	if err != nil && !services.IsInputError(err) {
		atomic.AddInt64(&w.failed, 1)
		return fmt.Errorf("run %s report: %w", msg.Kind, err)
	}

	if err := w.results.PublishResult(ctx, amqp.NewReportResult(msg, body, err)); err != nil {
		atomic.AddInt64(&w.failed, 1)
		return fmt.Errorf("publish result: %w", err)
	}

	if err != nil {
		atomic.AddInt64(&w.rejected, 1)
		logger.WarnContext(ctx, "Rejected report request", log.FieldError, err)
		return nil
	}
	atomic.AddInt64(&w.completed, 1)
	logger.InfoContext(ctx, "Report completed", log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Run consumes requests until ctx is cancelled.
func (w *ReportWorker) Run(ctx context.Context, consumer RequestConsumer) error {
	w.logger.InfoContext(ctx, "Report worker started", log.FieldOperation, log.OpConsume)
	err := consumer.ConsumeRequests(ctx, w.HandleRequest)
	stats := w.Stats()
	w.logger.InfoContext(ctx, "Report worker stopped",
		"completed", stats.Completed,
		"rejected", stats.Rejected,
		"failed", stats.Failed)
	return err
}

// Stats returns the counters so far.
func (w *ReportWorker) Stats() Stats {
	return Stats{
		Completed: atomic.LoadInt64(&w.completed),
		Rejected:  atomic.LoadInt64(&w.rejected),
		Failed:    atomic.LoadInt64(&w.failed),
	}
}
