package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"kopilka/internal/log"
	"kopilka/internal/services"
)

// reportHandler serves one report kind. Input errors map to 400, anything else to 500.
func (s *Server) reportHandler(kind services.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.FromContext(r.Context(), s.logger)

		req, err := ParseReportRequest(kind, r.URL.Query())
		if err != nil {
			logger.WarnContext(r.Context(), "Invalid report request",
				log.FieldReport, kind.String(),
				log.FieldError, err)
			BadRequestError(err.Error()).Write(w)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()

		body, err := s.reports.Run(ctx, req)
		switch {
		case err == nil:
			NewResponse().BodyString(body).Write(w)
		case services.IsInputError(err):
			logger.WarnContext(r.Context(), "Rejected report input",
				log.FieldReport, kind.String(),
				log.FieldError, err)
			BadRequestError(err.Error()).Write(w)
		case errors.Is(err, context.DeadlineExceeded):
			logger.ErrorContext(r.Context(), "Report timed out",
				log.FieldReport, kind.String(),
				log.FieldError, err)
			ServiceUnavailableError("report timed out").Write(w)
		default:
			logger.ErrorContext(r.Context(), "Report failed",
				log.FieldReport, kind.String(),
				log.FieldError, err)
			InternalServerError("failed to compute report").Write(w)
		}
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the record source and reports limiter and security counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.ready == nil:
		checks["source"] = "not_checked"
	default:
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context(), s.logger).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			checks["source"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["source"] = "ok"
		}
	}

	if s.lastImport != nil {
		at, rows, err := s.lastImport(ctx)
		switch {
		case err != nil:
			checks["last_import"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		case at.IsZero():
			checks["last_import"] = "never"
		default:
			checks["last_import"] = map[string]any{
				"at":   at.Format(time.RFC3339),
				"rows": rows,
			}
		}
	}

	limiter := s.rateLimiter.GetMetrics()
	checks["rate_limiter"] = map[string]int64{
		"active_clients": limiter.ClientCount,
		"limited":        limiter.TotalHits,
	}
	sec := s.securityDetector.GetMetrics()
	checks["security"] = map[string]int64{
		"blocked_requests": sec.BlockedRequests,
	}
	checks["requests"] = s.traceMiddleware.GetMetrics().TotalRequests

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
