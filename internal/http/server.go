package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"kopilka/internal/log"
	"kopilka/internal/middleware/ratelimit"
	"kopilka/internal/middleware/security"
	"kopilka/internal/middleware/trace"
	"kopilka/internal/services"
)

// ReportRunner computes a report as an encoded JSON document.
type ReportRunner interface {
	Run(ctx context.Context, req services.Request) (string, error)
}

// ReadyFunc reports whether the record source can be reached.
type ReadyFunc func(ctx context.Context) error

// ImportLogFunc returns when the stored history was last replaced and how many
// rows it holds. A zero time means never.
type ImportLogFunc func(ctx context.Context) (time.Time, int, error)

// Options tunes the server. Zero values pick defaults.
type Options struct {
	RateLimitPerMinute int
	// RequestTimeout bounds each report computation.
	RequestTimeout time.Duration
	Ready          ReadyFunc
	// LastImport is set for backends that record imports.
	LastImport ImportLogFunc
	// TrustedProxies are CIDRs, besides private networks, whose
	// forwarding headers are believed.
	TrustedProxies []string
	Logger         *log.Logger
}

// Server is the JSON API around the reports.
type Server struct {
	http.Server
	reports    ReportRunner
	ready      ReadyFunc
	lastImport ImportLogFunc
	logger     *log.Logger
	timeout    time.Duration
	started    time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, reports ReportRunner, opts Options) *Server {
	logger := log.OrDiscard(opts.Logger).WithComponent(log.ComponentHTTP)
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	detector := security.NewDetector(logger)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s := &Server{
		reports:          reports,
		ready:            opts.Ready,
		lastImport:       opts.LastImport,
		logger:           logger,
		timeout:          timeout,
		started:          time.Now(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute, Logger: logger}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	router := mux.NewRouter().StrictSlash(true)
	router.Use(
		s.traceMiddleware.Middleware,
		log.Middleware(logger, trace.GetRequestID),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		detector.Middleware,
	)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError(http.MethodGet).Write(w)
	})

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	}))
	api.HandleFunc("/main", s.reportHandler(services.KindMainPage)).Methods(http.MethodGet)
	api.HandleFunc("/transfers", s.reportHandler(services.KindTransfers)).Methods(http.MethodGet)
	api.HandleFunc("/invest", s.reportHandler(services.KindInvest)).Methods(http.MethodGet)
	api.HandleFunc("/weekday", s.reportHandler(services.KindWeekday)).Methods(http.MethodGet)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
