package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"tracker/internal/cache"
	"tracker/internal/ledger"
	"tracker/internal/log"
	"tracker/internal/middleware/ratelimit"
	"tracker/internal/middleware/security"
	"tracker/internal/middleware/trace"
)

// Options tunes a Server. Zero values select the defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	ReadyTimeout       time.Duration
}

type Server struct {
	http.Server
	service *ledger.Service
	logger  *log.Logger

	idempotency     *idempotency
	cacheManager    *cache.Manager
	rateLimiter     *ratelimit.Limiter
	detector        *security.Detector
	traceMiddleware *trace.Middleware
	readyTimeout    time.Duration

	started  time.Time
	appended atomic.Int64
	replayed atomic.Int64

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around svc.
func NewServer(addr string, svc *ledger.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	readyTimeout := opts.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 5 * time.Second
	}

	s := &Server{
		service:      svc,
		logger:       logger.WithComponent(log.ComponentHTTP),
		idempotency:  newIdempotency(),
		cacheManager: cache.NewManager(logger),
		detector:     security.NewDetector(),
		readyTimeout: readyTimeout,
		started:      time.Now(),
	}
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	s.traceMiddleware = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.cacheManager.Register(s.idempotency.results)
	s.cacheManager.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /transactions/{index}", s.handleDeleteAt)
	mux.HandleFunc("DELETE /transactions/id/{id}", s.handleDeleteByID)
	mux.HandleFunc("/transactions", methodNotAllowed("GET, POST"))
	mux.HandleFunc("/transactions/{index}", methodNotAllowed("DELETE"))
	mux.HandleFunc("/transactions/id/{id}", methodNotAllowed("DELETE"))

	mux.HandleFunc("GET /report/category", s.handleCategoryReport)
	mux.HandleFunc("GET /report/summary", s.handleSummary)
	mux.HandleFunc("GET /balance/{year}/{month}", s.handleMonthlyBalance)
	mux.HandleFunc("GET /balance/year/{year}", s.handleYearlyTrend)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = s.detector.Middleware(logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.recoverer(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background cleanup and drains the HTTP server. The ledger
// service is owned by the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// recoverer turns a handler panic into a JSON 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				"panic", rec)
			InternalServerError("Internal server error.").Write(w)
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}
