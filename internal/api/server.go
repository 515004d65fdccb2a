// Package api exposes the compliance, token and vesting services over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"solana-security-token/internal/compliance"
	"solana-security-token/internal/enforcement"
	"solana-security-token/internal/observability"
	"solana-security-token/internal/reporting"
	"solana-security-token/internal/storage"
	"solana-security-token/internal/token"
	"solana-security-token/internal/vesting"
)

// CallerHeader carries the base58 key of the calling account.
const CallerHeader = "X-Caller"

// RequestIDHeader echoes the id assigned to each request.
const RequestIDHeader = "X-Request-Id"

// Services are the collaborators behind the routes.
type Services struct {
	Compliance *compliance.Service
	Token      *token.Service
	Vesting    *vesting.Service
	Hook       *enforcement.Hook
	Events     storage.AuditEventStore // optional, serves GET .../events
	Feed       http.Handler            // optional, serves GET /events
}

// Server routes HTTP requests to the services.
type Server struct {
	compliance *compliance.Service
	token      *token.Service
	vesting    *vesting.Service
	hook       *enforcement.Hook
	events     storage.AuditEventStore
	feed       http.Handler
	reports    *reporting.Generator
	logger     *slog.Logger
	timeout    time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithTimeout bounds the handling time of each request.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithClock fixes the timestamp of generated reports.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.reports.WithClock(now) }
}

// New creates a Server over svc.
func New(svc Services, opts ...Option) *Server {
	s := &Server{
		compliance: svc.Compliance,
		token:      svc.Token,
		vesting:    svc.Vesting,
		hook:       svc.Hook,
		events:     svc.Events,
		feed:       svc.Feed,
		logger:     slog.Default(),
		timeout:    30 * time.Second,
	}
	s.reports = reporting.NewGenerator(svc.Vesting)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", observability.Handler())
	if s.feed != nil {
		r.Handle("/events", s.feed)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		s.registerRegistryRoutes(r)
		s.registerVestingRoutes(r)
	})
	return r
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.ErrorContext(r.Context(), "panic in handler",
					"request_id", RequestID(r.Context()),
					"panic", rec,
				)
				writeJSON(w, http.StatusInternalServerError, errorBody{Code: "Internal", Message: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "http request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
