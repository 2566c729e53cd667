// Package server exposes the honeypot over HTTP: scam detection,
// conversational engagement, intelligence extraction, session inspection,
// and archived report retrieval.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SaketSinghRajput/honeycomb/internal/archive"
	"github.com/SaketSinghRajput/honeycomb/internal/detect"
	"github.com/SaketSinghRajput/honeycomb/internal/engage"
	"github.com/SaketSinghRajput/honeycomb/internal/intel"
	hcotel "github.com/SaketSinghRajput/honeycomb/internal/otel"
	"github.com/SaketSinghRajput/honeycomb/internal/speech"
)

const defaultTimeout = 60 * time.Second

// DefaultDetectThreshold is the minimum scam probability at which the
// honeypot route engages the agent instead of answering neutrally.
const DefaultDetectThreshold = 0.7

// Server holds all dependencies for the HTTP API.
type Server struct {
	router       *chi.Mux
	orchestrator *engage.Orchestrator
	classifier   detect.Classifier
	rich         *intel.Rich
	reports      *archive.Store
	transcriber  speech.Transcriber // nil: audio input rejected
	synthesizer  speech.Synthesizer // nil: replies are text-only
	limiter      *RateLimiter
	apiKeys      []string
	corsOrigins  []string
	threshold    float64
	startTime    time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithSpeech sets the transcription and synthesis backends (either may be
// nil to leave that direction disabled).
func WithSpeech(t speech.Transcriber, syn speech.Synthesizer) Option {
	return func(s *Server) {
		s.transcriber = t
		s.synthesizer = syn
	}
}

// WithRateLimiter sets the request rate limiter (optional).
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithDetectThreshold overrides the engagement threshold for the
// honeypot route.
func WithDetectThreshold(threshold float64) Option {
	return func(s *Server) { s.threshold = threshold }
}

// WithCORSOrigins sets allowed CORS origins (e.g. ["*"] for any).
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// NewServer builds a Server with the required dependencies and optional
// Option(s). An empty apiKeys slice disables authentication.
func NewServer(
	orchestrator *engage.Orchestrator,
	classifier detect.Classifier,
	rich *intel.Rich,
	reports *archive.Store,
	apiKeys []string,
	opts ...Option,
) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		orchestrator: orchestrator,
		classifier:   classifier,
		rich:         rich,
		reports:      reports,
		apiKeys:      apiKeys,
		corsOrigins:  []string{"*"},
		threshold:    DefaultDetectThreshold,
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler (chi router with all
// middleware and routes).
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(hcotel.MiddlewareWithStatus())
	r.Use(CORSMiddleware(s.corsOrigins))

	// Unauthenticated
	r.Get("/health", s.handleHealth)

	// Authenticated API group
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKeys))
		r.Use(RateLimitMiddleware(s.limiter))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultTimeout))
			r.Post("/api/v1/honeypot", s.handleHoneypot)
			r.Post("/api/v1/engage", s.handleEngage)
			r.Post("/api/v1/detect", s.handleDetect)
			r.Post("/api/v1/extract", s.handleExtract)

			r.Get("/api/v1/sessions/{sessionID}", s.handleSessionGet)
			r.Post("/api/v1/sessions/{sessionID}/terminate", s.handleSessionTerminate)

			r.Get("/api/v1/reports", s.handleReportsList)
			r.Get("/api/v1/reports/{sessionID}", s.handleReportsBySession)
		})
	})

	return r
}
