package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"safetyrag/internal/domain"
	"safetyrag/internal/logging"
	"safetyrag/internal/service"
)

// SimilarityUseCase is the part of the similarity service the HTTP layer uses.
type SimilarityUseCase interface {
	Initialize(ctx context.Context) error
	FindSimilarCases(ctx context.Context, q domain.SimilarityQuery, k int) (domain.RankedResult, error)
	GetCaseByID(id int) (domain.AccidentCase, bool)
	State() service.State
	Len() int
}

type Server struct {
	router       *chi.Mux
	uc           SimilarityUseCase
	queryTimeout time.Duration
	defaultK     int
	maxK         int
}

type Options func(*Server)

// WithQueryTimeout bounds how long a request waits for initialization and
// the query. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Options {
	return func(s *Server) {
		s.queryTimeout = d
	}
}

// WithSearchLimits sets the count used when a request has no limit and the
// largest count a request may ask for.
func WithSearchLimits(defaultK, maxK int) Options {
	return func(s *Server) {
		if defaultK > 0 {
			s.defaultK = defaultK
		}
		if maxK > 0 {
			s.maxK = maxK
		}
	}
}

func New(uc SimilarityUseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:   r,
		uc:       uc,
		defaultK: service.DefaultK,
		maxK:     20,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultK > s.maxK {
		s.defaultK = s.maxK
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/accident-cases", func(r chi.Router) {
		r.Post("/similar", s.similarCasesHandler)
		r.Get("/status", s.statusHandler)
		r.Get("/{id}", s.caseByIDHandler)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
