package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/civixity/internal/chat"
	"github.com/MikeSquared-Agency/civixity/internal/chatctx"
	"github.com/MikeSquared-Agency/civixity/internal/model"
	"github.com/MikeSquared-Agency/civixity/internal/speech"
	"github.com/MikeSquared-Agency/civixity/internal/store"
)

const maxBodyBytes = 10 << 20

type Chatter interface {
	Respond(ctx context.Context, req chat.Request) (*chat.Reply, error)
}

type PostReader interface {
	ListIssues(ctx context.Context, q store.IssueQuery) ([]model.IssueReport, error)
	Ping(ctx context.Context) error
}

type Summarizer interface {
	IssuesSummary(ctx context.Context) chatctx.Section
}

type ImageClassifier interface {
	ClassifyUpload(ctx context.Context, r io.Reader) (string, error)
}

// EventBus reports the state of the optional event connection.
type EventBus interface {
	Connected() bool
}

type SpeechForwarder interface {
	Forward(ctx context.Context, method, path string, body []byte) (*speech.Response, error)
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Chat       Chatter
	Posts      PostReader
	Summary    Summarizer
	Classifier ImageClassifier
	Speech     SpeechForwarder
	Gatherer   prometheus.Gatherer
	// Events is nil when NATS is not configured.
	Events EventBus
}

type Options struct {
	Port           int
	FrontendURL    string
	RateLimit      int
	RateLimitEvery time.Duration
}

type Server struct {
	router *chi.Mux
	http   *http.Server
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

func NewServer(opts Options, deps Deps, logger *slog.Logger) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	router := chi.NewRouter()
	s := &Server{
		router: router,
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(s.recoverer)
	router.Use(securityHeaders)
	if opts.RateLimit > 0 && opts.RateLimitEvery > 0 {
		router.Use(httprate.Limit(opts.RateLimit, opts.RateLimitEvery,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later.")
			}),
		))
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{opts.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.RequestSize(maxBodyBytes))

	router.Route("/api/chatbot", func(r chi.Router) {
		r.Post("/chat", s.chat)
		r.Get("/posts/location/{location}", s.postsByLocation)
		r.Get("/posts/category/{category}", s.postsByCategory)
		r.Get("/posts/summary", s.postsSummary)
	})
	router.Post("/api/detect-image", s.detectImage)
	router.Route("/api/speech", func(r chi.Router) {
		r.Get("/health", s.speechProxy)
		r.Post("/process", s.speechProxy)
		r.Post("/output", s.speechProxy)
	})
	router.Get("/api/health", s.health)
	router.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
