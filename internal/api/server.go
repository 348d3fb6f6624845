package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/docstore"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/metrics"
	"github.com/dgallion1/bookdigest/internal/pipeline"
)

// Server is the HTTP API server for bookdigest.
type Server struct {
	router  chi.Router
	svc     *pipeline.Service
	runner  *pipeline.JobRunner
	stats   *llm.Stats
	docs    *docstore.DocxStore
	metrics *metrics.Metrics
	log     *slog.Logger
	cfg     config.Config
}

// Deps are the components the server routes to. Stats, Docs and Metrics may
// be nil; their endpoints then answer 503 or 404.
type Deps struct {
	Service *pipeline.Service
	Runner  *pipeline.JobRunner
	Stats   *llm.Stats
	Docs    *docstore.DocxStore
	Metrics *metrics.Metrics
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc:     deps.Service,
		runner:  deps.Runner,
		stats:   deps.Stats,
		docs:    deps.Docs,
		metrics: deps.Metrics,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(RequestMetrics(s.metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Post("/create-summary", s.handleCreateSummary)
	r.Get("/documents/{docID}", s.handleDownloadDocument)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/jobs", s.handleSubmitJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.runner.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
