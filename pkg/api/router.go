package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/pkg/api/handlers"
)

// Deps are the views the admin API serves. Users is the only writable one.
type Deps struct {
	// Store backs the readiness probe. May be nil.
	Store handlers.HealthChecker

	Sessions handlers.SessionSource
	Users    handlers.UserSource

	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler
}

// NewRouter builds the admin router.
//
// Routes:
//   - GET /health, GET /health/ready
//   - GET /api/v1/sessions, GET /api/v1/sessions/{id}
//   - GET /api/v1/users, POST /api/v1/users
//   - GET /metrics when deps.Metrics is set
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	health := handlers.NewHealthHandler(deps.Store)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Sessions != nil {
			sessions := handlers.NewSessionHandler(deps.Sessions)
			r.Get("/sessions", sessions.List)
			r.Get("/sessions/{id}", sessions.Get)
		}
		if deps.Users != nil {
			users := handlers.NewUserHandler(deps.Users)
			r.Get("/users", users.List)
			r.Post("/users", users.Create)
		}
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs each request through the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug("API request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
