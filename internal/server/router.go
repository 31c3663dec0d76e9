package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cloo-solutions/taskpilot/internal/api"
	"github.com/cloo-solutions/taskpilot/internal/api/handlers"
	"github.com/cloo-solutions/taskpilot/internal/api/middleware"
)

type RouterConfig struct {
	// APIToken is optional; when set every assistant route requires it.
	APIToken         string
	Logger           *zap.Logger
	AssistantHandler *handlers.AssistantHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(middleware.RequestID(logger))
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.MaxBodyBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser(cfg.APIToken))

		r.Route("/assistant", func(r chi.Router) {
			r.Post("/context", cfg.AssistantHandler.Context)
			r.Post("/ask", cfg.AssistantHandler.Ask)
		})

		r.Get("/work-items/{id}/chain", cfg.AssistantHandler.Chain)
	})

	return r
}
