package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/iamvkosarev/ye-chat/config"
	"go.uber.org/zap"
)

// NewRouter mounts the chat page, its JSON API and the health check.
func NewRouter(cfg config.Web, handler *ChatHandler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Use(
		cors.Handler(
			cors.Options{
				AllowedOrigins:   cfg.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
				AllowCredentials: true,
				MaxAge:           300,
			},
		),
	)

	r.Get(
		"/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		},
	)

	r.Get("/", handler.HandlePage)
	r.Post("/", handler.HandleSubmitForm)
	r.Post("/reset", handler.HandleReset)

	r.Route(
		"/api", func(r chi.Router) {
			r.Get("/transcript", handler.HandleGetTranscript)
			r.Post("/messages", handler.HandlePostMessage)
		},
	)

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
				start := time.Now()
				next.ServeHTTP(ww, r)
				logger.Info(
					"http request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(start)),
				)
			},
		)
	}
}
