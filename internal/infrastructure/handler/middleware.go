package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/metrics"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type RouterOptions struct {
	EnableCORS     bool
	AllowedOrigins []string
	// RequestsPerMinute per client IP; zero disables limiting.
	RequestsPerMinute int
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For header is
	// believed. Requests from anyone else are keyed on the peer address.
	TrustedProxies []string
}

// NewRouter mounts the review routes, /metrics and the middleware chain.
func NewRouter(h *ReviewHandler, opts RouterOptions, logger *slog.Logger) http.Handler {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	if opts.RequestsPerMinute > 0 {
		router.Use(rateLimitMiddleware(newClientLimiters(opts.RequestsPerMinute, parseTrustedProxies(opts.TrustedProxies, logger))))
	}
	router.Use(loggingMiddleware(logger))
	router.Use(metrics.PrometheusMiddleware)

	if !opts.EnableCORS {
		return router
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"status_code", wrapped.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
