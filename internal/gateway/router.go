// ABOUTME: HTTP routing for logon-gateway using chi
// ABOUTME: Health and metrics endpoints are public, everything else passes the logon middleware

package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389/logon-gateway/internal/auth"
)

func (g *Gateway) routes(upstream http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(g.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", g.handleHealth)
	r.Get("/health/ready", g.handleReady)
	if g.config.Metrics.Enabled {
		r.Method(http.MethodGet, g.config.Metrics.Path, g.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.LogonMiddleware(g.module, auth.MiddlewareOptions{
			Sessions:          g.sessions,
			SessionCookieName: g.config.Session.CookieName,
			Users:             g.store,
			Tokens:            g.tokens,
			TokenTTL:          g.config.Trust.TokenTTL,
			TokenHeader:       g.config.Trust.Header,
			Recorder:          g.metrics,
			Logger:            g.logger,
		}))
		r.Handle("/*", upstream)
	})

	return r
}

// requestLogger logs one debug line per request with its status and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
