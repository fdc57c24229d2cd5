package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wadjakorntonsri/shorturl/pkg/config"
	"github.com/wadjakorntonsri/shorturl/pkg/ports"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, service ports.URLService, logger *zap.Logger) http.Handler {
	h := NewHTTPHandler(service)
	mw := NewMiddleware(cfg)

	// Admin routes are open when no JWT secret is configured.
	protect := func(fn http.HandlerFunc) http.Handler {
		if !cfg.AuthEnabled() {
			return fn
		}
		return mw.AuthMiddleware(fn)
	}

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/v1/shorten", h.Create)
	mux.HandleFunc("GET /stats/{short_code}", h.Stats)
	mux.HandleFunc("GET /{short_code}", h.Redirect)

	// Admin Routes
	mux.Handle("GET /api/v1/urls", protect(h.List))
	mux.Handle("GET /api/v1/urls/{short_code}", protect(h.Stats))
	mux.Handle("DELETE /api/v1/urls/{short_code}", protect(h.Delete))

	if cfg.OAuthEnabled() {
		authHandler := NewAuthHandler(cfg)
		mux.HandleFunc("GET /auth/google/login", authHandler.Login)
		mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
		mux.HandleFunc("GET /auth/logout", authHandler.Logout)
	}

	return Recover(logger)(RequestLogger(logger)(Metrics(mux)))
}
