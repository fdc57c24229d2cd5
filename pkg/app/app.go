// Package app wires the repository, cache, service and router from configuration.
package app

import (
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/wadjakorntonsri/shorturl/pkg/adapters/cache"
	"github.com/wadjakorntonsri/shorturl/pkg/adapters/handler"
	"github.com/wadjakorntonsri/shorturl/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shorturl/pkg/config"
	"github.com/wadjakorntonsri/shorturl/pkg/core/services"
	"github.com/wadjakorntonsri/shorturl/pkg/core/shortcode"
	"github.com/wadjakorntonsri/shorturl/pkg/ports"
)

// App is a fully wired URL shortener.
type App struct {
	Handler http.Handler
	Service *services.URLService

	repo  *sqlite.SQLiteRepository
	redis *redis.Client
}

// New opens the database, connects the optional Redis cache and builds the router.
// A Redis outage at startup disables the cache instead of failing.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database ready", zap.Bool("remote", sqlite.IsRemote(cfg.DatabaseURL)))

	a := &App{repo: repo}

	var urlCache ports.URLCache
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			logger.Warn("Redis unavailable, redirect cache disabled", zap.Error(err))
		} else {
			a.redis = client
			urlCache = cache.NewRedisCache(client, cfg.CacheTTL)
			logger.Info("Redis connection established", zap.String("addr", cfg.RedisAddr))
		}
	}

	a.Service = services.NewURLService(repo, services.Options{
		BaseURL:         cfg.BaseURL,
		ShortCodeLength: cfg.ShortCodeLength,
		MaxURLLength:    cfg.MaxURLLength,
		CustomRules: shortcode.CustomRules{
			MinLength: cfg.CustomAliasMinLength,
			MaxLength: cfg.CustomAliasMaxLength,
		},
		Cache:  urlCache,
		Logger: logger,
	})
	a.Handler = handler.NewRouter(cfg, a.Service, logger)

	if !cfg.AuthEnabled() {
		logger.Warn("JWT_SECRET is not set, admin routes are unauthenticated")
	}
	return a, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	return a.repo.Close()
}
