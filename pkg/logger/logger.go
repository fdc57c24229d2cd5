package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wadjakorntonsri/shorturl/pkg/config"
)

// New builds the process logger: JSON in production, console output elsewhere.
// LOG_LEVEL overrides the environment's default level.
func New(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", "url-shortener")), nil
}

// Init builds the logger, installs it as the global one and reports config warnings.
func Init(cfg *config.Config) (*zap.Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	for _, w := range cfg.Warnings {
		l.Warn("Configuration fallback", zap.String("detail", w))
	}
	return l, nil
}
