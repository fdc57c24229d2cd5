package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	AppEnv      string
	LogLevel    string
	BaseURL     string

	// Short code rules
	ShortCodeLength      int
	CustomAliasMinLength int
	CustomAliasMaxLength int
	MaxURLLength         int

	// Redirect cache, disabled when RedisAddr is empty
	RedisAddr string
	CacheTTL  time.Duration

	// Admin auth, disabled when JWTSecret is empty
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	AllowedEmails      []string
	FrontendURL        string

	// Warnings collects values that could not be parsed and fell back to defaults.
	Warnings []string
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:db.sqlite"),
		AppEnv:             getEnv("APP_ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", ""),
		BaseURL:            strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AllowedEmails:      splitList(getEnv("ALLOWED_EMAILS", "")),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:8080/api/v1/urls"),
	}

	cfg.ShortCodeLength = cfg.getInt("SHORT_CODE_LENGTH", 6)
	cfg.CustomAliasMinLength = cfg.getInt("CUSTOM_ALIAS_MIN_LENGTH", 3)
	cfg.CustomAliasMaxLength = cfg.getInt("CUSTOM_ALIAS_MAX_LENGTH", 20)
	cfg.MaxURLLength = cfg.getInt("MAX_URL_LENGTH", 2048)
	cfg.CacheTTL = cfg.getDuration("CACHE_TTL", 24*time.Hour)

	return cfg
}

// IsProduction reports whether cookies should be marked secure and logs emitted as JSON.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AuthEnabled reports whether the admin API requires a JWT.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// OAuthEnabled reports whether the Google login routes are served.
func (c *Config) OAuthEnabled() bool {
	return c.AuthEnabled() && c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c *Config) getInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s=%q, using %d", key, raw, fallback))
		return fallback
	}
	return v
}

func (c *Config) getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s=%q, using %s", key, raw, fallback))
		return fallback
	}
	return v
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
