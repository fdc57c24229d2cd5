package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wadjakorntonsri/shorturl/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shorturl/pkg/config"
	"github.com/wadjakorntonsri/shorturl/pkg/core/domain"
	"github.com/wadjakorntonsri/shorturl/pkg/core/services"
)

var dbSeq atomic.Int64

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	repo, err := sqlite.NewSQLiteRepository(fmt.Sprintf("file:handler_test_%d?mode=memory&cache=shared", dbSeq.Add(1)))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	svc := services.NewURLService(repo, services.Options{BaseURL: "https://sho.rt", Logger: zap.NewNop()})
	return NewRouter(cfg, svc, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, &config.Config{})

	rr := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode[map[string]string](t, rr)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "url-shortener", body["service"])
}

func TestCreateAndReuse(t *testing.T) {
	h := newTestRouter(t, &config.Config{})

	rr := do(t, h, http.MethodPost, "/api/v1/shorten", map[string]string{"original_url": "https://example.com/page"})
	require.Equal(t, http.StatusCreated, rr.Code)
	first := decode[domain.CreatedURL](t, rr)
	assert.Len(t, first.URL.ShortCode, 6)
	assert.Equal(t, "https://sho.rt/"+first.URL.ShortCode, first.ShortURL)
	assert.Equal(t, "URL shortened successfully", first.Message)
	assert.False(t, first.AlreadyExists)

	rr = do(t, h, http.MethodPost, "/api/v1/shorten", map[string]string{"url": "https://example.com/page"})
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[domain.CreatedURL](t, rr)
	assert.True(t, second.AlreadyExists)
	assert.Equal(t, first.URL.ShortCode, second.URL.ShortCode)
}

func TestCreateErrors(t *testing.T) {
	h := newTestRouter(t, &config.Config{})

	rr := do(t, h, http.MethodPost, "/api/v1/shorten", map[string]string{"original_url": "https://example.com", "custom_code": "my-link"})
	require.Equal(t, http.StatusCreated, rr.Code)

	tests := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"code taken", map[string]string{"original_url": "https://other.example", "custom_code": "my-link"}, http.StatusConflict, "Custom code already in use"},
		{"bad custom code", map[string]string{"original_url": "https://other.example", "custom_code": "a b"}, http.StatusBadRequest, "Invalid custom code format"},
		{"no scheme", map[string]string{"original_url": "example.com"}, http.StatusBadRequest, "Invalid URL format"},
		{"missing url", map[string]string{}, http.StatusBadRequest, "URL is required"},
		{"too long", map[string]string{"original_url": "https://example.com/" + strings.Repeat("a", 2048)}, http.StatusBadRequest, "URL is required and must be less than 2048 characters"},
		{"bad expiry", map[string]string{"original_url": "https://other.example", "expires_at": "next week"}, http.StatusBadRequest, "Invalid date format. Use ISO 8601 format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/v1/shorten", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.message, decode[ErrorResponse](t, rr).Error)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/shorten", strings.NewReader("{"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestRedirectAndStats(t *testing.T) {
	h := newTestRouter(t, &config.Config{})

	rr := do(t, h, http.MethodPost, "/api/v1/shorten", map[string]string{"original_url": "https://example.com/target"})
	require.Equal(t, http.StatusCreated, rr.Code)
	code := decode[domain.CreatedURL](t, rr).URL.ShortCode

	req := httptest.NewRequest(http.MethodGet, "/"+code, nil)
	req.Header.Set("User-Agent", "handler-test")
	req.Header.Set("Referer", "https://ref.example")
	req.RemoteAddr = "203.0.113.7:5555"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://example.com/target", rr.Header().Get("Location"))

	rr = do(t, h, http.MethodGet, "/"+code+"?no_stat=1", nil)
	assert.Equal(t, http.StatusFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/stats/"+code, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[domain.Stats](t, rr)
	assert.EqualValues(t, 1, stats.TotalClicks)
	assert.EqualValues(t, 1, stats.ClickCount)
	require.Len(t, stats.RecentClicks, 1)
	assert.Equal(t, "203.0.113.7", stats.RecentClicks[0].IPAddress)
	assert.Equal(t, "handler-test", stats.RecentClicks[0].UserAgent)
	assert.Equal(t, "https://ref.example", stats.RecentClicks[0].Referer)
}

func TestRedirectMissingAndExpired(t *testing.T) {
	h := newTestRouter(t, &config.Config{})

	rr := do(t, h, http.MethodGet, "/nope42", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Short URL not found", decode[ErrorResponse](t, rr).Error)

	rr = do(t, h, http.MethodPost, "/api/v1/shorten", map[string]string{
		"original_url": "https://example.com/old",
		"custom_code":  "old-one",
		"expires_at":   "2000-01-01T00:00:00",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodGet, "/old-one", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Short URL has expired", decode[ErrorResponse](t, rr).Error)

	rr = do(t, h, http.MethodGet, "/stats/old-one", nil)
	assert.Equal(t, http.StatusOK, rr.Code, "stats stay readable after expiry")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	cfg := &config.Config{JWTSecret: "admin-secret"}
	h := newTestRouter(t, cfg)

	rr := do(t, h, http.MethodPost, "/api/v1/shorten", map[string]string{"original_url": "https://example.com", "custom_code": "adm-1"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/urls", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, _, err := NewAuthHandler(cfg).IssueToken("ops@example.com", time.Now())
	require.NoError(t, err)

	authed := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	rr = authed(http.MethodGet, "/api/v1/urls?page=1&per_page=500")
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[domain.Page](t, rr)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 100, page.PerPage)

	rr = authed(http.MethodGet, "/api/v1/urls/adm-1")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = authed(http.MethodDelete, "/api/v1/urls/adm-1")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = authed(http.MethodDelete, "/api/v1/urls/adm-1")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/adm-1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminRoutesOpenWithoutSecret(t *testing.T) {
	h := newTestRouter(t, &config.Config{})

	rr := do(t, h, http.MethodGet, "/api/v1/urls", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[domain.Page](t, rr)
	assert.Empty(t, page.URLs)
	assert.Zero(t, page.Total)
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2030-01-02T03:04:05Z", time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2030-01-02T03:04:05+02:00", time.Date(2030, 1, 2, 1, 4, 5, 0, time.UTC)},
		{"2030-01-02T03:04:05", time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2030-01-02T03:04:05.5", time.Date(2030, 1, 2, 3, 4, 5, 500000000, time.UTC)},
		{"2030-01-02", time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2024-12-31 23:59:59", time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)},
		{"2024-12-31 23:59:59+01:00", time.Date(2024, 12, 31, 22, 59, 59, 0, time.UTC)},
		{"2024-12-31T23:59+05:00", time.Date(2024, 12, 31, 18, 59, 0, 0, time.UTC)},
		{"2024-12-31T23:59:59+0530", time.Date(2024, 12, 31, 18, 29, 59, 0, time.UTC)},
		{"2024-12-31T23:59", time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExpiry(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	for _, bad := range []string{"01/02/2030", "2024-12-31X23:59", "2024-12-31T25:00"} {
		_, err := ParseExpiry(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidExpiry, bad)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError(domain.ErrInvalidURL, "Invalid URL format"), http.StatusBadRequest},
		{domain.ErrCodeInUse, http.StatusConflict},
		{fmt.Errorf("insert: %w", domain.ErrDuplicateCode), http.StatusConflict},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrExpired, http.StatusNotFound},
		{domain.ErrGenerationExhausted, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: disk full", domain.ErrStore), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
