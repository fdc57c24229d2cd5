package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wadjakorntonsri/shorturl/pkg/core/domain"
	"github.com/wadjakorntonsri/shorturl/pkg/ports"
)

// clickTimeout bounds click tracking so a slow store cannot hold a redirect.
const clickTimeout = 2 * time.Second

type HTTPHandler struct {
	service ports.URLService
	logger  *zap.Logger
}

func NewHTTPHandler(service ports.URLService) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		logger:  zap.L().With(zap.String("component", "HTTPHandler")),
	}
}

// CreateURLRequest payload
type CreateURLRequest struct {
	OriginalURL string `json:"original_url"`
	URL         string `json:"url,omitempty"` // accepted for older clients
	CustomCode  string `json:"custom_code,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Create a short URL
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	originalURL := req.OriginalURL
	if originalURL == "" {
		originalURL = req.URL
	}
	if originalURL == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "URL is required"})
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := ParseExpiry(req.ExpiresAt)
		if err != nil {
			h.writeError(w, err)
			return
		}
		expiresAt = &t
	}

	created, err := h.service.CreateShortURL(r.Context(), originalURL, req.CustomCode, expiresAt)
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if created.AlreadyExists {
		status = http.StatusOK
	}
	writeJSON(w, status, created)
}

// Redirect to original URL
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Short code missing"})
		return
	}

	u, err := h.service.GetOriginalURL(r.Context(), code)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if r.URL.Query().Get("no_stat") == "" {
		// The click outlives a client that hangs up right after reading the Location.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), clickTimeout)
		h.service.TrackClick(ctx, u, ClientInfo(r))
		cancel()
	}

	http.Redirect(w, r, u.OriginalURL, http.StatusFound)
}

// Stats for a short URL
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetURLStats(r.Context(), r.PathValue("short_code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// List short URLs
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 50)

	result, err := h.service.GetAllURLs(r.Context(), page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Delete a short URL and its clicks
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteURL(r.Context(), r.PathValue("short_code")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "URL deleted successfully"})
}

func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "url-shortener",
		"version": "1.0.0",
	})
}

// ClientInfo extracts the click metadata from a request.
func ClientInfo(r *http.Request) domain.ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return domain.ClientInfo{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseExpiry accepts ISO 8601 timestamps with a T or space separator, with or without
// seconds and offset. Values without an offset are UTC.
func ParseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 10 && raw[10] == ' ' {
		raw = raw[:10] + "T" + raw[11:]
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.NewValidationError(domain.ErrInvalidExpiry, "Invalid date format. Use ISO 8601 format")
}

// StatusFor maps service errors onto HTTP statuses.
func StatusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsConflict(err):
		return http.StatusConflict
	case domain.IsNotFound(err), domain.IsExpired(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrGenerationExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, domain.ErrCodeInUse):
		return "Custom code already in use"
	case errors.Is(err, domain.ErrDuplicateCode):
		return "Short code collision, please retry"
	case errors.Is(err, domain.ErrNotFound):
		return "Short URL not found"
	case errors.Is(err, domain.ErrExpired):
		return "Short URL has expired"
	case errors.Is(err, domain.ErrGenerationExhausted):
		return "Could not generate a unique short code, please retry"
	default:
		return "Internal server error"
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: messageFor(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
