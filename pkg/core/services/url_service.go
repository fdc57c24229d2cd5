package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wadjakorntonsri/shorturl/pkg/core/domain"
	"github.com/wadjakorntonsri/shorturl/pkg/core/shortcode"
	"github.com/wadjakorntonsri/shorturl/pkg/metrics"
	"github.com/wadjakorntonsri/shorturl/pkg/ports"
)

const (
	DefaultMaxURLLength = 2048
	DefaultPerPage      = 50
	MaxPerPage          = 100
	RecentClicksLimit   = 10

	// insertRetries bounds how often a generated code is regenerated after losing an
	// insert race to a concurrent request.
	insertRetries = 3
)

const (
	MsgCreated       = "URL shortened successfully"
	MsgAlreadyExists = "This URL was already shortened. Returning existing short URL."
)

// Options configures a URLService. Zero values take the defaults.
type Options struct {
	BaseURL         string
	ShortCodeLength int
	MaxURLLength    int
	CustomRules     shortcode.CustomRules

	Cache  ports.URLCache
	Logger *zap.Logger
	Now    func() time.Time
}

type URLService struct {
	repo      ports.URLRepository
	cache     ports.URLCache
	generator *shortcode.Generator
	validate  *validator.Validate
	urlRule   string
	opts      Options
	now       func() time.Time
	logger    *zap.Logger
}

func NewURLService(repo ports.URLRepository, opts Options) *URLService {
	if opts.ShortCodeLength <= 0 {
		opts.ShortCodeLength = shortcode.DefaultLength
	}
	if opts.MaxURLLength <= 0 {
		opts.MaxURLLength = DefaultMaxURLLength
	}
	if opts.CustomRules == (shortcode.CustomRules{}) {
		opts.CustomRules = shortcode.DefaultCustomRules()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	s := &URLService{
		repo:     repo,
		cache:    opts.Cache,
		validate: validator.New(),
		urlRule:  fmt.Sprintf("required,max=%d", opts.MaxURLLength),
		opts:     opts,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if s.cache == nil {
		s.cache = noCache{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.L()
	}
	s.logger = s.logger.With(zap.String("component", "URLService"))
	s.generator = shortcode.NewGenerator(repo.CodeExists)
	return s
}

// ValidateURL rejects empty or overlong input and anything without a scheme and host.
func (s *URLService) ValidateURL(rawURL string) error {
	if err := s.validate.Var(rawURL, s.urlRule); err != nil {
		return domain.NewValidationError(domain.ErrInvalidURL,
			fmt.Sprintf("URL is required and must be less than %d characters", s.opts.MaxURLLength))
	}
	if err := s.validate.Var(rawURL, "url"); err != nil {
		return domain.NewValidationError(domain.ErrInvalidURL, "Invalid URL format")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return domain.NewValidationError(domain.ErrInvalidURL, "Invalid URL format")
	}
	return nil
}

// CreateShortURL shortens originalURL. Without a custom code an existing live record
// for the same URL is returned instead of minting a new one.
func (s *URLService) CreateShortURL(ctx context.Context, originalURL, customCode string, expiresAt *time.Time) (*domain.CreatedURL, error) {
	if err := s.ValidateURL(originalURL); err != nil {
		metrics.URLCreationTotal.WithLabelValues(metrics.StatusInvalid).Inc()
		return nil, err
	}

	if expiresAt != nil {
		t := expiresAt.UTC()
		expiresAt = &t
	}

	var (
		created *domain.URL
		err     error
	)
	if customCode == "" {
		existing, findErr := s.repo.FindLiveByOriginalURL(ctx, originalURL, s.now())
		switch {
		case findErr == nil:
			metrics.URLCreationTotal.WithLabelValues(metrics.StatusReused).Inc()
			return s.result(existing, MsgAlreadyExists, true), nil
		case findErr != nil && !errors.Is(findErr, domain.ErrNotFound):
			metrics.URLCreationTotal.WithLabelValues(metrics.StatusError).Inc()
			return nil, findErr
		}
		created, err = s.createGenerated(ctx, originalURL, expiresAt)
	} else {
		created, err = s.createCustom(ctx, originalURL, customCode, expiresAt)
	}
	if err != nil {
		metrics.URLCreationTotal.WithLabelValues(creationStatus(err)).Inc()
		return nil, err
	}

	metrics.URLCreationTotal.WithLabelValues(metrics.StatusCreated).Inc()
	s.logger.Info("URL shortened successfully",
		zap.String("short_code", created.ShortCode),
		zap.Bool("custom", created.Custom))
	return s.result(created, MsgCreated, false), nil
}

func (s *URLService) createCustom(ctx context.Context, originalURL, code string, expiresAt *time.Time) (*domain.URL, error) {
	if !s.opts.CustomRules.Valid(code) {
		return nil, domain.NewValidationError(domain.ErrInvalidCustomCode, "Invalid custom code format")
	}

	// Expired records still own their code.
	taken, err := s.repo.CodeExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrCodeInUse
	}

	u := s.newURL(originalURL, code, true, expiresAt)
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateCode) {
			return nil, domain.ErrCodeInUse
		}
		return nil, err
	}
	return u, nil
}

func (s *URLService) createGenerated(ctx context.Context, originalURL string, expiresAt *time.Time) (*domain.URL, error) {
	var lastErr error
	for attempt := 0; attempt < insertRetries; attempt++ {
		code, err := s.generator.Random(ctx, s.opts.ShortCodeLength)
		if err != nil {
			return nil, err
		}

		u := s.newURL(originalURL, code, false, expiresAt)
		err = s.repo.Create(ctx, u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrDuplicateCode) {
			return nil, err
		}
		s.logger.Warn("Generated code lost an insert race, regenerating",
			zap.String("short_code", code), zap.Int("attempt", attempt+1))
		lastErr = err
	}
	return nil, lastErr
}

func (s *URLService) newURL(originalURL, code string, custom bool, expiresAt *time.Time) *domain.URL {
	return &domain.URL{
		OriginalURL: originalURL,
		ShortCode:   code,
		Custom:      custom,
		CreatedAt:   s.now().UTC(),
		ExpiresAt:   expiresAt,
	}
}

func (s *URLService) result(u *domain.URL, message string, existed bool) *domain.CreatedURL {
	s.withShortURL(u)
	return &domain.CreatedURL{
		URL:           u,
		ShortURL:      u.ShortURL,
		Message:       message,
		AlreadyExists: existed,
	}
}

// ShortURL joins the base URL and code.
func (s *URLService) ShortURL(code string) string {
	return s.opts.BaseURL + "/" + code
}

func (s *URLService) withShortURL(u *domain.URL) {
	u.ShortURL = s.ShortURL(u.ShortCode)
}

// GetOriginalURL resolves a code for redirecting. Expired records yield
// domain.ErrExpired, unknown codes domain.ErrNotFound.
func (s *URLService) GetOriginalURL(ctx context.Context, code string) (*domain.URL, error) {
	u, ok := s.cache.Get(ctx, code)
	if !ok {
		var err error
		u, err = s.repo.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				metrics.URLAccessTotal.WithLabelValues(metrics.StatusNotFound).Inc()
			} else {
				metrics.URLAccessTotal.WithLabelValues(metrics.StatusError).Inc()
			}
			return nil, err
		}
		s.cache.Set(ctx, u)
	}

	if u.IsExpired(s.now()) {
		metrics.URLAccessTotal.WithLabelValues(metrics.StatusExpired).Inc()
		return nil, domain.ErrExpired
	}

	metrics.URLAccessTotal.WithLabelValues(metrics.StatusFound).Inc()
	s.withShortURL(u)
	return u, nil
}

// TrackClick records a click. It never fails: errors are logged and counted, since
// analytics must not affect the redirect.
func (s *URLService) TrackClick(ctx context.Context, u *domain.URL, client domain.ClientInfo) {
	click := &domain.Click{
		URLID:     u.ID,
		ClickedAt: s.now().UTC(),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Referer:   client.Referer,
	}
	if err := s.repo.RecordClick(ctx, click); err != nil {
		metrics.ClickTrackingFailuresTotal.Inc()
		s.logger.Warn("click tracking failed",
			zap.Error(err),
			zap.String("short_code", u.ShortCode),
			zap.Int64("url_id", u.ID))
		return
	}
	u.ClickCount++
}

func (s *URLService) GetURLStats(ctx context.Context, code string) (*domain.Stats, error) {
	u, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.withShortURL(u)

	clicks, err := s.repo.RecentClicks(ctx, u.ID, RecentClicksLimit)
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		URL:          *u,
		TotalClicks:  u.ClickCount,
		RecentClicks: clicks,
	}, nil
}

// GetAllURLs lists URLs newest first. page is 1-indexed; perPage is clamped to
// [1, MaxPerPage] with DefaultPerPage for non-positive values.
func (s *URLService) GetAllURLs(ctx context.Context, page, perPage int) (*domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	urls, total, err := s.repo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	for i := range urls {
		s.withShortURL(&urls[i])
	}

	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return &domain.Page{
		URLs:        urls,
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
		PerPage:     perPage,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}, nil
}

func (s *URLService) DeleteURL(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}
	s.cache.Delete(ctx, code)
	s.logger.Info("URL deleted", zap.String("short_code", code))
	return nil
}

func creationStatus(err error) string {
	switch {
	case domain.IsValidation(err):
		return metrics.StatusInvalid
	case domain.IsConflict(err):
		return metrics.StatusConflict
	default:
		return metrics.StatusError
	}
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*domain.URL, bool) { return nil, false }
func (noCache) Set(context.Context, *domain.URL)                {}
func (noCache) Delete(context.Context, string)                  {}

var _ ports.URLService = (*URLService)(nil)
