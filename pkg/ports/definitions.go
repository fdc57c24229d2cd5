package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/shorturl/pkg/core/domain"
)

// URLRepository defines storage operations for short URLs and their clicks
type URLRepository interface {
	// Create inserts url and sets its ID. Returns domain.ErrDuplicateCode when the
	// short code is taken.
	Create(ctx context.Context, url *domain.URL) error
	FindByCode(ctx context.Context, code string) (*domain.URL, error)
	// FindLiveByOriginalURL returns the most recently created URL with that exact target
	// that has not expired at now. Returns domain.ErrNotFound when none is live.
	FindLiveByOriginalURL(ctx context.Context, originalURL string, now time.Time) (*domain.URL, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	// List returns one page ordered by created_at descending, plus the total count.
	List(ctx context.Context, limit, offset int) ([]domain.URL, int64, error)
	// Delete removes the URL and all of its clicks.
	Delete(ctx context.Context, code string) error
	Dump(ctx context.Context) ([]domain.URL, error) // For migration

	// Clicks
	RecordClick(ctx context.Context, click *domain.Click) error
	RecentClicks(ctx context.Context, urlID int64, limit int) ([]domain.Click, error)
}

// URLCache is a best-effort lookaside cache for redirects. Misses and failures are
// indistinguishable to callers.
type URLCache interface {
	Get(ctx context.Context, code string) (*domain.URL, bool)
	Set(ctx context.Context, url *domain.URL)
	Delete(ctx context.Context, code string)
}

// URLService defines the business logic operations
type URLService interface {
	ValidateURL(rawURL string) error
	CreateShortURL(ctx context.Context, originalURL, customCode string, expiresAt *time.Time) (*domain.CreatedURL, error)
	GetOriginalURL(ctx context.Context, code string) (*domain.URL, error)
	TrackClick(ctx context.Context, url *domain.URL, client domain.ClientInfo)
	GetURLStats(ctx context.Context, code string) (*domain.Stats, error)
	GetAllURLs(ctx context.Context, page, perPage int) (*domain.Page, error)
	DeleteURL(ctx context.Context, code string) error
}
