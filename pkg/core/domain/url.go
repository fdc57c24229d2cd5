package domain

import "time"

// URL represents a shortened URL
type URL struct {
	ID          int64      `json:"id"`
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"` // BaseURL + "/" + ShortCode, filled by the service
	Custom      bool       `json:"custom"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ClickCount  int64      `json:"click_count"`
}

// IsExpired reports whether the URL has an expiry that is not after now.
func (u *URL) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && !u.ExpiresAt.After(now)
}

// CreatedURL is the result of a shorten request
type CreatedURL struct {
	URL           *URL   `json:"url"`
	ShortURL      string `json:"short_url"`
	Message       string `json:"message"`
	AlreadyExists bool   `json:"already_exists"`
}

// Stats represents a URL together with its click analytics
type Stats struct {
	URL
	TotalClicks  int64   `json:"total_clicks"`
	RecentClicks []Click `json:"recent_clicks"`
}

// Page is one page of the URL listing
type Page struct {
	URLs        []URL `json:"urls"`
	Total       int64 `json:"total"`
	Pages       int   `json:"pages"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}
