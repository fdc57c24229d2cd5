package domain

import "time"

// Click represents a single redirect through a short URL
type Click struct {
	ID        int64     `json:"id"`
	URLID     int64     `json:"url_id"`
	ClickedAt time.Time `json:"clicked_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
}

// ClientInfo is the request metadata captured on a click
type ClientInfo struct {
	IPAddress string
	UserAgent string
	Referer   string
}
