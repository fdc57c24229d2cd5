package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"

	"github.com/wadjakorntonsri/shorturl/pkg/core/domain"
)

func TestEntryTTL(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	tests := []struct {
		name      string
		ttl       time.Duration
		expiresAt *time.Time
		want      time.Duration
		wantOK    bool
	}{
		{"no expiry keeps ttl", time.Hour, nil, time.Hour, true},
		{"far expiry keeps ttl", time.Hour, at(48 * time.Hour), time.Hour, true},
		{"near expiry caps ttl", time.Hour, at(10 * time.Minute), 10 * time.Minute, true},
		{"expiry equal to ttl", time.Hour, at(time.Hour), time.Hour, true},
		{"expiring now is skipped", time.Hour, at(0), 0, false},
		{"expired is skipped", time.Hour, at(-time.Minute), 0, false},
		{"uncapped ttl uses expiry", 0, at(5 * time.Minute), 5 * time.Minute, true},
		{"uncapped ttl without expiry", 0, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := entryTTL(tt.ttl, tt.expiresAt, now)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRedisCacheUnreachableIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	c := NewRedisCache(client, time.Minute)
	ctx := context.Background()

	c.Set(ctx, &domain.URL{ShortCode: "down01", OriginalURL: "https://example.com"})
	_, ok := c.Get(ctx, "down01")
	assert.False(t, ok)
	c.Delete(ctx, "down01")
}
