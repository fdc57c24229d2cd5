package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wadjakorntonsri/shorturl/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shorturl/pkg/core/domain"
)

const testBaseURL = "https://sho.rt"

var dbSeq atomic.Int64

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSQLiteService(t *testing.T) (*URLService, *clock) {
	t.Helper()
	repo, err := sqlite.NewSQLiteRepository(fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", dbSeq.Add(1)))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	clk := newClock()
	svc := NewURLService(repo, Options{BaseURL: testBaseURL + "/", Now: clk.Now, Logger: zap.NewNop()})
	return svc, clk
}

func newObservedService(repo *MockURLRepository, opts Options) (*URLService, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	opts.Logger = zap.New(core)
	if opts.BaseURL == "" {
		opts.BaseURL = testBaseURL
	}
	return NewURLService(repo, opts), logs
}

// MockURLRepository is a mock implementation of ports.URLRepository
type MockURLRepository struct {
	mock.Mock
}

func (m *MockURLRepository) Create(ctx context.Context, url *domain.URL) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockURLRepository) FindByCode(ctx context.Context, code string) (*domain.URL, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.URL), args.Error(1)
}

func (m *MockURLRepository) FindLiveByOriginalURL(ctx context.Context, originalURL string, now time.Time) (*domain.URL, error) {
	args := m.Called(ctx, originalURL, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.URL), args.Error(1)
}

func (m *MockURLRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockURLRepository) List(ctx context.Context, limit, offset int) ([]domain.URL, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.URL), args.Get(1).(int64), args.Error(2)
}

func (m *MockURLRepository) Delete(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockURLRepository) Dump(ctx context.Context) ([]domain.URL, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.URL), args.Error(1)
}

func (m *MockURLRepository) RecordClick(ctx context.Context, click *domain.Click) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

func (m *MockURLRepository) RecentClicks(ctx context.Context, urlID int64, limit int) ([]domain.Click, error) {
	args := m.Called(ctx, urlID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Click), args.Error(1)
}

// mapCache is an in-process ports.URLCache.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.URL
	hits    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]domain.URL{}}
}

func (c *mapCache) Get(_ context.Context, code string) (*domain.URL, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.entries[code]
	if ok {
		c.hits++
	}
	return &u, ok
}

func (c *mapCache) Set(_ context.Context, u *domain.URL) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[u.ShortCode] = *u
}

func (c *mapCache) Delete(_ context.Context, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, code)
}
